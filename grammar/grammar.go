package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is a sequence of method bodies
type File struct {
	Pos     lexer.Position
	Methods []*Method `@@*`
}

type Method struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   string  `"method" @Ident "{"`
	Items  []*Item `@@* "}"`
}

type Item struct {
	Var   *VarDecl   `  @@`
	Debug *DebugDecl `| @@`
	Catch *TrapDecl  `| @@`
	Stmt  *Stmt      `| @@`
}

// VarDecl declares a variable: var name : "desc" [@slot] [subsumes n, ...];
type VarDecl struct {
	Pos        lexer.Position
	Name       string `"var" @Ident ":"`
	Descriptor string `@String`
	Slot       *int   `( "@" @Integer )?`
	Subsumes   []int  `( "subsumes" @Integer ( "," @Integer )* )? ";"`
}

// DebugDecl is one local variable table entry. "to end" means the method end.
type DebugDecl struct {
	Pos        lexer.Position
	Name       string `"debug" @Ident ":"`
	Descriptor string `@String`
	Slot       int    `"@" @Integer`
	From       string `"from" @Ident`
	To         string `"to" @Ident ";"`
}

type TrapDecl struct {
	Pos     lexer.Position
	From    string `"catch" @Ident`
	To      string `"to" @Ident`
	Handler string `"with" @Ident ";"`
}

type Stmt struct {
	Pos    lexer.Position
	Label  string  `( @Ident ":" )?`
	Goto   *Goto   `( @@`
	If     *If     `| @@`
	Return *Return `| @@`
	Throw  *Throw  `| @@`
	Do     *Do     `| @@`
	Nop    *Nop    `| @@`
	Assign *Assign `| @@ ) ";"`
}

type Goto struct {
	Target string `"goto" @Ident`
}

type If struct {
	Args   []*Arg `"if" @@ ( "," @@ )*`
	Target string `"goto" @Ident`
}

type Return struct {
	Value *Arg `"return" @@?`
}

type Throw struct {
	Value *Arg `"throw" @@`
}

type Do struct {
	Op   string `"do" @Ident`
	Args []*Arg `( @@ ( "," @@ )* )?`
}

type Nop struct {
	Args []*Arg `"nop" ( @@ ( "," @@ )* )?`
}

// Assign allows several definitions so that malformed bodies can be written down
type Assign struct {
	Defs []*Ref `@@ ( "," @@ )* "="`
	Op   string `@Ident`
	Args []*Arg `( @@ ( "," @@ )* )?`
}

type Arg struct {
	Pos     lexer.Position
	Ref     *Ref   `  @@`
	Literal string `| @Integer`
}

// Ref is a variable occurrence with an optional debug table index: name[entry]
type Ref struct {
	Pos   lexer.Position
	Name  string `@Ident`
	Entry *int   `( "[" @Integer "]" )?`
}
