package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var BodyLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{"Comment", `//[^\n]*`, nil},

		// Descriptors are quoted so that ';' and '[' inside them do not clash with punctuation
		{"String", `"(\\"|[^"])*"`, nil},

		// Keywords and Identifiers. '$' marks synthetic names, '#' marks split clones.
		{"Ident", `[a-zA-Z_$][a-zA-Z0-9_$#]*`, nil},

		// Integer literals
		{"Integer", `-?[0-9]+`, nil},

		// Punctuation
		{"Punctuation", `[{}[\]:;,=@]`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
