package ir

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"slotlife/internal/errors"
)

// IR types for slot-based method bodies.
// A body is a flat instruction list; control flow is implied by fall-through,
// branch targets and exception traps (see graph.go).

// Program is a set of independent method bodies loaded from one source
type Program struct {
	Source  string
	Methods []*Body
}

// Body represents one method body
type Body struct {
	Method       string
	Variables    []*Variable
	Instructions []*Instruction
	Debug        []*DebugVariable
	Traps        []*Trap
}

// Variable is a typed storage location. Slot is the declared bytecode slot
// index, or -1 for a stack temporary.
type Variable struct {
	Name string
	Type Type
	Slot int

	// Subsumed holds the debug table indices this variable represents after
	// splitting and coalescing. Sorted, no duplicates.
	Subsumed []int
}

// Operand is a mutable reference cell inside an instruction.
// Entry is the debug table index the front end attached to this occurrence
// (-1 when unknown). Identity is always decided by Var.
type Operand struct {
	Var   *Variable
	Entry int
}

// Kind categorizes instructions
type Kind string

const (
	KindAssign Kind = "assign" // defs = op args
	KindParam  Kind = "param"  // x = param n
	KindIf     Kind = "if"     // if args goto L
	KindGoto   Kind = "goto"   // goto L
	KindReturn Kind = "return" // return [arg]
	KindThrow  Kind = "throw"  // throw arg
	KindEffect Kind = "do"     // do op args
	KindNop    Kind = "nop"    // nop [args]
)

// Instruction is one statement-level node of the control flow graph
type Instruction struct {
	Index  int
	Label  string
	Kind   Kind
	Op     string
	Defs   []*Operand
	Uses   []*Operand
	Args   []Arg
	Target *Instruction
	Pos    errors.Position
}

// Arg is one argument of an instruction in source order: either a use
// operand or an integer literal.
type Arg struct {
	Operand *Operand
	Literal string
}

// DebugVariable is one entry of the local variable table.
// Start is inclusive, End exclusive; a nil End means the end of the method.
type DebugVariable struct {
	Name       string
	Descriptor string
	Slot       int
	Start      *Instruction
	End        *Instruction
}

// Trap routes exceptions raised in [Start, End) to Handler
type Trap struct {
	Start   *Instruction
	End     *Instruction
	Handler *Instruction
}

// Group is the coalescing equivalence class of a variable.
// Stack temporaries are keyed by type alone (Slot == -1).
type Group struct {
	Type string
	Slot int
}

// GroupOf returns the coalescing group of v
func GroupOf(v *Variable) Group {
	if v.Slot < 0 {
		return Group{Type: v.Type.String(), Slot: -1}
	}
	return Group{Type: v.Type.String(), Slot: v.Slot}
}

func (g Group) String() string {
	if g.Slot < 0 {
		return g.Type
	}
	return fmt.Sprintf("%s@%d", g.Type, g.Slot)
}

// Def returns the single definition operand of the instruction, or nil
func (i *Instruction) Def() *Operand {
	if len(i.Defs) == 0 {
		return nil
	}
	return i.Defs[0]
}

// Operands returns definition operands followed by use operands
func (i *Instruction) Operands() []*Operand {
	ops := make([]*Operand, 0, len(i.Defs)+len(i.Uses))
	ops = append(ops, i.Defs...)
	return append(ops, i.Uses...)
}

// FallsThrough reports whether control may continue with the next instruction
func (i *Instruction) FallsThrough() bool {
	switch i.Kind {
	case KindGoto, KindReturn, KindThrow:
		return false
	}
	return true
}

// IsParam reports whether the instruction defines a method parameter
func (i *Instruction) IsParam() bool {
	return i.Kind == KindParam
}

// Renumber assigns body positions to all instructions
func (b *Body) Renumber() {
	for idx, inst := range b.Instructions {
		inst.Index = idx
	}
}

// Contains reports whether inst belongs to this body
func (b *Body) Contains(inst *Instruction) bool {
	return inst != nil && inst.Index >= 0 && inst.Index < len(b.Instructions) && b.Instructions[inst.Index] == inst
}

// Last returns the final instruction of the body
func (b *Body) Last() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

// Lookup returns the declared variable with the given name
func (b *Body) Lookup(name string) *Variable {
	for _, v := range b.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Covers reports whether the entry's range contains inst
func (d *DebugVariable) Covers(inst *Instruction) bool {
	if d.Start == nil || inst.Index < d.Start.Index {
		return false
	}
	return d.End == nil || inst.Index < d.End.Index
}

// AddSubsumed merges debug table indices into the variable's subsumed set
func (v *Variable) AddSubsumed(entries ...int) {
	for _, e := range entries {
		if e < 0 {
			continue
		}
		if pos, found := slices.BinarySearch(v.Subsumed, e); !found {
			v.Subsumed = slices.Insert(v.Subsumed, pos, e)
		}
	}
}

// Clone returns a copy of v carrying a new name and no subsumed entries
func (v *Variable) Clone(name string) *Variable {
	return &Variable{Name: name, Type: v.Type, Slot: v.Slot}
}

func (v *Variable) String() string {
	return v.Name
}

// Types

type Type interface {
	String() string
}

// IntKind enumerates the integral types, including the narrow kinds
// produced by type inference
type IntKind string

const (
	Boolean  IntKind = "Z"
	Byte     IntKind = "B"
	Char     IntKind = "C"
	Short    IntKind = "S"
	Int      IntKind = "I"
	Int1     IntKind = "int1"
	Int127   IntKind = "int127"
	Int32767 IntKind = "int32767"
)

type IntType struct {
	Kind IntKind
}

type LongType struct{}

type FloatType struct{}

type DoubleType struct{}

type RefType struct {
	Class string
}

type ArrayType struct {
	Elem Type
}

func (i *IntType) String() string    { return string(i.Kind) }
func (l *LongType) String() string   { return "J" }
func (f *FloatType) String() string  { return "F" }
func (d *DoubleType) String() string { return "D" }
func (r *RefType) String() string    { return "L" + r.Class + ";" }
func (a *ArrayType) String() string  { return "[" + a.Elem.String() }

// TypeFromDescriptor parses a JVM field descriptor or one of the inferred
// narrow integer kind names
func TypeFromDescriptor(desc string) (Type, error) {
	t, rest, err := parseDescriptor(desc)
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("trailing characters %q in descriptor %q", rest, desc)
	}
	return t, nil
}

func parseDescriptor(desc string) (Type, string, error) {
	switch IntKind(desc) {
	case Int1, Int127, Int32767:
		return &IntType{Kind: IntKind(desc)}, "", nil
	}
	if desc == "" {
		return nil, "", fmt.Errorf("empty descriptor")
	}
	switch desc[0] {
	case 'Z', 'B', 'C', 'S', 'I':
		return &IntType{Kind: IntKind(desc[:1])}, desc[1:], nil
	case 'J':
		return &LongType{}, desc[1:], nil
	case 'F':
		return &FloatType{}, desc[1:], nil
	case 'D':
		return &DoubleType{}, desc[1:], nil
	case 'L':
		end := strings.IndexByte(desc, ';')
		if end < 2 {
			return nil, "", fmt.Errorf("malformed class descriptor %q", desc)
		}
		return &RefType{Class: desc[1:end]}, desc[end+1:], nil
	case '[':
		elem, rest, err := parseDescriptor(desc[1:])
		if err != nil {
			return nil, "", err
		}
		return &ArrayType{Elem: elem}, rest, nil
	}
	return nil, "", fmt.Errorf("unknown descriptor %q", desc)
}

// Width classifies an integral type by bit width; -1 for non-integral types
func Width(t Type) int {
	it, ok := t.(*IntType)
	if !ok {
		return -1
	}
	switch it.Kind {
	case Boolean, Int1:
		return 1
	case Byte, Int127:
		return 8
	case Char, Short:
		return 16
	case Int, Int32767:
		return 32
	}
	return -1
}

// DescriptorWidth classifies a debug descriptor; only Z, B, C, S and I are integral
func DescriptorWidth(desc string) int {
	switch desc {
	case "Z":
		return 1
	case "B":
		return 8
	case "C", "S":
		return 16
	case "I":
		return 32
	}
	return -1
}
