package ir

import (
	"slotlife/grammar"
	"slotlife/internal/errors"
)

// endLabel closes a debug or trap range at the end of the method
const endLabel = "end"

// Builder converts parsed body text into the in-memory IR
type Builder struct {
	body   *Body
	labels map[string]*Instruction
	vars   map[string]*Variable
}

// NewBuilder creates a builder for one method
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildProgram converts every method of a parsed file. The first loading
// error stops the build.
func BuildProgram(source string, file *grammar.File) (*Program, error) {
	program := &Program{Source: source}
	seen := make(map[string]bool)
	for _, m := range file.Methods {
		if seen[m.Name] {
			return nil, errors.DuplicateDeclaration("method", m.Name, position(m.Pos.Line, m.Pos.Column))
		}
		seen[m.Name] = true

		body, err := NewBuilder().Build(m)
		if err != nil {
			return nil, err
		}
		program.Methods = append(program.Methods, body)
	}
	return program, nil
}

// Build converts one parsed method
func (b *Builder) Build(m *grammar.Method) (*Body, error) {
	b.body = &Body{Method: m.Name}
	b.labels = make(map[string]*Instruction)
	b.vars = make(map[string]*Variable)

	// Declarations first so that statements may refer to any variable
	for _, item := range m.Items {
		if item.Var != nil {
			if err := b.declare(item.Var); err != nil {
				return nil, err
			}
		}
	}

	var pending []*grammar.Stmt
	for _, item := range m.Items {
		if item.Stmt == nil {
			continue
		}
		inst, err := b.buildStmt(item.Stmt)
		if err != nil {
			return nil, err
		}
		b.body.Instructions = append(b.body.Instructions, inst)
		pending = append(pending, item.Stmt)
	}
	b.body.Renumber()

	for idx, stmt := range pending {
		if err := b.resolveTarget(b.body.Instructions[idx], stmt); err != nil {
			return nil, err
		}
	}

	for _, item := range m.Items {
		switch {
		case item.Debug != nil:
			if err := b.buildDebug(item.Debug); err != nil {
				return nil, err
			}
		case item.Catch != nil:
			if err := b.buildTrap(item.Catch); err != nil {
				return nil, err
			}
		}
	}

	return b.body, nil
}

func (b *Builder) declare(decl *grammar.VarDecl) error {
	pos := position(decl.Pos.Line, decl.Pos.Column)
	if _, exists := b.vars[decl.Name]; exists {
		return errors.DuplicateDeclaration("variable", decl.Name, pos)
	}

	typ, err := TypeFromDescriptor(decl.Descriptor)
	if err != nil {
		return errors.InvalidDescriptor(decl.Descriptor, pos, err)
	}

	v := &Variable{Name: decl.Name, Type: typ, Slot: -1}
	if decl.Slot != nil {
		v.Slot = *decl.Slot
	}
	v.AddSubsumed(decl.Subsumes...)

	b.vars[decl.Name] = v
	b.body.Variables = append(b.body.Variables, v)
	return nil
}

func (b *Builder) buildStmt(stmt *grammar.Stmt) (*Instruction, error) {
	inst := &Instruction{
		Label: stmt.Label,
		Pos:   position(stmt.Pos.Line, stmt.Pos.Column),
	}
	if stmt.Label != "" {
		if stmt.Label == endLabel {
			return nil, errors.DuplicateDeclaration("label", stmt.Label, inst.Pos)
		}
		if _, exists := b.labels[stmt.Label]; exists {
			return nil, errors.DuplicateDeclaration("label", stmt.Label, inst.Pos)
		}
		b.labels[stmt.Label] = inst
	}

	var args []*grammar.Arg
	switch {
	case stmt.Goto != nil:
		inst.Kind = KindGoto
	case stmt.If != nil:
		inst.Kind = KindIf
		args = stmt.If.Args
	case stmt.Return != nil:
		inst.Kind = KindReturn
		if stmt.Return.Value != nil {
			args = []*grammar.Arg{stmt.Return.Value}
		}
	case stmt.Throw != nil:
		inst.Kind = KindThrow
		args = []*grammar.Arg{stmt.Throw.Value}
	case stmt.Do != nil:
		inst.Kind = KindEffect
		inst.Op = stmt.Do.Op
		args = stmt.Do.Args
	case stmt.Nop != nil:
		inst.Kind = KindNop
		args = stmt.Nop.Args
	case stmt.Assign != nil:
		inst.Kind = KindAssign
		inst.Op = stmt.Assign.Op
		if inst.Op == string(KindParam) {
			inst.Kind = KindParam
		}
		for _, ref := range stmt.Assign.Defs {
			op, err := b.operand(ref)
			if err != nil {
				return nil, err
			}
			inst.Defs = append(inst.Defs, op)
		}
		args = stmt.Assign.Args
	}

	for _, arg := range args {
		if arg.Ref == nil {
			inst.Args = append(inst.Args, Arg{Literal: arg.Literal})
			continue
		}
		op, err := b.operand(arg.Ref)
		if err != nil {
			return nil, err
		}
		inst.Uses = append(inst.Uses, op)
		inst.Args = append(inst.Args, Arg{Operand: op})
	}

	return inst, nil
}

func (b *Builder) operand(ref *grammar.Ref) (*Operand, error) {
	v, ok := b.vars[ref.Name]
	if !ok {
		declared := make([]string, 0, len(b.body.Variables))
		for _, d := range b.body.Variables {
			declared = append(declared, d.Name)
		}
		return nil, errors.UndefinedVariable(ref.Name, position(ref.Pos.Line, ref.Pos.Column), declared)
	}
	op := &Operand{Var: v, Entry: -1}
	if ref.Entry != nil {
		op.Entry = *ref.Entry
	}
	return op, nil
}

func (b *Builder) resolveTarget(inst *Instruction, stmt *grammar.Stmt) error {
	var label string
	switch {
	case stmt.Goto != nil:
		label = stmt.Goto.Target
	case stmt.If != nil:
		label = stmt.If.Target
	default:
		return nil
	}
	target, ok := b.labels[label]
	if !ok {
		return errors.UndefinedLabel(label, inst.Pos)
	}
	inst.Target = target
	return nil
}

// lookupLabel resolves a range bound; "end" yields nil when allowEnd is set
func (b *Builder) lookupLabel(label string, allowEnd bool, pos errors.Position) (*Instruction, error) {
	if allowEnd && label == endLabel {
		return nil, nil
	}
	inst, ok := b.labels[label]
	if !ok {
		return nil, errors.UndefinedLabel(label, pos)
	}
	return inst, nil
}

func (b *Builder) buildDebug(decl *grammar.DebugDecl) error {
	pos := position(decl.Pos.Line, decl.Pos.Column)
	if _, err := TypeFromDescriptor(decl.Descriptor); err != nil {
		return errors.InvalidDescriptor(decl.Descriptor, pos, err)
	}
	start, err := b.lookupLabel(decl.From, false, pos)
	if err != nil {
		return err
	}
	end, err := b.lookupLabel(decl.To, true, pos)
	if err != nil {
		return err
	}
	b.body.Debug = append(b.body.Debug, &DebugVariable{
		Name:       decl.Name,
		Descriptor: decl.Descriptor,
		Slot:       decl.Slot,
		Start:      start,
		End:        end,
	})
	return nil
}

func (b *Builder) buildTrap(decl *grammar.TrapDecl) error {
	pos := position(decl.Pos.Line, decl.Pos.Column)
	start, err := b.lookupLabel(decl.From, false, pos)
	if err != nil {
		return err
	}
	end, err := b.lookupLabel(decl.To, true, pos)
	if err != nil {
		return err
	}
	handler, err := b.lookupLabel(decl.Handler, false, pos)
	if err != nil {
		return err
	}
	b.body.Traps = append(b.body.Traps, &Trap{Start: start, End: end, Handler: handler})
	return nil
}

func position(line, column int) errors.Position {
	return errors.Position{Line: line, Column: column}
}

