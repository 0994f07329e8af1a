package ir

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Printer renders bodies in the same text format the grammar package parses
type Printer struct {
	indent int
	output strings.Builder
	labels map[*Instruction]string
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the text of every method in the program
func Print(program *Program) string {
	p := NewPrinter()
	for i, body := range program.Methods {
		if i > 0 {
			p.writeLine("")
		}
		p.printBody(body)
	}
	return p.output.String()
}

// PrintBody returns the text of one method body
func PrintBody(body *Body) string {
	p := NewPrinter()
	p.printBody(body)
	return p.output.String()
}

// Helper methods

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("    ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	if format == "" {
		p.output.WriteString("\n")
		return
	}
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printBody(body *Body) {
	body.Renumber()
	p.labels = assignLabels(body)

	p.writeLine("method %s {", body.Method)
	p.indent++

	for _, v := range body.Variables {
		p.writeLine("%s", varDecl(v))
	}
	for _, d := range body.Debug {
		p.writeLine("debug %s : %s @%d from %s to %s;",
			d.Name, strconv.Quote(d.Descriptor), d.Slot, p.label(d.Start), p.label(d.End))
	}
	for _, t := range body.Traps {
		p.writeLine("catch %s to %s with %s;", p.label(t.Start), p.label(t.End), p.label(t.Handler))
	}
	for _, inst := range body.Instructions {
		if name, ok := p.labels[inst]; ok {
			p.writeLine("%s: %s;", name, p.statement(inst))
		} else {
			p.writeLine("%s;", p.statement(inst))
		}
	}

	p.indent--
	p.writeLine("}")
}

func varDecl(v *Variable) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("var %s : %s", v.Name, strconv.Quote(v.Type.String())))
	if v.Slot >= 0 {
		b.WriteString(fmt.Sprintf(" @%d", v.Slot))
	}
	if len(v.Subsumed) > 0 {
		entries := make([]string, len(v.Subsumed))
		for i, e := range v.Subsumed {
			entries[i] = strconv.Itoa(e)
		}
		b.WriteString(" subsumes " + strings.Join(entries, ", "))
	}
	b.WriteString(";")
	return b.String()
}

func (p *Printer) label(inst *Instruction) string {
	if inst == nil {
		return endLabel
	}
	return p.labels[inst]
}

// statement renders an instruction without its label or terminator
func (p *Printer) statement(inst *Instruction) string {
	args := argsString(inst.Args)
	switch inst.Kind {
	case KindGoto:
		return "goto " + p.label(inst.Target)
	case KindIf:
		return fmt.Sprintf("if %s goto %s", args, p.label(inst.Target))
	case KindReturn, KindThrow, KindNop:
		if args == "" {
			return string(inst.Kind)
		}
		return string(inst.Kind) + " " + args
	case KindEffect:
		if args == "" {
			return "do " + inst.Op
		}
		return fmt.Sprintf("do %s %s", inst.Op, args)
	}

	defs := make([]string, len(inst.Defs))
	for i, d := range inst.Defs {
		defs[i] = operandString(d)
	}
	if args == "" {
		return fmt.Sprintf("%s = %s", strings.Join(defs, ", "), inst.Op)
	}
	return fmt.Sprintf("%s = %s %s", strings.Join(defs, ", "), inst.Op, args)
}

func operandString(op *Operand) string {
	if op.Entry >= 0 {
		return fmt.Sprintf("%s[%d]", op.Var.Name, op.Entry)
	}
	return op.Var.Name
}

func argsString(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a.Operand != nil {
			parts[i] = operandString(a.Operand)
		} else {
			parts[i] = a.Literal
		}
	}
	return strings.Join(parts, ", ")
}

// assignLabels names every instruction that is referenced by a branch, a
// debug range or a trap. Existing labels are kept; others get L<index>.
func assignLabels(body *Body) map[*Instruction]string {
	labels := make(map[*Instruction]string)
	taken := make(map[string]bool)
	for _, inst := range body.Instructions {
		if inst.Label != "" {
			labels[inst] = inst.Label
			taken[inst.Label] = true
		}
	}

	need := func(inst *Instruction) {
		if inst == nil {
			return
		}
		if _, ok := labels[inst]; ok {
			return
		}
		name := fmt.Sprintf("L%d", inst.Index)
		for taken[name] {
			name += "_"
		}
		taken[name] = true
		labels[inst] = name
	}

	for _, inst := range body.Instructions {
		need(inst.Target)
	}
	for _, d := range body.Debug {
		need(d.Start)
		need(d.End)
	}
	for _, t := range body.Traps {
		need(t.Start)
		need(t.End)
		need(t.Handler)
	}
	return labels
}

// DOT renders the control flow graph of a body for Graphviz. Exceptional
// edges are dashed.
func DOT(body *Body) []byte {
	g := NewGraph(body)
	p := NewPrinter()
	p.labels = assignLabels(body)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fmt.Fprintf(w, "digraph %q {\n", body.Method)
	fmt.Fprintln(w, "  node [shape=box, fontname=\"monospace\"];")
	for _, inst := range body.Instructions {
		label := fmt.Sprintf("%d: %s", inst.Index, p.statement(inst))
		if name, ok := p.labels[inst]; ok {
			label = name + "\n" + label
		}
		fmt.Fprintf(w, "  n%d [label=\"%s\"];\n", inst.Index, escapeDOT(label))
	}
	for _, inst := range body.Instructions {
		for _, succ := range g.Successors(inst) {
			if g.Exceptional(inst, succ) {
				fmt.Fprintf(w, "  n%d -> n%d [style=dashed];\n", inst.Index, succ.Index)
			} else {
				fmt.Fprintf(w, "  n%d -> n%d;\n", inst.Index, succ.Index)
			}
		}
	}
	fmt.Fprintln(w, "}")
	w.Flush()
	return buf.Bytes()
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func (p *Program) String() string { return Print(p) }
func (b *Body) String() string    { return PrintBody(b) }
