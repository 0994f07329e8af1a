package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

func indent(level int) string {
	return strings.Repeat("    ", level)
}

func (f *File) String() string {
	var b strings.Builder
	for i, m := range f.Methods {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.StringWithIndent(0))
	}
	return b.String()
}

func (m *Method) StringWithIndent(level int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%smethod %s {\n", indent(level), m.Name))
	for _, item := range m.Items {
		b.WriteString(item.StringWithIndent(level + 1))
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func (i *Item) StringWithIndent(level int) string {
	switch {
	case i.Var != nil:
		return indent(level) + i.Var.String() + "\n"
	case i.Debug != nil:
		return indent(level) + i.Debug.String() + "\n"
	case i.Catch != nil:
		return indent(level) + i.Catch.String() + "\n"
	case i.Stmt != nil:
		return indent(level) + i.Stmt.String() + "\n"
	}
	return ""
}

func (v *VarDecl) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("var %s : %s", v.Name, strconv.Quote(v.Descriptor)))
	if v.Slot != nil {
		b.WriteString(fmt.Sprintf(" @%d", *v.Slot))
	}
	if len(v.Subsumes) > 0 {
		entries := make([]string, len(v.Subsumes))
		for i, e := range v.Subsumes {
			entries[i] = strconv.Itoa(e)
		}
		b.WriteString(" subsumes " + strings.Join(entries, ", "))
	}
	b.WriteString(";")
	return b.String()
}

func (d *DebugDecl) String() string {
	return fmt.Sprintf("debug %s : %s @%d from %s to %s;", d.Name, strconv.Quote(d.Descriptor), d.Slot, d.From, d.To)
}

func (t *TrapDecl) String() string {
	return fmt.Sprintf("catch %s to %s with %s;", t.From, t.To, t.Handler)
}

func (s *Stmt) String() string {
	var body string
	switch {
	case s.Goto != nil:
		body = "goto " + s.Goto.Target
	case s.If != nil:
		body = fmt.Sprintf("if %s goto %s", argList(s.If.Args), s.If.Target)
	case s.Return != nil:
		body = "return"
		if s.Return.Value != nil {
			body += " " + s.Return.Value.String()
		}
	case s.Throw != nil:
		body = "throw " + s.Throw.Value.String()
	case s.Do != nil:
		body = "do " + s.Do.Op
		if len(s.Do.Args) > 0 {
			body += " " + argList(s.Do.Args)
		}
	case s.Nop != nil:
		body = "nop"
		if len(s.Nop.Args) > 0 {
			body += " " + argList(s.Nop.Args)
		}
	case s.Assign != nil:
		defs := make([]string, len(s.Assign.Defs))
		for i, d := range s.Assign.Defs {
			defs[i] = d.String()
		}
		body = fmt.Sprintf("%s = %s", strings.Join(defs, ", "), s.Assign.Op)
		if len(s.Assign.Args) > 0 {
			body += " " + argList(s.Assign.Args)
		}
	}
	if s.Label != "" {
		return fmt.Sprintf("%s: %s;", s.Label, body)
	}
	return body + ";"
}

func (a *Arg) String() string {
	if a.Ref != nil {
		return a.Ref.String()
	}
	return a.Literal
}

func (r *Ref) String() string {
	if r.Entry != nil {
		return fmt.Sprintf("%s[%d]", r.Name, *r.Entry)
	}
	return r.Name
}

func argList(args []*Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
