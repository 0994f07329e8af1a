package ir

// Graph is the control flow view of one body
type Graph interface {
	Entries() []*Instruction
	Successors(inst *Instruction) []*Instruction
	Predecessors(inst *Instruction) []*Instruction
}

// InstructionGraph is an instruction-level control flow graph with
// exceptional edges from every trapped instruction to its handler
type InstructionGraph struct {
	body        *Body
	succs       map[*Instruction][]*Instruction
	preds       map[*Instruction][]*Instruction
	exceptional map[edge]bool
}

type edge struct {
	from, to *Instruction
}

// ExceptionalGraph is implemented by graphs that distinguish edges which
// exist only because an instruction may throw into a handler
type ExceptionalGraph interface {
	Graph
	Exceptional(from, to *Instruction) bool
}

var _ ExceptionalGraph = (*InstructionGraph)(nil)

// NewGraph builds the control flow graph of a body. The body is renumbered.
func NewGraph(body *Body) *InstructionGraph {
	body.Renumber()
	g := &InstructionGraph{
		body:        body,
		succs:       make(map[*Instruction][]*Instruction, len(body.Instructions)),
		preds:       make(map[*Instruction][]*Instruction, len(body.Instructions)),
		exceptional: make(map[edge]bool),
	}

	for idx, inst := range body.Instructions {
		if inst.Target != nil {
			g.addEdge(inst, inst.Target)
		}
		if inst.FallsThrough() && idx+1 < len(body.Instructions) {
			g.addEdge(inst, body.Instructions[idx+1])
		}
	}

	for _, trap := range body.Traps {
		if !body.Contains(trap.Start) || !body.Contains(trap.Handler) {
			continue
		}
		end := len(body.Instructions)
		if trap.End != nil && body.Contains(trap.End) {
			end = trap.End.Index
		}
		for idx := trap.Start.Index; idx < end; idx++ {
			if g.addEdge(body.Instructions[idx], trap.Handler) {
				g.exceptional[edge{body.Instructions[idx], trap.Handler}] = true
			}
		}
	}

	return g
}

// addEdge reports whether the edge is new
func (g *InstructionGraph) addEdge(from, to *Instruction) bool {
	for _, s := range g.succs[from] {
		if s == to {
			return false
		}
	}
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
	return true
}

// Entries returns the single entry instruction, or nothing for an empty body
func (g *InstructionGraph) Entries() []*Instruction {
	if len(g.body.Instructions) == 0 {
		return nil
	}
	return []*Instruction{g.body.Instructions[0]}
}

func (g *InstructionGraph) Successors(inst *Instruction) []*Instruction {
	return g.succs[inst]
}

func (g *InstructionGraph) Predecessors(inst *Instruction) []*Instruction {
	return g.preds[inst]
}

// Exceptional reports whether from reaches to only through a trap
func (g *InstructionGraph) Exceptional(from, to *Instruction) bool {
	return g.exceptional[edge{from, to}]
}

// Reachable returns the set of instructions reachable from the entries
func Reachable(g Graph) map[*Instruction]bool {
	seen := make(map[*Instruction]bool)
	worklist := append([]*Instruction(nil), g.Entries()...)
	for _, e := range worklist {
		seen[e] = true
	}
	for len(worklist) > 0 {
		curr := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, s := range g.Successors(curr) {
			if !seen[s] {
				seen[s] = true
				worklist = append(worklist, s)
			}
		}
	}
	return seen
}
