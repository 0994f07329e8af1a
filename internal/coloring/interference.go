package coloring

import (
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"

	"slotlife/internal/dataflow"
	"slotlife/internal/ir"
)

// Interference is the undirected "simultaneously live" relation between variables.
//
// Two variables interfere when both are live before some instruction, or
// both belong to the set formed by what is live after an instruction plus
// the variable it defines. A dead store therefore still interferes with
// everything live across it.
type Interference struct {
	order     map[*ir.Variable]int
	neighbors map[*ir.Variable]mapset.Set[*ir.Variable]
}

// NewInterference builds the relation from complete liveness
func NewInterference(live *dataflow.Liveness) *Interference {
	g := &Interference{
		order:     make(map[*ir.Variable]int),
		neighbors: make(map[*ir.Variable]mapset.Set[*ir.Variable]),
	}
	for i, v := range live.Variables() {
		g.order[v] = i
		g.neighbors[v] = mapset.NewThreadUnsafeSet[*ir.Variable]()
	}

	body := live.Body()
	for _, inst := range body.Instructions {
		g.clique(live.LiveBefore(inst))

		after := live.LiveAfter(inst)
		for _, d := range inst.Defs {
			if !live.IsLiveAfter(d.Var, inst) {
				after = append(after, d.Var)
			}
		}
		g.clique(after)
	}
	return g
}

func (g *Interference) clique(vars []*ir.Variable) {
	for i, a := range vars {
		for _, b := range vars[i+1:] {
			g.add(a, b)
		}
	}
}

func (g *Interference) add(a, b *ir.Variable) {
	if a == b {
		return
	}
	g.neighbors[a].Add(b)
	g.neighbors[b].Add(a)
}

// Interferes reports whether a and b are simultaneously live somewhere
func (g *Interference) Interferes(a, b *ir.Variable) bool {
	n, ok := g.neighbors[a]
	return ok && n.Contains(b)
}

// Neighbors returns the variables interfering with v
func (g *Interference) Neighbors(v *ir.Variable) mapset.Set[*ir.Variable] {
	if n, ok := g.neighbors[v]; ok {
		return n
	}
	return mapset.NewThreadUnsafeSet[*ir.Variable]()
}

// Degree returns the number of variables interfering with v
func (g *Interference) Degree(v *ir.Variable) int {
	return g.Neighbors(v).Cardinality()
}

// Collision returns the first pair of interfering variables of one group
// that share a color, scanning in liveness order
func (g *Interference) Collision(groups map[*ir.Variable]ir.Group, colors map[*ir.Variable]int) (*ir.Variable, *ir.Variable, bool) {
	vars := make([]*ir.Variable, 0, len(groups))
	for v := range groups {
		vars = append(vars, v)
	}
	slices.SortFunc(vars, func(a, b *ir.Variable) int {
		return rank(g, a) - rank(g, b)
	})

	for i, a := range vars {
		for _, b := range vars[i+1:] {
			if groups[a] != groups[b] || !g.Interferes(a, b) {
				continue
			}
			ca, okA := colors[a]
			cb, okB := colors[b]
			if okA && okB && ca == cb {
				return a, b, true
			}
		}
	}
	return nil, nil, false
}
