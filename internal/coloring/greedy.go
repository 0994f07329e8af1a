package coloring

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"slotlife/internal/dataflow"
	"slotlife/internal/ir"
)

// Greedy colors each group independently. Variables are visited by
// descending interference degree, ties broken by liveness index, and each
// takes the lowest color not used by an already colored neighbour of the
// same group. Greedy holds no state and is safe for concurrent use.
type Greedy struct{}

// NewGreedy returns the default colorer
func NewGreedy() *Greedy {
	return &Greedy{}
}

// AssignColors colors every variable in groups. counts holds, per group,
// the number of colors used.
func (Greedy) AssignColors(groups map[*ir.Variable]ir.Group, live *dataflow.Liveness) (map[*ir.Variable]int, map[ir.Group]int) {
	graph := NewInterference(live)

	vars := maps.Keys(groups)
	slices.SortFunc(vars, func(a, b *ir.Variable) int {
		if da, db := graph.Degree(a), graph.Degree(b); da != db {
			return db - da
		}
		if ra, rb := rank(graph, a), rank(graph, b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a.Name, b.Name)
	})

	colors := make(map[*ir.Variable]int, len(vars))
	counts := make(map[ir.Group]int)
	for _, v := range vars {
		group := groups[v]

		used := make(map[int]bool)
		for _, n := range graph.Neighbors(v).ToSlice() {
			if c, ok := colors[n]; ok && groups[n] == group {
				used[c] = true
			}
		}

		color := 0
		for used[color] {
			color++
		}
		colors[v] = color
		if color+1 > counts[group] {
			counts[group] = color + 1
		}
	}
	return colors, counts
}

// rank orders variables unknown to the analysis after all known ones
func rank(graph *Interference, v *ir.Variable) int {
	if i, ok := graph.order[v]; ok {
		return i
	}
	return len(graph.order)
}
