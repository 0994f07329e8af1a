package normalize

import (
	mapset "github.com/deckarep/golang-set/v2"

	"slotlife/internal/coloring"
	"slotlife/internal/dataflow"
	"slotlife/internal/errors"
	"slotlife/internal/ir"
)

// Colorer assigns every variable in groups a color such that interfering
// variables of the same group never share one. counts holds the number of
// colors used per group. Implementations must be safe for concurrent use.
type Colorer interface {
	AssignColors(groups map[*ir.Variable]ir.Group, live *dataflow.Liveness) (colors map[*ir.Variable]int, counts map[ir.Group]int)
}

var _ Colorer = coloring.Greedy{}

// Coalescer packs non-interfering variables of one group into a single
// variable and drops declarations that are no longer referenced.
type Coalescer struct {
	colorer Colorer
	verify  bool
}

// CoalesceOption configures a Coalescer
type CoalesceOption func(*Coalescer)

// WithColorer replaces the default greedy colorer
func WithColorer(c Colorer) CoalesceOption {
	return func(co *Coalescer) {
		co.colorer = c
	}
}

// WithVerification toggles checking the coloring against the interference relation
func WithVerification(on bool) CoalesceOption {
	return func(co *Coalescer) {
		co.verify = on
	}
}

// NewCoalescer creates the coalescing pass
func NewCoalescer(opts ...CoalesceOption) *Coalescer {
	c := &Coalescer{colorer: coloring.NewGreedy(), verify: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coalescer) Name() string {
	return "Coalescing"
}

func (c *Coalescer) Description() string {
	return "Merges non-interfering variables of the same type and slot"
}

func (c *Coalescer) Apply(body *ir.Body) (bool, error) {
	return c.Coalesce(body, dataflow.NewLiveness(body, ir.NewGraph(body)))
}

// Coalesce packs the body's variables using live, which must describe the
// body in its current state
func (c *Coalescer) Coalesce(body *ir.Body, live *dataflow.Liveness) (bool, error) {
	if live.Body() != body || !live.Complete() {
		return false, errors.IncompleteLiveness(body.Method)
	}

	groups := make(map[*ir.Variable]ir.Group)
	for _, inst := range body.Instructions {
		for _, op := range inst.Operands() {
			if _, ok := groups[op.Var]; !ok {
				groups[op.Var] = ir.GroupOf(op.Var)
			}
		}
	}

	colors, counts := c.colorer.AssignColors(groups, live)
	for v := range groups {
		if _, ok := colors[v]; !ok {
			return false, errors.MissingColor(body.Method, v.Name)
		}
	}
	if c.verify {
		if a, b, found := coloring.NewInterference(live).Collision(groups, colors); found {
			return false, errors.ColoringCollision(body.Method, groups[a].String(), a.Name, b.Name, colors[a])
		}
	}
	log.Debugf("%s: %d groups colored", body.Method, len(counts))

	replacements := c.pick(body, groups, colors)
	changed := rewrite(body, replacements)
	changed = prune(body, replacements) || changed
	return changed, nil
}

type colorKey struct {
	group ir.Group
	color int
}

// pick chooses, per group and color, the first variable in declaration
// order as representative and maps every other member to it
func (c *Coalescer) pick(body *ir.Body, groups map[*ir.Variable]ir.Group, colors map[*ir.Variable]int) map[*ir.Variable]*ir.Variable {
	order := make([]*ir.Variable, 0, len(groups))
	seen := mapset.NewThreadUnsafeSet[*ir.Variable]()
	for _, v := range body.Variables {
		if _, ok := groups[v]; ok && seen.Add(v) {
			order = append(order, v)
		}
	}
	for _, inst := range body.Instructions {
		for _, op := range inst.Operands() {
			if seen.Add(op.Var) {
				order = append(order, op.Var)
			}
		}
	}

	reps := make(map[colorKey]*ir.Variable)
	replacements := make(map[*ir.Variable]*ir.Variable)
	for _, v := range order {
		key := colorKey{group: groups[v], color: colors[v]}
		rep, ok := reps[key]
		if !ok {
			reps[key] = v
			continue
		}
		replacements[v] = rep
		rep.AddSubsumed(v.Subsumed...)
		log.Debugf("%s: coalescing %s into %s", body.Method, v.Name, rep.Name)
	}
	return replacements
}

func rewrite(body *ir.Body, replacements map[*ir.Variable]*ir.Variable) bool {
	if len(replacements) == 0 {
		return false
	}
	changed := false
	for _, inst := range body.Instructions {
		for _, op := range inst.Operands() {
			if r, ok := replacements[op.Var]; ok {
				op.Var = r
				changed = true
			}
		}
	}
	return changed
}

// prune removes replaced declarations and declarations no operand references
func prune(body *ir.Body, replacements map[*ir.Variable]*ir.Variable) bool {
	referenced := referencedVariables(body)
	kept := body.Variables[:0]
	for _, v := range body.Variables {
		if _, replaced := replacements[v]; replaced || !referenced.Contains(v) {
			continue
		}
		kept = append(kept, v)
	}
	changed := len(kept) != len(body.Variables)
	body.Variables = kept
	return changed
}

func referencedVariables(body *ir.Body) mapset.Set[*ir.Variable] {
	refs := mapset.NewThreadUnsafeSet[*ir.Variable]()
	for _, inst := range body.Instructions {
		for _, op := range inst.Operands() {
			refs.Add(op.Var)
		}
	}
	return refs
}
