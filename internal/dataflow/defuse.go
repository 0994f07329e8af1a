package dataflow

import (
	"github.com/tliron/commonlog"
	"github.com/willf/bitset"

	"slotlife/internal/ir"
)

var log = commonlog.GetLogger("slotlife.dataflow")

// Reaching definitions over an instruction-level control flow graph,
// iterated to a fixed point:
//
//	IN[i]  = Union(p a predecessor of i) OUT[p]
//	OUT[i] = gen[i] Union (IN[i] - kill[i])
//
// A definition point is an instruction carrying definition operands. An
// exceptional edge also carries IN[p], since the handler may be entered
// before p stores its result.

// UseSite is one use operand reached by a definition
type UseSite struct {
	Inst    *ir.Instruction
	Operand *ir.Operand
}

// DefUse answers reaching-definition and use queries for one body state
type DefUse struct {
	defs     []*ir.Instruction // definition points whose indices appear in bitsets
	defIndex map[*ir.Instruction]uint
	varDefs  map[*ir.Variable]*bitset.BitSet
	ins      map[*ir.Instruction]*bitset.BitSet
	uses     map[*ir.Instruction][]UseSite
}

// NewDefUse computes reaching definitions for body over g
func NewDefUse(body *ir.Body, g ir.Graph) *DefUse {
	du := &DefUse{
		defIndex: make(map[*ir.Instruction]uint),
		varDefs:  make(map[*ir.Variable]*bitset.BitSet),
		ins:      make(map[*ir.Instruction]*bitset.BitSet, len(body.Instructions)),
		uses:     make(map[*ir.Instruction][]UseSite),
	}

	for _, inst := range body.Instructions {
		if len(inst.Defs) == 0 {
			continue
		}
		k := uint(len(du.defs))
		du.defIndex[inst] = k
		du.defs = append(du.defs, inst)
		for _, d := range inst.Defs {
			set, ok := du.varDefs[d.Var]
			if !ok {
				set = new(bitset.BitSet)
				du.varDefs[d.Var] = set
			}
			set.Set(k)
		}
	}

	du.solve(body, g)
	du.collectUses(body)
	return du
}

func (du *DefUse) solve(body *ir.Body, g ir.Graph) {
	n := uint(len(du.defs))
	gen := make(map[*ir.Instruction]*bitset.BitSet, len(du.defs))
	kill := make(map[*ir.Instruction]*bitset.BitSet, len(du.defs))
	for _, inst := range du.defs {
		gen[inst] = bitset.New(n).Set(du.defIndex[inst])
		k := bitset.New(n)
		for _, d := range inst.Defs {
			k.InPlaceUnion(du.varDefs[d.Var])
		}
		kill[inst] = k
	}

	outs := make(map[*ir.Instruction]*bitset.BitSet, len(body.Instructions))
	for _, inst := range body.Instructions {
		du.ins[inst] = bitset.New(n)
		outs[inst] = bitset.New(n)
	}

	eg, _ := g.(ir.ExceptionalGraph)
	rounds := 0
	for {
		var change bool
		rounds++

		for _, inst := range body.Instructions {
			in := bitset.New(n)
			for _, p := range g.Predecessors(inst) {
				in.InPlaceUnion(outs[p])
				if eg != nil && eg.Exceptional(p, inst) {
					in.InPlaceUnion(du.ins[p])
				}
			}
			du.ins[inst] = in

			out := in
			if gen[inst] != nil {
				out = gen[inst].Union(in.Difference(kill[inst]))
			}
			change = change || !out.Equal(outs[inst])
			outs[inst] = out
		}

		if !change {
			break
		}
	}
	log.Debugf("%s: reaching definitions converged after %d rounds (%d definition points)", body.Method, rounds, n)
}

func (du *DefUse) collectUses(body *ir.Body) {
	for _, inst := range body.Instructions {
		for _, op := range inst.Uses {
			for _, def := range du.DefsOfAt(op.Var, inst) {
				du.uses[def] = append(du.uses[def], UseSite{Inst: inst, Operand: op})
			}
		}
	}
}

// DefsOfAt returns the definitions of v that reach use, in body order
func (du *DefUse) DefsOfAt(v *ir.Variable, use *ir.Instruction) []*ir.Instruction {
	in, ok := du.ins[use]
	vd, defined := du.varDefs[v]
	if !ok || !defined {
		return nil
	}
	reaching := in.Intersection(vd)
	var out []*ir.Instruction
	for i, e := reaching.NextSet(0); e; i, e = reaching.NextSet(i + 1) {
		out = append(out, du.defs[i])
	}
	return out
}

// UsesOf returns the use operands reached by the definition at def, in body order
func (du *DefUse) UsesOf(def *ir.Instruction) []UseSite {
	return du.uses[def]
}
