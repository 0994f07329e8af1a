package dataflow

import (
	"github.com/willf/bitset"

	"slotlife/internal/ir"
)

// Live variables per instruction:
//
//	OUT[i] = Union(s a successor of i) IN[s]
//	IN[i]  = use[i] Union (OUT[i] - def[i])
//
// A handler reached over an exceptional edge may observe the state before
// i stores its definition, so its IN set flows into IN[i] unfiltered.

// Liveness holds live-before and live-after sets for every instruction of a body
type Liveness struct {
	body  *ir.Body
	vars  []*ir.Variable // variables whose indices appear in bitsets
	index map[*ir.Variable]uint
	ins   map[*ir.Instruction]*bitset.BitSet
	outs  map[*ir.Instruction]*bitset.BitSet
}

// NewLiveness computes liveness for body over g
func NewLiveness(body *ir.Body, g ir.Graph) *Liveness {
	l := &Liveness{
		body:  body,
		index: make(map[*ir.Variable]uint),
		ins:   make(map[*ir.Instruction]*bitset.BitSet, len(body.Instructions)),
		outs:  make(map[*ir.Instruction]*bitset.BitSet, len(body.Instructions)),
	}

	for _, v := range body.Variables {
		l.add(v)
	}

	for _, inst := range body.Instructions {
		for _, op := range inst.Operands() {
			l.add(op.Var)
		}
	}
	n := uint(len(l.vars))

	def := make(map[*ir.Instruction]*bitset.BitSet, len(body.Instructions))
	use := make(map[*ir.Instruction]*bitset.BitSet, len(body.Instructions))
	for _, inst := range body.Instructions {
		def[inst] = bitset.New(n)
		use[inst] = bitset.New(n)
		for _, d := range inst.Defs {
			def[inst].Set(l.index[d.Var])
		}
		for _, u := range inst.Uses {
			use[inst].Set(l.index[u.Var])
		}
		l.ins[inst] = bitset.New(n)
		l.outs[inst] = bitset.New(n)
	}

	eg, _ := g.(ir.ExceptionalGraph)
	rounds := 0
	for {
		var change bool
		rounds++

		// backward problem, visit in reverse body order
		for idx := len(body.Instructions) - 1; idx >= 0; idx-- {
			inst := body.Instructions[idx]

			out := bitset.New(n)
			var thrown *bitset.BitSet
			for _, s := range g.Successors(inst) {
				out.InPlaceUnion(l.ins[s])
				if eg != nil && eg.Exceptional(inst, s) {
					if thrown == nil {
						thrown = bitset.New(n)
					}
					thrown.InPlaceUnion(l.ins[s])
				}
			}
			l.outs[inst] = out

			old := l.ins[inst]
			in := use[inst].Union(out.Difference(def[inst]))
			if thrown != nil {
				in.InPlaceUnion(thrown)
			}
			l.ins[inst] = in

			change = change || !old.Equal(in)
		}

		if !change {
			break
		}
	}
	log.Debugf("%s: liveness converged after %d rounds (%d variables)", body.Method, rounds, len(l.vars))
	return l
}

func (l *Liveness) add(v *ir.Variable) uint {
	k, ok := l.index[v]
	if !ok {
		k = uint(len(l.vars))
		l.index[v] = k
		l.vars = append(l.vars, v)
	}
	return k
}

// Variables returns every variable the analysis knows about, in index order
func (l *Liveness) Variables() []*ir.Variable {
	return l.vars
}

// Index returns the bit index of v
func (l *Liveness) Index(v *ir.Variable) (uint, bool) {
	k, ok := l.index[v]
	return k, ok
}

// Body returns the analysed body
func (l *Liveness) Body() *ir.Body {
	return l.body
}

// LiveBefore returns the variables live on entry to inst, in index order
func (l *Liveness) LiveBefore(inst *ir.Instruction) []*ir.Variable {
	return l.decode(l.ins[inst])
}

// LiveAfter returns the variables live on exit from inst, in index order
func (l *Liveness) LiveAfter(inst *ir.Instruction) []*ir.Variable {
	return l.decode(l.outs[inst])
}

// BeforeSet returns the raw live-before bit vector (nil when inst is unknown)
func (l *Liveness) BeforeSet(inst *ir.Instruction) *bitset.BitSet {
	return l.ins[inst]
}

// AfterSet returns the raw live-after bit vector (nil when inst is unknown)
func (l *Liveness) AfterSet(inst *ir.Instruction) *bitset.BitSet {
	return l.outs[inst]
}

// IsLiveAfter reports whether v is live on exit from inst
func (l *Liveness) IsLiveAfter(v *ir.Variable, inst *ir.Instruction) bool {
	k, ok := l.index[v]
	set := l.outs[inst]
	return ok && set != nil && set.Test(k)
}

// Complete reports whether the analysis still covers the body: every
// instruction has sets and every operand variable has an index. Mutating
// the body after the analysis can make it incomplete.
func (l *Liveness) Complete() bool {
	for _, inst := range l.body.Instructions {
		if _, ok := l.ins[inst]; !ok {
			return false
		}
		for _, op := range inst.Operands() {
			if _, ok := l.index[op.Var]; !ok {
				return false
			}
		}
	}
	return true
}

func (l *Liveness) decode(set *bitset.BitSet) []*ir.Variable {
	if set == nil {
		return nil
	}
	var out []*ir.Variable
	for i, e := set.NextSet(0); e; i, e = set.NextSet(i + 1) {
		out = append(out, l.vars[i])
	}
	return out
}
