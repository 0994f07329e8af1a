package normalize

import (
	"golang.org/x/exp/slices"

	"slotlife/internal/ir"
)

// resolution is the debug table view of one web. entries holds every index
// an operand resolved to, even when the web as a whole is not ok.
type resolution struct {
	entries    []int
	descriptor string
	ok         bool
}

// mergeWebs joins webs of the same pre-split variable whose debug entries
// agree on the descriptor. A web that cannot be resolved, or that lives in a
// stack temporary, stays on its own but still records its entries.
func mergeWebs(body *ir.Body, webs []*web) []*web {
	resolved := make([]resolution, len(webs))
	for i, w := range webs {
		resolved[i] = resolveWeb(body, w)
	}

	merged := make([]bool, len(webs))
	out := make([]*web, 0, len(webs))
	for i, w := range webs {
		if merged[i] {
			continue
		}
		out = append(out, w)

		res := resolved[i]
		w.entries = res.entries
		if !res.ok || w.origin().Slot < 0 {
			continue
		}

		for j := i + 1; j < len(webs); j++ {
			if merged[j] || webs[j].origin() != w.origin() {
				continue
			}
			other := resolved[j]
			if !other.ok || other.descriptor != res.descriptor {
				log.Debugf("%s: keeping webs of %s apart (%q vs %q)", body.Method, w.origin().Name, res.descriptor, other.descriptor)
				continue
			}
			w.absorb(webs[j])
			w.entries = union(w.entries, other.entries)
			merged[j] = true
		}
	}
	return out
}

// resolveWeb maps every operand of w to a debug entry. The result is not ok
// when some operand has no entry or the entries disagree on the descriptor.
func resolveWeb(body *ir.Body, w *web) resolution {
	res := resolution{ok: true}
	for _, wo := range w.operands {
		k, found := resolveOperand(body, wo)
		if !found {
			res.ok = false
			continue
		}
		desc := body.Debug[k].Descriptor
		if res.descriptor == "" {
			res.descriptor = desc
		} else if res.descriptor != desc {
			res.ok = false
		}
		res.entries = union(res.entries, []int{k})
	}
	res.ok = res.ok && len(res.entries) > 0
	return res
}

// resolveOperand returns the debug entry describing one operand: the index
// the front end attached, else an entry of the variable's slot covering the
// instruction. A definition is also described by an entry starting right
// after it, since debug ranges open after the initializing store.
func resolveOperand(body *ir.Body, wo webOperand) (int, bool) {
	if k := wo.op.Entry; k >= 0 && k < len(body.Debug) {
		return k, true
	}
	slot := wo.op.Var.Slot
	if slot < 0 {
		return -1, false
	}

	if k := coveringEntry(body, slot, wo.inst); k >= 0 {
		return k, true
	}
	if wo.def && wo.inst.Index+1 < len(body.Instructions) {
		if k := coveringEntry(body, slot, body.Instructions[wo.inst.Index+1]); k >= 0 {
			return k, true
		}
	}
	return -1, false
}

func coveringEntry(body *ir.Body, slot int, inst *ir.Instruction) int {
	for k, d := range body.Debug {
		if d.Slot == slot && d.Covers(inst) {
			return k
		}
	}
	return -1
}

// union merges two sorted index lists
func union(a, b []int) []int {
	out := append([]int(nil), a...)
	for _, e := range b {
		if pos, found := slices.BinarySearch(out, e); !found {
			out = slices.Insert(out, pos, e)
		}
	}
	return out
}
