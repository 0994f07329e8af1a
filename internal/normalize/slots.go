package normalize

import (
	"golang.org/x/exp/maps"

	"slotlife/internal/ir"
)

// SlotMap maps a declared slot to the variable occupying it. Maps recorded
// by the tracker are shared between instructions and never mutated.
type SlotMap map[int]*ir.Variable

// With returns a copy of m in which slot holds v
func (m SlotMap) With(slot int, v *ir.Variable) SlotMap {
	out := maps.Clone(m)
	if out == nil {
		out = make(SlotMap, 1)
	}
	out[slot] = v
	return out
}

// SlotTracker records, for every reachable instruction, which variable
// occupies each declared slot on entry. Each instruction is visited once,
// so at a join the first path to arrive wins.
type SlotTracker struct {
	body      *ir.Body
	before    map[*ir.Instruction]SlotMap
	reachable map[*ir.Instruction]bool
}

type trackFrame struct {
	succs []*ir.Instruction
	next  int
	slots SlotMap
}

// NewSlotTracker walks g depth first from its entries
func NewSlotTracker(body *ir.Body, g ir.Graph) *SlotTracker {
	t := &SlotTracker{
		body:      body,
		before:    make(map[*ir.Instruction]SlotMap, len(body.Instructions)),
		reachable: ir.Reachable(g),
	}

	stack := []trackFrame{{succs: g.Entries(), slots: SlotMap{}}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for f.next < len(f.succs) {
			inst := f.succs[f.next]
			f.next++
			if _, seen := t.before[inst]; seen {
				continue
			}
			t.before[inst] = f.slots

			succs := g.Successors(inst)
			if len(succs) == 0 {
				continue
			}
			if len(succs) == 1 {
				if _, seen := t.before[succs[0]]; seen {
					continue
				}
			}

			slots := f.slots
			if len(inst.Defs) == 1 && inst.Defs[0].Var.Slot >= 0 {
				v := inst.Defs[0].Var
				slots = slots.With(v.Slot, v)
			}

			if f.next < len(f.succs) {
				stack = append(stack, f)
			}
			f = trackFrame{succs: succs, slots: slots}
		}
	}
	return t
}

// Before returns the slot map on entry to inst, or nil when inst was not reached
func (t *SlotTracker) Before(inst *ir.Instruction) SlotMap {
	return t.before[inst]
}

// Occupant returns the variable holding slot on entry to inst
func (t *SlotTracker) Occupant(inst *ir.Instruction, slot int) (*ir.Variable, bool) {
	v, ok := t.before[inst][slot]
	return v, ok
}

// Visited returns the number of instructions with a recorded map
func (t *SlotTracker) Visited() int {
	return len(t.before)
}

// Complete reports whether every reachable instruction was visited
func (t *SlotTracker) Complete() bool {
	for inst := range t.reachable {
		if _, ok := t.before[inst]; !ok {
			return false
		}
	}
	return true
}
