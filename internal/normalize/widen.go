package normalize

import (
	"strings"

	"slotlife/internal/errors"
	"slotlife/internal/ir"
)

// DefaultSyntheticMarker identifies compiler-generated debug entries
const DefaultSyntheticMarker = "$"

// WidthPromoter widens narrow integer variables to the width their debug
// entry declares, so that all occupants of one slot end up in one group.
type WidthPromoter struct {
	marker string
}

// NewWidthPromoter creates the promotion pass. Debug entries whose name
// contains marker are ignored; an empty marker selects the default.
func NewWidthPromoter(marker string) *WidthPromoter {
	if marker == "" {
		marker = DefaultSyntheticMarker
	}
	return &WidthPromoter{marker: marker}
}

func (p *WidthPromoter) Name() string {
	return "Width Promotion"
}

func (p *WidthPromoter) Description() string {
	return "Widens narrow integer variables to their declared debug width"
}

func (p *WidthPromoter) Apply(body *ir.Body) (bool, error) {
	changed, _, err := p.ApplyWithDiagnostics(body)
	return changed, err
}

// ApplyWithDiagnostics widens the body's variables and returns a warning for every
// debug entry whose range had to be skipped
func (p *WidthPromoter) ApplyWithDiagnostics(body *ir.Body) (bool, errors.Diagnostics, error) {
	if len(body.Debug) == 0 || len(body.Instructions) == 0 {
		return false, nil, nil
	}

	g := ir.NewGraph(body)
	tracker := NewSlotTracker(body, g)
	params := paramDefinitions(body)

	var warnings errors.Diagnostics
	changed := false
	for _, entry := range body.Debug {
		if strings.Contains(entry.Name, p.marker) {
			continue
		}
		width := ir.DescriptorWidth(entry.Descriptor)
		if width < 0 {
			continue
		}

		start, end, reason := promotionRange(body, entry, params)
		if reason != "" {
			w := errors.MalformedRange(body.Method, entry.Name, entry.Slot, reason)
			warnings = append(warnings, w)
			log.Warningf("%s", w.Error())
			continue
		}

		for idx := start.Index; idx <= end.Index; idx++ {
			inst := body.Instructions[idx]
			occupant, ok := tracker.Occupant(inst, entry.Slot)
			if !ok {
				if inst != start {
					log.Debugf("%s: no variable in slot %d before instruction %d (%s)", body.Method, entry.Slot, idx, entry.Name)
				}
				continue
			}

			have := ir.Width(occupant.Type)
			if have < 0 {
				log.Debugf("%s: %s in slot %d has non-integral type %s", body.Method, occupant.Name, entry.Slot, occupant.Type)
				continue
			}
			if have >= width {
				continue
			}

			t, err := ir.TypeFromDescriptor(entry.Descriptor)
			if err != nil {
				return changed, warnings, err
			}
			log.Debugf("%s: widening %s from %s to %s", body.Method, occupant.Name, occupant.Type, t)
			occupant.Type = t
			changed = true
		}
	}
	return changed, warnings, nil
}

// paramDefinitions maps a slot to the instruction defining it as a parameter
func paramDefinitions(body *ir.Body) map[int]*ir.Instruction {
	params := make(map[int]*ir.Instruction)
	for _, inst := range body.Instructions {
		if !inst.IsParam() {
			continue
		}
		if def := inst.Def(); def != nil && def.Var.Slot >= 0 {
			params[def.Var.Slot] = inst
		}
	}
	return params
}

// promotionRange returns the inclusive instruction range an entry applies
// to, or a reason why the entry's range is malformed
func promotionRange(body *ir.Body, entry *ir.DebugVariable, params map[int]*ir.Instruction) (*ir.Instruction, *ir.Instruction, string) {
	start := params[entry.Slot]
	if start == nil {
		start = entry.Start
	}
	if !body.Contains(start) {
		return nil, nil, "start instruction is not part of the body"
	}

	var end *ir.Instruction
	switch {
	case entry.End == nil:
		end = body.Last()
	case !body.Contains(entry.End):
		return nil, nil, "end instruction is not part of the body"
	case entry.End == start:
		end = start
	case entry.End.Index == 0:
		return nil, nil, "end precedes start"
	default:
		end = body.Instructions[entry.End.Index-1]
	}

	if end.Index < start.Index {
		return nil, nil, "end precedes start"
	}
	return start, end, ""
}
