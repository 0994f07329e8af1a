package normalize

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"slotlife/internal/dataflow"
	"slotlife/internal/errors"
	"slotlife/internal/ir"
)

// web is a maximal set of operands connected through def-use chains.
// Operands appear in discovery order; the first one is always a definition.
type web struct {
	operands []webOperand
	entries  []int // debug table indices its operands resolved to
}

type webOperand struct {
	inst *ir.Instruction
	op   *ir.Operand
	def  bool
}

// origin is the variable the web's operands referred to before splitting
func (w *web) origin() *ir.Variable {
	return w.operands[0].op.Var
}

func (w *web) absorb(other *web) {
	w.operands = append(w.operands, other.operands...)
}

// Splitter gives every web of a variable its own variable, then merges webs
// that the debug table shows to be one source-level variable.
type Splitter struct{}

// NewSplitter creates the web splitting pass
func NewSplitter() *Splitter {
	return &Splitter{}
}

func (s *Splitter) Name() string {
	return "Web Splitting"
}

func (s *Splitter) Description() string {
	return "Splits variables into def-use webs and merges webs of one debug variable"
}

// Apply splits the body's variables. Nothing is rewritten when the body
// holds an instruction with more than one definition operand.
func (s *Splitter) Apply(body *ir.Body) (bool, error) {
	if err := checkSingleDefinitions(body); err != nil {
		return false, err
	}

	du := dataflow.NewDefUse(body, ir.NewGraph(body))
	webs := buildWebs(body, du)
	webs = mergeWebs(body, webs)
	log.Debugf("%s: %d webs after debug reconciliation", body.Method, len(webs))
	return assignWebs(body, webs), nil
}

func checkSingleDefinitions(body *ir.Body) error {
	for idx, inst := range body.Instructions {
		if len(inst.Defs) <= 1 {
			continue
		}
		names := make([]string, len(inst.Defs))
		for i, d := range inst.Defs {
			names[i] = d.Var.Name
		}
		return errors.MultipleDefinitions(body.Method, idx, names, inst.Pos)
	}
	return nil
}

// buildWebs grows one web per unclaimed definition operand, in body order.
// Both worklists are FIFO queues.
func buildWebs(body *ir.Body, du *dataflow.DefUse) []*web {
	claimed := mapset.NewThreadUnsafeSet[*ir.Operand]()
	var webs []*web

	for _, seed := range body.Instructions {
		def := seed.Def()
		if def == nil || !claimed.Add(def) {
			continue
		}

		w := &web{}
		defs := []*ir.Instruction{seed}
		var uses []dataflow.UseSite

		for len(defs) > 0 || len(uses) > 0 {
			if len(defs) > 0 {
				d := defs[0]
				defs = defs[1:]
				w.operands = append(w.operands, webOperand{inst: d, op: d.Def(), def: true})
				for _, u := range du.UsesOf(d) {
					if claimed.Add(u.Operand) {
						uses = append(uses, u)
					}
				}
			}

			if len(uses) > 0 {
				u := uses[0]
				uses = uses[1:]
				w.operands = append(w.operands, webOperand{inst: u.Inst, op: u.Operand})
				for _, d := range du.DefsOfAt(u.Operand.Var, u.Inst) {
					if claimed.Add(d.Def()) {
						defs = append(defs, d)
					}
				}
			}
		}
		webs = append(webs, w)
	}
	return webs
}

// assignWebs gives the first web of each variable the variable itself and
// every later web a fresh clone, then rewrites the operands.
func assignWebs(body *ir.Body, webs []*web) bool {
	kept := mapset.NewThreadUnsafeSet[*ir.Variable]()
	taken := mapset.NewThreadUnsafeSet[string]()
	for _, v := range body.Variables {
		taken.Add(v.Name)
	}
	counters := make(map[*ir.Variable]int)

	changed := false
	for _, w := range webs {
		origin := w.origin()
		target := origin
		if !kept.Add(origin) {
			target = origin.Clone(cloneName(origin, counters, taken))
			body.Variables = append(body.Variables, target)
			changed = true
			log.Debugf("%s: split %s into %s", body.Method, origin.Name, target.Name)
		}

		for _, wo := range w.operands {
			if wo.op.Var != target {
				wo.op.Var = target
				changed = true
			}
		}

		before := len(target.Subsumed)
		target.AddSubsumed(w.entries...)
		changed = changed || len(target.Subsumed) != before
	}
	return changed
}

// cloneName returns name#n for the next free n, starting at 2
func cloneName(v *ir.Variable, counters map[*ir.Variable]int, taken mapset.Set[string]) string {
	n, ok := counters[v]
	if !ok {
		n = 1
	}
	for {
		n++
		name := fmt.Sprintf("%s#%d", v.Name, n)
		if taken.Add(name) {
			counters[v] = n
			return name
		}
	}
}
