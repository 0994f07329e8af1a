package normalize

import (
	"context"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"slotlife/internal/config"
	"slotlife/internal/errors"
	"slotlife/internal/ir"
)

var log = commonlog.GetLogger("slotlife.normalize")

// Pass is one transformation of a method body. Passes hold configuration
// only, so one instance may serve several bodies concurrently.
type Pass interface {
	Name() string
	Description() string
	Apply(body *ir.Body) (bool, error) // Returns true if changes were made
}

// Diagnoser is implemented by passes that report non-fatal diagnostics
type Diagnoser interface {
	ApplyWithDiagnostics(body *ir.Body) (bool, errors.Diagnostics, error)
}

// Result summarizes the pipeline run over one body
type Result struct {
	Method   string
	Changed  []string // names of the passes that changed the body
	Warnings errors.Diagnostics
}

// Pipeline manages the sequence of normalization passes
type Pipeline struct {
	passes  []Pass
	workers int
}

// NewPipeline creates a pipeline running the passes cfg enables, in the
// order split, promote, coalesce
func NewPipeline(cfg *config.Config, opts ...CoalesceOption) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Pipeline{workers: cfg.Pipeline.Workers}

	if cfg.Pipeline.Split {
		p.AddPass(NewSplitter())
	}
	if cfg.Pipeline.Promote {
		p.AddPass(NewWidthPromoter(cfg.Debug.SyntheticMarker))
	}
	if cfg.Pipeline.Coalesce {
		opts = append([]CoalesceOption{WithVerification(cfg.Pipeline.VerifyColoring)}, opts...)
		p.AddPass(NewCoalescer(opts...))
	}
	return p
}

// AddPass appends a pass to the pipeline
func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

// Passes returns the configured passes in execution order
func (p *Pipeline) Passes() []Pass {
	return p.passes
}

// Run executes all passes on one body. The first failing pass stops the run.
func (p *Pipeline) Run(body *ir.Body) (*Result, error) {
	log.Infof("%s: running %d passes", body.Method, len(p.passes))
	result := &Result{Method: body.Method}

	for _, pass := range p.passes {
		var changed bool
		var err error
		if dp, ok := pass.(Diagnoser); ok {
			var warnings errors.Diagnostics
			changed, warnings, err = dp.ApplyWithDiagnostics(body)
			result.Warnings = append(result.Warnings, warnings...)
		} else {
			changed, err = pass.Apply(body)
		}
		if err != nil {
			log.Errorf("%s: %s failed: %s", body.Method, pass.Name(), err)
			return result, err
		}

		if changed {
			log.Debugf("%s: %s applied", body.Method, pass.Name())
			result.Changed = append(result.Changed, pass.Name())
		} else {
			log.Debugf("%s: %s made no changes", body.Method, pass.Name())
		}
	}
	return result, nil
}

// RunAll runs the pipeline over independent bodies in parallel. Results are
// in the order of bodies. The first error cancels bodies not yet started.
func (p *Pipeline) RunAll(ctx context.Context, bodies []*ir.Body) ([]*Result, error) {
	results := make([]*Result, len(bodies))

	g, ctx := errgroup.WithContext(ctx)
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}
	for i, body := range bodies {
		i, body := i, body
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := p.Run(body)
			results[i] = result
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
