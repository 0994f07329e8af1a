package normalize

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotlife/internal/config"
	diag "slotlife/internal/errors"
	"slotlife/internal/ir"
)

const guardedSource = `method guarded {
    var n : "I" @0;
    var i : "I" @1;
    var $c : "int1";
    debug n : "I" @0 from P to end;
    debug i : "I" @1 from L1 to L3;
    catch L1 to L3 with H;
    P: n = param 0;
    i = const 0;
    L1: $c = lt i, n;
    if $c goto L3;
    i[1] = add i, 1;
    goto L1;
    L3: return i;
    H: throw n;
}
`

const mixedSource = `method mixed {
    var x : "I" @3;
    debug x : "I" @3 from A to B;
    debug x : "S" @3 from C to end;
    x = const 1;
    A: do print x;
    B: x = const 2;
    C: do print x;
    return;
}
`

func TestPipelineTwoLoops(t *testing.T) {
	body := load(t, twoLoopsSource)
	in := body.Instructions

	result, err := NewPipeline(config.Default()).Run(body)
	require.NoError(t, err)
	assert.Equal(t, "twoLoops", result.Method)
	assert.Equal(t, []string{"Web Splitting", "Coalescing"}, result.Changed)

	assert.Equal(t, []string{"i", "c"}, names(body.Variables))
	i := body.Variables[0]
	assert.Equal(t, 3, i.Slot)
	assert.Equal(t, []int{0, 1}, i.Subsumed)

	// both loops refer to the one counter
	assert.Same(t, i, in[1].Uses[0].Var)
	assert.Same(t, i, in[6].Uses[0].Var)
	assert.Same(t, in[2].Uses[0].Var, in[7].Uses[0].Var)
}

func TestPipelineMixedDescriptors(t *testing.T) {
	body := load(t, mixedSource)

	_, err := NewPipeline(config.Default()).Run(body)
	require.NoError(t, err)

	// split apart by the debug table, packed back together by type and slot
	require.Equal(t, []string{"x"}, names(body.Variables))
	assert.Equal(t, []int{0, 1}, body.Variables[0].Subsumed)
}

func TestPipelineIdempotent(t *testing.T) {
	sources := map[string]string{
		"twoLoops": twoLoopsSource,
		"mixed":    mixedSource,
		"flags":    flagsSource,
		"guarded":  guardedSource,
		"ranges":   rangesSource,
	}

	for name, source := range sources {
		t.Run(name, func(t *testing.T) {
			body := load(t, source)
			pipeline := NewPipeline(config.Default())

			_, err := pipeline.Run(body)
			require.NoError(t, err)
			once := ir.PrintBody(body)

			result, err := pipeline.Run(body)
			require.NoError(t, err)
			twice := ir.PrintBody(body)
			// a re-split variable is coalesced straight back; nothing else moves
			assert.NotContains(t, result.Changed, "Width Promotion")

			if diff := cmp.Diff(once, twice); diff != "" {
				t.Errorf("second run changed the body (-first +second):\n%s", diff)
			}

			// the printed form loads back to the same body
			reloaded := load(t, once)
			assert.Empty(t, cmp.Diff(once, ir.PrintBody(reloaded)))
		})
	}
}

func TestPipelineSecondRunReportsNoChanges(t *testing.T) {
	body := load(t, flagsSource)
	pipeline := NewPipeline(config.Default())

	_, err := pipeline.Run(body)
	require.NoError(t, err)

	result, err := pipeline.Run(body)
	require.NoError(t, err)
	assert.Empty(t, result.Changed)
}

func TestPipelineSecondRunResplitsSharedVariables(t *testing.T) {
	body := load(t, twoLoopsSource)
	pipeline := NewPipeline(config.Default())

	_, err := pipeline.Run(body)
	require.NoError(t, err)
	once := ir.PrintBody(body)

	result, err := pipeline.Run(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"Web Splitting", "Coalescing"}, result.Changed)
	assert.Equal(t, once, ir.PrintBody(body))
}

func TestPipelineRejectsMultipleDefinitions(t *testing.T) {
	body := load(t, `method bad {
    var a : "I" @0;
    var b : "I" @1;
    var unused : "I" @2;
    a = const 1;
    a, b = call a;
    return b;
}`)
	before := ir.PrintBody(body)

	result, err := NewPipeline(config.Default()).Run(body)
	var ce diag.CompilerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, diag.ErrorMultipleDefinitions, ce.Code)
	assert.Empty(t, result.Changed)
	assert.Equal(t, before, ir.PrintBody(body))
}

func TestPipelineCollectsWarnings(t *testing.T) {
	body := load(t, rangesSource)

	result, err := NewPipeline(config.Default()).Run(body)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, diag.WarningMalformedRange, result.Warnings[0].Code)
}

func TestNewPipelineFromConfig(t *testing.T) {
	passNames := func(p *Pipeline) []string {
		var out []string
		for _, pass := range p.Passes() {
			out = append(out, pass.Name())
		}
		return out
	}

	assert.Equal(t, []string{"Web Splitting", "Width Promotion", "Coalescing"}, passNames(NewPipeline(nil)))

	cfg := config.Default()
	cfg.Pipeline.Coalesce = false
	assert.Equal(t, []string{"Web Splitting", "Width Promotion"}, passNames(NewPipeline(cfg)))

	cfg = config.Default()
	cfg.Pipeline.Split = false
	cfg.Pipeline.Promote = false
	cfg.Pipeline.VerifyColoring = false
	p := NewPipeline(cfg)
	require.Len(t, p.Passes(), 1)
	coalescer, ok := p.Passes()[0].(*Coalescer)
	require.True(t, ok)
	assert.False(t, coalescer.verify)

	// explicit options override the configuration
	p = NewPipeline(cfg, WithVerification(true), WithColorer(sameColor{}))
	coalescer = p.Passes()[0].(*Coalescer)
	assert.True(t, coalescer.verify)
	assert.Equal(t, sameColor{}, coalescer.colorer)
}

func TestRunAll(t *testing.T) {
	program, err := ir.Load("all.body", twoLoopsSource+"\n"+mixedSource+"\n"+guardedSource)
	require.NoError(t, err)
	require.Len(t, program.Methods, 3)

	cfg := config.Default()
	cfg.Pipeline.Workers = 2
	results, err := NewPipeline(cfg).RunAll(context.Background(), program.Methods)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "twoLoops", results[0].Method)
	assert.Equal(t, "mixed", results[1].Method)
	assert.Equal(t, "guarded", results[2].Method)

	assert.Equal(t, []string{"i", "c"}, names(program.Methods[0].Variables))
}

func TestRunAllReportsFirstError(t *testing.T) {
	program, err := ir.Load("all.body", twoLoopsSource+`
method bad {
    var a : "I" @0;
    var b : "I" @1;
    a, b = call;
    return a;
}
`)
	require.NoError(t, err)

	_, err = NewPipeline(config.Default()).RunAll(context.Background(), program.Methods)
	var ce diag.CompilerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, diag.ErrorMultipleDefinitions, ce.Code)
	assert.Equal(t, "bad", ce.Method)
}

func TestRunAllCancelled(t *testing.T) {
	body := load(t, twoLoopsSource)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(config.Default()).RunAll(ctx, []*ir.Body{body})
	assert.ErrorIs(t, err, context.Canceled)
}
