package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotlife/internal/ir"
)

func load(t *testing.T, source string) *ir.Body {
	t.Helper()
	program, err := ir.Load("test.body", source)
	require.NoError(t, err)
	require.Len(t, program.Methods, 1)
	return program.Methods[0]
}

const loopSource = `method loop {
    var n : "I" @0;
    var i : "I" @1;
    var c : "Z";
    n = param 0;
    i = const 0;
    L: c = lt i, n;
    if c goto X;
    i = add i, 1;
    goto L;
    X: return i;
}
`

func TestReachingDefinitionsLoop(t *testing.T) {
	body := load(t, loopSource)
	in := body.Instructions
	n, i, c := body.Variables[0], body.Variables[1], body.Variables[2]

	du := NewDefUse(body, ir.NewGraph(body))

	// i at the loop header: initial store and the increment
	assert.Equal(t, []*ir.Instruction{in[1], in[4]}, du.DefsOfAt(i, in[2]))
	assert.Equal(t, []*ir.Instruction{in[0]}, du.DefsOfAt(n, in[2]))
	assert.Equal(t, []*ir.Instruction{in[2]}, du.DefsOfAt(c, in[3]))
	assert.Equal(t, []*ir.Instruction{in[1], in[4]}, du.DefsOfAt(i, in[6]))

	// nothing reaches the entry
	assert.Empty(t, du.DefsOfAt(i, in[0]))

	uses := du.UsesOf(in[1])
	require.Len(t, uses, 3)
	assert.Same(t, in[2], uses[0].Inst)
	assert.Same(t, in[2].Uses[0], uses[0].Operand)
	assert.Same(t, in[4], uses[1].Inst)
	assert.Same(t, in[6], uses[2].Inst)

	assert.Len(t, du.UsesOf(in[4]), 3)
	assert.Empty(t, du.UsesOf(in[3]))
}

func TestReachingDefinitionsKill(t *testing.T) {
	body := load(t, `method straight {
    var x : "I" @0;
    x = const 1;
    x = const 2;
    return x;
}`)
	in := body.Instructions
	x := body.Variables[0]

	du := NewDefUse(body, ir.NewGraph(body))
	assert.Equal(t, []*ir.Instruction{in[1]}, du.DefsOfAt(x, in[2]))
	assert.Empty(t, du.UsesOf(in[0]))

	unknown := &ir.Variable{Name: "ghost", Slot: -1}
	assert.Nil(t, du.DefsOfAt(unknown, in[2]))
}

func TestReachingDefinitionsIntoHandler(t *testing.T) {
	body := load(t, `method guarded {
    var x : "I" @0;
    x = const 1;
    A: x = call x;
    return x;
    H: return x;
    catch A to H with H;
}`)
	in := body.Instructions
	x := body.Variables[0]

	du := NewDefUse(body, ir.NewGraph(body))
	// the handler sees both the value before and after the guarded store
	assert.Equal(t, []*ir.Instruction{in[0], in[1]}, du.DefsOfAt(x, in[3]))
}

func TestLivenessLoop(t *testing.T) {
	body := load(t, loopSource)
	in := body.Instructions
	n, i, c := body.Variables[0], body.Variables[1], body.Variables[2]

	live := NewLiveness(body, ir.NewGraph(body))
	require.True(t, live.Complete())

	assert.Empty(t, live.LiveBefore(in[0]))
	assert.Equal(t, []*ir.Variable{n}, live.LiveAfter(in[0]))
	assert.Equal(t, []*ir.Variable{n, i}, live.LiveBefore(in[2]))
	assert.Equal(t, []*ir.Variable{n, i, c}, live.LiveAfter(in[2]))
	assert.Equal(t, []*ir.Variable{n, i}, live.LiveAfter(in[3]))
	assert.Equal(t, []*ir.Variable{i}, live.LiveBefore(in[6]))
	assert.Empty(t, live.LiveAfter(in[6]))

	assert.True(t, live.IsLiveAfter(c, in[2]))
	assert.False(t, live.IsLiveAfter(c, in[3]))

	k, ok := live.Index(i)
	require.True(t, ok)
	assert.True(t, live.BeforeSet(in[2]).Test(k))
	assert.Equal(t, []*ir.Variable{n, i, c}, live.Variables())
	assert.Same(t, body, live.Body())
}

func TestLivenessHandlerSeesOldValue(t *testing.T) {
	body := load(t, `method guarded {
    var x : "I" @0;
    x = const 1;
    A: x = call;
    return x;
    H: return x;
    catch A to H with H;
}`)
	in := body.Instructions
	x := body.Variables[0]

	live := NewLiveness(body, ir.NewGraph(body))
	assert.Equal(t, []*ir.Variable{x}, live.LiveBefore(in[1]))
}

func TestLivenessIncompleteAfterMutation(t *testing.T) {
	body := load(t, loopSource)
	live := NewLiveness(body, ir.NewGraph(body))
	require.True(t, live.Complete())

	fresh := &ir.Variable{Name: "fresh", Type: &ir.IntType{Kind: ir.Int}, Slot: -1}
	body.Instructions = append(body.Instructions, &ir.Instruction{
		Kind: ir.KindAssign,
		Op:   "const",
		Defs: []*ir.Operand{{Var: fresh, Entry: -1}},
	})
	assert.False(t, live.Complete())
}
