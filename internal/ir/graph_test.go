package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphEdges(t *testing.T) {
	program, err := Load("counter.body", counterSource)
	require.NoError(t, err)
	body := program.Methods[0]
	in := body.Instructions

	g := NewGraph(body)
	require.Equal(t, []*Instruction{in[0]}, g.Entries())

	assert.Equal(t, []*Instruction{in[1]}, g.Successors(in[0]))
	// if: branch target first, then fall-through, then handler
	assert.Equal(t, []*Instruction{in[6], in[4], in[7]}, g.Successors(in[3]))
	assert.Equal(t, []*Instruction{in[2], in[7]}, g.Successors(in[5]))
	assert.Empty(t, g.Successors(in[6]))
	assert.Empty(t, g.Successors(in[7]))

	assert.ElementsMatch(t, []*Instruction{in[1], in[5]}, g.Predecessors(in[2]))
	assert.ElementsMatch(t, []*Instruction{in[2], in[3], in[4], in[5]}, g.Predecessors(in[7]))

	assert.True(t, g.Exceptional(in[4], in[7]))
	assert.False(t, g.Exceptional(in[4], in[5]))
	assert.False(t, g.Exceptional(in[5], in[2]))
}

func TestGraphEmptyBody(t *testing.T) {
	g := NewGraph(&Body{Method: "empty"})
	assert.Empty(t, g.Entries())
	assert.Empty(t, Reachable(g))
}

func TestReachable(t *testing.T) {
	program, err := Load("dead.body", `method dead {
    var x : "I" @0;
    x = const 1;
    goto L3;
    x = const 2;
    L3: return x;
}`)
	require.NoError(t, err)
	body := program.Methods[0]

	reachable := Reachable(NewGraph(body))
	assert.True(t, reachable[body.Instructions[0]])
	assert.True(t, reachable[body.Instructions[1]])
	assert.False(t, reachable[body.Instructions[2]])
	assert.True(t, reachable[body.Instructions[3]])
	assert.Len(t, reachable, 3)
}

func TestTrapWithoutEndCoversRestOfBody(t *testing.T) {
	program, err := Load("trap.body", `method trap {
    var x : "I" @0;
    A: x = const 1;
    do call x;
    return x;
    H: throw x;
    catch A to end with H;
}`)
	require.NoError(t, err)
	body := program.Methods[0]
	in := body.Instructions

	g := NewGraph(body)
	for _, inst := range in[:3] {
		assert.Contains(t, g.Successors(inst), in[3])
	}
	// the handler itself lies inside the range and gets a self edge
	assert.Contains(t, g.Successors(in[3]), in[3])
}
