package coloring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotlife/internal/dataflow"
	"slotlife/internal/ir"
)

func analyse(t *testing.T, source string) (*ir.Body, *dataflow.Liveness) {
	t.Helper()
	program, err := ir.Load("test.body", source)
	require.NoError(t, err)
	body := program.Methods[0]
	return body, dataflow.NewLiveness(body, ir.NewGraph(body))
}

func groupsOf(body *ir.Body) map[*ir.Variable]ir.Group {
	groups := make(map[*ir.Variable]ir.Group)
	for _, v := range body.Variables {
		groups[v] = ir.GroupOf(v)
	}
	return groups
}

const disjointSource = `method disjoint {
    var a : "I" @3;
    var b : "I" @3;
    var t : "I";
    a = const 1;
    do print a;
    b = const 2;
    t = add b, 1;
    return t;
}
`

func TestInterference(t *testing.T) {
	body, live := analyse(t, disjointSource)
	a, b, tmp := body.Variables[0], body.Variables[1], body.Variables[2]

	graph := NewInterference(live)
	assert.False(t, graph.Interferes(a, b))
	assert.False(t, graph.Interferes(b, tmp))
	assert.False(t, graph.Interferes(a, tmp))
	assert.Equal(t, 0, graph.Degree(a))
}

func TestInterferenceOverlap(t *testing.T) {
	body, live := analyse(t, `method overlap {
    var a : "I" @3;
    var b : "I" @3;
    a = const 1;
    b = const 2;
    do print a, b;
    return;
}`)
	a, b := body.Variables[0], body.Variables[1]

	graph := NewInterference(live)
	assert.True(t, graph.Interferes(a, b))
	assert.True(t, graph.Interferes(b, a))
	assert.True(t, graph.Neighbors(a).Contains(b))
	assert.Equal(t, 1, graph.Degree(b))
}

func TestDeadStoreInterferes(t *testing.T) {
	body, live := analyse(t, `method dead {
    var a : "I" @0;
    var b : "I" @0;
    a = const 1;
    b = const 2;
    return a;
}`)
	a, b := body.Variables[0], body.Variables[1]
	assert.True(t, NewInterference(live).Interferes(a, b))
}

func TestGreedyReusesColors(t *testing.T) {
	body, live := analyse(t, disjointSource)
	a, b, tmp := body.Variables[0], body.Variables[1], body.Variables[2]

	colors, counts := NewGreedy().AssignColors(groupsOf(body), live)
	require.Len(t, colors, 3)
	assert.Equal(t, 0, colors[a])
	assert.Equal(t, 0, colors[b])
	assert.Equal(t, 0, colors[tmp])
	assert.Equal(t, 1, counts[ir.Group{Type: "I", Slot: 3}])
	assert.Equal(t, 1, counts[ir.Group{Type: "I", Slot: -1}])
}

func TestGreedyNeverCollides(t *testing.T) {
	body, live := analyse(t, `method busy {
    var a : "I" @1;
    var b : "I" @1;
    var c : "I" @1;
    var d : "J" @1;
    a = const 1;
    b = const 2;
    c = add a, b;
    d = const 4;
    do print c, d, b;
    return;
}`)
	groups := groupsOf(body)

	colors, counts := Greedy{}.AssignColors(groups, live)
	graph := NewInterference(live)

	_, _, collided := graph.Collision(groups, colors)
	assert.False(t, collided)

	a, b, c, d := body.Variables[0], body.Variables[1], body.Variables[2], body.Variables[3]
	assert.NotEqual(t, colors[a], colors[b])
	assert.NotEqual(t, colors[b], colors[c])
	// a dies at the instruction defining c
	assert.False(t, graph.Interferes(a, c))
	assert.Equal(t, colors[a], colors[c])
	assert.Equal(t, 2, counts[ir.Group{Type: "I", Slot: 1}])
	// different group, colored independently
	assert.Equal(t, 0, colors[d])
}

func TestCollisionDetection(t *testing.T) {
	body, live := analyse(t, `method overlap {
    var a : "I" @3;
    var b : "I" @3;
    a = const 1;
    b = const 2;
    do print a, b;
    return;
}`)
	a, b := body.Variables[0], body.Variables[1]
	groups := groupsOf(body)

	first, second, found := NewInterference(live).Collision(groups, map[*ir.Variable]int{a: 0, b: 0})
	require.True(t, found)
	assert.Same(t, a, first)
	assert.Same(t, b, second)

	_, _, found = NewInterference(live).Collision(groups, map[*ir.Variable]int{a: 0, b: 1})
	assert.False(t, found)
}
