package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotlife/internal/ir"
)

func TestSlotTrackerStraightLine(t *testing.T) {
	body := load(t, `method straight {
    var a : "I" @0;
    var b : "I" @1;
    var wide : "J" @0;
    var t : "I";
    a = const 1;
    b = const 2;
    t = add a, b;
    wide = const 3;
    return wide;
}`)
	in := body.Instructions
	a, b, wide := body.Variables[0], body.Variables[1], body.Variables[2]

	tracker := NewSlotTracker(body, ir.NewGraph(body))
	require.True(t, tracker.Complete())
	assert.Equal(t, len(in), tracker.Visited())

	assert.Empty(t, tracker.Before(in[0]))
	assert.Equal(t, SlotMap{0: a}, tracker.Before(in[1]))
	assert.Equal(t, SlotMap{0: a, 1: b}, tracker.Before(in[2]))
	// stack temporaries never occupy a slot
	assert.Equal(t, SlotMap{0: a, 1: b}, tracker.Before(in[3]))
	assert.Equal(t, SlotMap{0: wide, 1: b}, tracker.Before(in[4]))

	// each map extends its predecessor's by the predecessor's definition
	for idx := 1; idx < len(in); idx++ {
		prev, curr := tracker.Before(in[idx-1]), tracker.Before(in[idx])
		expected := prev
		if def := in[idx-1].Def(); def != nil && def.Var.Slot >= 0 {
			expected = prev.With(def.Var.Slot, def.Var)
		}
		assert.Equal(t, expected, curr, "instruction %d", idx)
	}

	occupant, ok := tracker.Occupant(in[4], 0)
	require.True(t, ok)
	assert.Same(t, wide, occupant)
	_, ok = tracker.Occupant(in[0], 0)
	assert.False(t, ok)
}

func TestSlotTrackerFirstPathWins(t *testing.T) {
	body := load(t, `method branchy {
    var x : "I" @0;
    var y : "I" @0;
    var c : "Z";
    x = const 1;
    c = const 0;
    if c goto B;
    y = const 2;
    B: return;
}`)
	in := body.Instructions
	x := body.Variables[0]

	tracker := NewSlotTracker(body, ir.NewGraph(body))
	require.True(t, tracker.Complete())

	assert.Equal(t, SlotMap{0: x}, tracker.Before(in[3]))
	// the branch target is reached before the fall-through path defines y
	assert.Equal(t, SlotMap{0: x}, tracker.Before(in[4]))
}

func TestSlotTrackerSkipsUnreachable(t *testing.T) {
	body := load(t, `method dead {
    var x : "I" @0;
    x = const 1;
    return x;
    x = const 2;
    return x;
}`)
	in := body.Instructions

	tracker := NewSlotTracker(body, ir.NewGraph(body))
	assert.True(t, tracker.Complete())
	assert.Equal(t, 2, tracker.Visited())
	assert.Nil(t, tracker.Before(in[2]))
	assert.Nil(t, tracker.Before(in[3]))
}

func TestSlotTrackerEmptyBody(t *testing.T) {
	body := &ir.Body{Method: "empty"}
	tracker := NewSlotTracker(body, ir.NewGraph(body))
	assert.True(t, tracker.Complete())
	assert.Zero(t, tracker.Visited())
}

func TestSlotMapWithCopies(t *testing.T) {
	a := &ir.Variable{Name: "a", Slot: 0}
	b := &ir.Variable{Name: "b", Slot: 1}

	m := SlotMap{0: a}
	n := m.With(1, b)
	assert.Len(t, m, 1)
	assert.Equal(t, SlotMap{0: a, 1: b}, n)

	var empty SlotMap
	assert.Equal(t, SlotMap{0: a}, empty.With(0, a))
}
