package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotlife/internal/errors"
)

const counterSource = `method counter {
    var n : "I" @0;
    var i : "I" @1 subsumes 0;
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

func TestBuildProgram(t *testing.T) {
	program, err := Load("counter.body", counterSource)
	require.NoError(t, err)
	require.Len(t, program.Methods, 1)
	assert.Equal(t, counterSource, program.Source)

	body := program.Methods[0]
	assert.Equal(t, "counter", body.Method)
	require.Len(t, body.Variables, 3)
	require.Len(t, body.Instructions, 8)

	n, i, c := body.Variables[0], body.Variables[1], body.Variables[2]
	assert.Equal(t, 0, n.Slot)
	assert.Equal(t, 1, i.Slot)
	assert.Equal(t, []int{0}, i.Subsumed)
	assert.Equal(t, -1, c.Slot)
	assert.Equal(t, "int1", c.Type.String())
	assert.Same(t, i, body.Lookup("i"))
	assert.Nil(t, body.Lookup("missing"))

	in := body.Instructions
	assert.Equal(t, KindParam, in[0].Kind)
	assert.Same(t, n, in[0].Def().Var)

	assert.Equal(t, KindAssign, in[1].Kind)
	assert.Equal(t, "const", in[1].Op)
	require.Len(t, in[1].Args, 1)
	assert.Equal(t, "0", in[1].Args[0].Literal)
	assert.Empty(t, in[1].Uses)

	assert.Equal(t, KindIf, in[3].Kind)
	assert.Same(t, in[6], in[3].Target)

	incr := in[4]
	assert.Equal(t, 1, incr.Def().Entry)
	require.Len(t, incr.Uses, 1)
	assert.Equal(t, -1, incr.Uses[0].Entry)
	assert.Same(t, i, incr.Uses[0].Var)
	assert.NotSame(t, incr.Def(), incr.Uses[0])

	assert.Same(t, in[2], in[5].Target)
	assert.Equal(t, KindThrow, in[7].Kind)

	require.Len(t, body.Debug, 2)
	assert.Same(t, in[0], body.Debug[0].Start)
	assert.Nil(t, body.Debug[0].End)
	assert.Same(t, in[2], body.Debug[1].Start)
	assert.Same(t, in[6], body.Debug[1].End)

	require.Len(t, body.Traps, 1)
	assert.Same(t, in[7], body.Traps[0].Handler)

	for idx, inst := range in {
		assert.Equal(t, idx, inst.Index)
		assert.True(t, body.Contains(inst))
	}
	assert.Same(t, in[7], body.Last())
	assert.Equal(t, 9, in[1].Pos.Line)
}

func TestBuildErrors(t *testing.T) {
	testCases := []struct {
		name   string
		source string
		code   string
	}{
		{
			name:   "undefined variable",
			source: "method m {\n    var count : \"I\" @0;\n    count = add cont, 1;\n}",
			code:   errors.ErrorUndefinedVariable,
		},
		{
			name:   "undefined label",
			source: "method m {\n    goto nowhere;\n}",
			code:   errors.ErrorUndefinedLabel,
		},
		{
			name:   "undefined debug label",
			source: "method m {\n    var x : \"I\" @0;\n    debug x : \"I\" @0 from A to end;\n    return;\n}",
			code:   errors.ErrorUndefinedLabel,
		},
		{
			name:   "invalid descriptor",
			source: "method m {\n    var x : \"Q\";\n    return;\n}",
			code:   errors.ErrorInvalidDescriptor,
		},
		{
			name:   "duplicate variable",
			source: "method m {\n    var x : \"I\";\n    var x : \"J\";\n    return;\n}",
			code:   errors.ErrorDuplicateDeclaration,
		},
		{
			name:   "duplicate label",
			source: "method m {\n    A: nop;\n    A: return;\n}",
			code:   errors.ErrorDuplicateDeclaration,
		},
		{
			name:   "reserved label",
			source: "method m {\n    end: return;\n}",
			code:   errors.ErrorDuplicateDeclaration,
		},
		{
			name:   "duplicate method",
			source: "method m {\n    return;\n}\nmethod m {\n    return;\n}",
			code:   errors.ErrorDuplicateDeclaration,
		},
		{
			name:   "syntax",
			source: "method m {\n    return\n}",
			code:   errors.ErrorSyntax,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load("m.body", tc.source)
			require.Error(t, err)
			var ce errors.CompilerError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.code, ce.Code)
		})
	}
}

func TestBuildUndefinedVariableSuggestion(t *testing.T) {
	_, err := Load("m.body", "method m {\n    var count : \"I\" @0;\n    count = add cont, 1;\n}")
	var ce errors.CompilerError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Suggestions, 1)
	assert.Contains(t, ce.Suggestions[0].Message, "count")
	assert.Equal(t, 3, ce.Position.Line)
}

func TestBuildMultipleDefinitionsIsLoadable(t *testing.T) {
	program, err := Load("swap.body", "method swap {\n    var a : \"I\" @0;\n    var b : \"I\" @1;\n    a, b = swap b, a;\n    return;\n}")
	require.NoError(t, err)
	assert.Len(t, program.Methods[0].Instructions[0].Defs, 2)
}
