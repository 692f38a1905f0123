package bytecode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewfurey21/sting/lang/value"
)

func TestEmitKeepsLinesParallel(t *testing.T) {
	c := NewChunk()
	c.Emit(NIL, 1)
	c.Emit(TRUE, 2)
	c.Emit(POP, 2)
	require.Equal(t, len(c.Code), len(c.Lines), "P2: |bytecode| == |lines|")
	require.Equal(t, []int{1, 2, 2}, c.Lines)
}

func TestPatchJumpLandsOnValidTarget(t *testing.T) {
	c := NewChunk()
	idx := c.Emit(BRANCH_FALSE, 1, 0)
	c.Emit(POP, 1)
	c.Emit(NIL, 1)
	c.PatchJump(idx)
	require.NoError(t, c.ValidJumpTargets())
	require.Equal(t, uint32(2), c.Code[idx].Operands[0])
}

func TestEmitLoopBackpatchesBackward(t *testing.T) {
	c := NewChunk()
	start := c.Len()
	c.Emit(GET_LOCAL, 1, 0)
	c.Emit(POP, 1)
	c.EmitLoop(start, 1)
	require.NoError(t, c.ValidJumpTargets())
}

func TestAddConstant(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(value.Number(42))
	require.Equal(t, uint32(0), idx)
	require.True(t, c.Constants[idx].Equal(value.Number(42)))
}

func TestDisassembleShowsConstants(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(value.Number(7))
	c.Emit(LOAD_CONST, 1, idx)
	c.Emit(RETURN, 1)
	out := Disassemble("test", c)
	require.True(t, strings.Contains(out, "LOAD_CONST"))
	require.True(t, strings.Contains(out, "(7)"))
}

func TestLastOp(t *testing.T) {
	c := NewChunk()
	if _, ok := c.LastOp(); ok {
		t.Fatal("expected no last op on empty chunk")
	}
	c.Emit(RETURN, 1)
	op, ok := c.LastOp()
	require.True(t, ok)
	require.Equal(t, RETURN, op)
}
