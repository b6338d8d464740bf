package pscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_SetFrameArgFillsRegistersThenOverflow(t *testing.T) {
	h := newTestHeap()
	fn := h.NewFunction("noop", func(ev *Evaluator, frame, env CellPtr) CellPtr { return NilPtr })
	frame := h.NewFrame(NilPtr, fn)

	for i := 0; i < 10; i++ {
		h.setFrameArg(frame, i, h.NewIntegerFromInt64(int64(i)))
	}

	require.Equal(t, 10, h.FrameArgCount(frame))
	for i := 0; i < 8; i++ {
		assert.Equal(t, string(rune('0'+i)), h.IntegerToString(h.FrameRegister(frame, i)))
	}

	overflow, _ := h.ListToSlice(h.FrameOverflow(frame))
	require.Len(t, overflow, 2)
	assert.Equal(t, "8", h.IntegerToString(overflow[0]))
	assert.Equal(t, "9", h.IntegerToString(overflow[1]))
}

func TestFrame_FrameArgsCombinesRegistersAndOverflow(t *testing.T) {
	h := newTestHeap()
	fn := h.NewFunction("noop", func(ev *Evaluator, frame, env CellPtr) CellPtr { return NilPtr })
	frame := h.NewFrame(NilPtr, fn)
	for i := 0; i < 9; i++ {
		h.setFrameArg(frame, i, h.NewIntegerFromInt64(int64(i)))
	}
	args := h.FrameArgs(frame)
	require.Len(t, args, 9)
	for i, a := range args {
		assert.Equal(t, int64(i), mustInt64(h, a))
	}
}

func TestFrame_PreviousAndFunctionAreRetained(t *testing.T) {
	h := newTestHeap()
	fn := h.NewFunction("noop", func(ev *Evaluator, frame, env CellPtr) CellPtr { return NilPtr })
	outer := h.NewFrame(NilPtr, fn)
	inner := h.NewFrame(outer, fn)

	assert.Equal(t, outer, h.FramePrevious(inner))
	assert.Equal(t, fn, h.FrameFunction(inner))
}

func TestFrame_BuildRegularFrameEvaluatesArgsLeftToRight(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	fn := h.NewFunction("noop", func(ev *Evaluator, frame, env CellPtr) CellPtr { return NilPtr })

	one := h.NewIntegerFromInt64(1)
	two := h.NewIntegerFromInt64(2)
	argForms := h.SliceToList([]CellPtr{one, two})

	frame, exc := ev.BuildRegularFrame(fn, argForms, NilPtr, NilPtr)
	require.True(t, exc.IsNil())
	assert.Equal(t, 2, h.FrameArgCount(frame))
	assert.Equal(t, "1", h.IntegerToString(h.FrameRegister(frame, 0)))
	assert.Equal(t, "2", h.IntegerToString(h.FrameRegister(frame, 1)))
}

func TestFrame_BuildRegularFrameAbandonsOnException(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	fn := h.NewFunction("noop", func(ev *Evaluator, frame, env CellPtr) CellPtr { return NilPtr })

	badSymbol := h.NewSymbolFrom("undefined-var")
	argForms := h.SliceToList([]CellPtr{badSymbol})

	_, exc := ev.BuildRegularFrame(fn, argForms, NilPtr, NilPtr)
	require.False(t, exc.IsNil())
	assert.True(t, h.IsException(exc))
}

func mustInt64(h *Heap, p CellPtr) int64 {
	return int64(h.IntegerToFloat64(p))
}
