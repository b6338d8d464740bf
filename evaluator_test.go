package pscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_SelfEvaluatingAtoms(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	n := h.NewIntegerFromInt64(5)
	result := ev.Eval(n, NilPtr)
	assert.Equal(t, n, result)
}

func TestEvaluator_SymbolLookup(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	sym := h.NewSymbolFrom("x")
	env := h.Set(sym, h.NewIntegerFromInt64(99), NilPtr)
	result := ev.Eval(sym, env)
	require.True(t, h.IsInteger(result))
	assert.Equal(t, "99", h.IntegerToString(result))
}

func TestEvaluator_UnboundSymbolRaises(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	sym := h.NewSymbolFrom("nope")
	result := ev.Eval(sym, NilPtr)
	require.True(t, h.IsException(result))
	assert.Equal(t, ExcUnboundSymbol, h.ExceptionKind(result))
}

func TestEvaluator_ApplyFunctionBuildsRegularFrame(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	doubling := h.NewFunction("double", func(ev *Evaluator, frame, env CellPtr) CellPtr {
		args := ev.Heap.FrameArgs(frame)
		return ev.Heap.NumericMultiply(args[0], ev.Heap.NewIntegerFromInt64(2))
	})
	sym := h.NewSymbolFrom("double")
	env := h.Set(sym, doubling, NilPtr)

	form := h.SliceToList([]CellPtr{sym, h.NewIntegerFromInt64(21)})
	result := ev.Eval(form, env)
	require.True(t, h.IsInteger(result))
	assert.Equal(t, "42", h.IntegerToString(result))
}

func TestEvaluator_ApplyNotCallableRaises(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	form := h.SliceToList([]CellPtr{h.NewIntegerFromInt64(1), h.NewIntegerFromInt64(2)})
	result := ev.Eval(form, NilPtr)
	require.True(t, h.IsException(result))
	assert.Equal(t, ExcNotCallable, h.ExceptionKind(result))
}

func TestEvaluator_LambdaIsDynamicallyScoped(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)

	xSym := h.NewSymbolFrom("x")
	lam := h.NewLambda(h.SliceToList([]CellPtr{}), h.SliceToList([]CellPtr{xSym}))

	// x is bound only in the *calling* environment, not captured at
	// lambda-creation time: this interpreter is dynamically scoped.
	callEnv := h.Set(xSym, h.NewIntegerFromInt64(7), NilPtr)
	result := ev.applyClosure(lam, NilPtr, callEnv, NilPtr, false)
	require.True(t, h.IsInteger(result))
	assert.Equal(t, "7", h.IntegerToString(result))
}

func TestEvaluator_LambdaVarargsSoakUpRemainingArgs(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	argsSym := h.NewSymbolFrom("args")
	lengthCall := h.SliceToList([]CellPtr{h.NewSymbolFrom("length"), argsSym})
	lam := h.NewLambda(argsSym, h.SliceToList([]CellPtr{lengthCall}))

	lengthFn := h.NewFunction("length", func(ev *Evaluator, frame, env CellPtr) CellPtr {
		args := ev.Heap.FrameArgs(frame)
		return ev.Heap.NewIntegerFromInt64(int64(ev.Heap.ListLength(args[0])))
	})
	env := h.Set(h.NewSymbolFrom("length"), lengthFn, NilPtr)

	argForms := h.SliceToList([]CellPtr{
		h.NewIntegerFromInt64(1), h.NewIntegerFromInt64(2), h.NewIntegerFromInt64(3),
		h.NewIntegerFromInt64(4), h.NewIntegerFromInt64(5), h.NewIntegerFromInt64(6),
		h.NewIntegerFromInt64(7), h.NewIntegerFromInt64(8), h.NewIntegerFromInt64(9),
	})
	result := ev.applyClosure(lam, argForms, env, NilPtr, false)
	require.True(t, h.IsInteger(result))
	assert.Equal(t, "9", h.IntegerToString(result))
}

func TestEvaluator_PrognReturnsLastShortCircuitsOnException(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	badSymbol := h.NewSymbolFrom("undefined-var")
	forms := h.SliceToList([]CellPtr{h.NewIntegerFromInt64(1), badSymbol, h.NewIntegerFromInt64(2)})
	result := ev.Progn(forms, NilPtr)
	assert.True(t, h.IsException(result), "progn must stop at the first exception, not continue to later forms")

	okForms := h.SliceToList([]CellPtr{h.NewIntegerFromInt64(1), h.NewIntegerFromInt64(2)})
	assert.Equal(t, "2", h.IntegerToString(ev.Progn(okForms, NilPtr)), "progn returns the value of its last form")
}

func TestEvaluator_TryCatchesBodyExceptionAndBindsStarException(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	badSymbol := h.NewSymbolFrom("undefined-var")
	body := h.SliceToList([]CellPtr{badSymbol})
	excSym := h.NewSymbolFrom("*exception*")
	catch := h.SliceToList([]CellPtr{excSym})

	result := ev.Try(body, catch, NilPtr)
	require.True(t, h.IsException(result), "the catch clause here just returns *exception* itself")
	assert.Equal(t, ExcUnboundSymbol, h.ExceptionKind(result))
}

func TestEvaluator_TryPassesThroughWhenBodySucceeds(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	body := h.SliceToList([]CellPtr{h.NewIntegerFromInt64(5)})
	catch := h.SliceToList([]CellPtr{h.NewIntegerFromInt64(-1)})
	result := ev.Try(body, catch, NilPtr)
	assert.Equal(t, "5", h.IntegerToString(result))
}

func TestEvaluator_KeywordAppliedToHashMapIsLookup(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	m := h.NewHashMap()
	key := h.NewKeywordFrom("a")
	m = h.HashMapPut(m, key, h.NewIntegerFromInt64(1))
	mSym := h.NewSymbolFrom("m")
	env := h.Set(mSym, m, NilPtr)

	form := h.SliceToList([]CellPtr{key, mSym})
	result := ev.Eval(form, env)
	require.True(t, h.IsInteger(result))
	assert.Equal(t, "1", h.IntegerToString(result))
}

func TestEvaluator_KeywordAppliedToExceptionAccessesFields(t *testing.T) {
	h := newTestHeap()
	ev := NewEvaluator(h, nil)
	exc := h.NewException(ExcDivisionByZero, "division by zero", NilPtr)
	excSym := h.NewSymbolFrom("*exception*")
	env := h.Set(excSym, exc, NilPtr)

	form := h.SliceToList([]CellPtr{h.NewKeywordFrom("message"), excSym})
	result := ev.Eval(form, env)
	require.True(t, h.IsString(result))
	assert.Equal(t, "division by zero", h.ChainToString(result))
}
