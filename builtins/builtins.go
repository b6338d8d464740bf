// Package builtins installs the seed set of primitive bindings this
// interpreter needs to be useful standalone: arithmetic, list
// accessors, equality, the core special forms (quote, cond, set!,
// lambda, nlambda, let, try), and a couple of I/O primitives. None of
// this is part of the evaluation substrate itself — it is ordinary
// host code built on pscore's public API, the way the spec's §9
// design notes describe the seed bindings as "library code once the
// core is working."
package builtins

import (
	"errors"
	"fmt"
	"io"

	"github.com/simon-brooke/post-scarcity-sub000"
)

// Install binds every seed primitive into oblist and returns the
// extended environment.
func Install(ev *pscore.Evaluator, oblist pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap

	bindFunc := func(name string, fn pscore.HostFunc) {
		sym := h.NewSymbolFrom(name)
		cell := h.NewFunction(name, fn)
		oblist = h.Set(sym, cell, oblist)
		h.Dec(sym)
		h.Dec(cell)
	}
	bindSpecial := func(name string, fn pscore.HostFunc) {
		sym := h.NewSymbolFrom(name)
		cell := h.NewSpecialForm(name, fn)
		oblist = h.Set(sym, cell, oblist)
		h.Dec(sym)
		h.Dec(cell)
	}

	bindFunc("+", add)
	bindFunc("-", sub)
	bindFunc("*", mul)
	bindFunc("/", div)
	bindFunc("=", numEq)
	bindFunc("<", numLt)
	bindFunc(">", numGt)
	bindFunc("car", car)
	bindFunc("cdr", cdr)
	bindFunc("cons", consFn)
	bindFunc("list", listFn)
	bindFunc("length", length)
	bindFunc("eq", eqFn)
	bindFunc("equal", equalFn)
	bindFunc("not", notFn)
	bindFunc("print", printFn)
	bindFunc("write", writeFn)
	bindFunc("read-from-string", readFromString)
	bindFunc("progn", prognFunc)

	bindSpecial("quote", quoteFn)
	bindSpecial("cond", condFn)
	bindSpecial("set!", setBangFn)
	bindSpecial("lambda", lambdaFn)
	bindSpecial("nlambda", nlambdaFn)
	bindSpecial("let", letFn)
	bindSpecial("try", tryFn)

	return oblist
}

func arityError(h *pscore.Heap, frame pscore.CellPtr, msg string) pscore.CellPtr {
	return h.NewException(pscore.ExcArityOrTypeMismatch, msg, frame)
}

// ---- arithmetic ----

func requireNumbers(h *pscore.Heap, frame pscore.CellPtr, args []pscore.CellPtr) pscore.CellPtr {
	for _, a := range args {
		if !h.IsNumber(a) {
			return arityError(h, frame, "arithmetic on a non-number: "+pscore.PrintCell(h, a))
		}
	}
	return pscore.NilPtr
}

func add(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if exc := requireNumbers(h, frame, args); !exc.IsNil() {
		return exc
	}
	result := h.NewIntegerFromInt64(0)
	for _, a := range args {
		next := h.NumericAdd(result, a)
		h.Dec(result)
		result = next
	}
	return result
}

func sub(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) == 0 {
		return arityError(h, frame, "- needs at least one argument")
	}
	if exc := requireNumbers(h, frame, args); !exc.IsNil() {
		return exc
	}
	if len(args) == 1 {
		zero := h.NewIntegerFromInt64(0)
		result := h.NumericSubtract(zero, args[0])
		h.Dec(zero)
		return result
	}
	result := args[0]
	h.Inc(result)
	for _, a := range args[1:] {
		next := h.NumericSubtract(result, a)
		h.Dec(result)
		result = next
	}
	return result
}

func mul(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if exc := requireNumbers(h, frame, args); !exc.IsNil() {
		return exc
	}
	result := h.NewIntegerFromInt64(1)
	for _, a := range args {
		next := h.NumericMultiply(result, a)
		h.Dec(result)
		result = next
	}
	return result
}

func div(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) == 0 {
		return arityError(h, frame, "/ needs at least one argument")
	}
	if exc := requireNumbers(h, frame, args); !exc.IsNil() {
		return exc
	}
	if len(args) == 1 {
		one := h.NewIntegerFromInt64(1)
		result, divZero := h.NumericDivide(one, args[0])
		h.Dec(one)
		if divZero {
			return h.NewException(pscore.ExcDivisionByZero, "division by zero", frame)
		}
		return result
	}
	result := args[0]
	h.Inc(result)
	for _, a := range args[1:] {
		next, divZero := h.NumericDivide(result, a)
		h.Dec(result)
		if divZero {
			return h.NewException(pscore.ExcDivisionByZero, "division by zero", frame)
		}
		result = next
	}
	return result
}

func boolCell(h *pscore.Heap, v bool) pscore.CellPtr {
	if v {
		h.Inc(pscore.TPtr)
		return pscore.TPtr
	}
	h.Inc(pscore.NilPtr)
	return pscore.NilPtr
}

func numCompare(ev *pscore.Evaluator, frame pscore.CellPtr, cmp func(int) bool) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if exc := requireNumbers(h, frame, args); !exc.IsNil() {
		return exc
	}
	for i := 1; i < len(args); i++ {
		if !cmp(h.NumericCompare(args[i-1], args[i])) {
			return boolCell(h, false)
		}
	}
	return boolCell(h, true)
}

func numEq(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	return numCompare(ev, frame, func(c int) bool { return c == 0 })
}
func numLt(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	return numCompare(ev, frame, func(c int) bool { return c < 0 })
}
func numGt(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	return numCompare(ev, frame, func(c int) bool { return c > 0 })
}

// ---- list accessors ----

func car(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) != 1 || !h.IsSequence(args[0]) {
		return arityError(h, frame, "Attempt to take CAR of non sequence")
	}
	if h.IsNil(args[0]) {
		h.Inc(pscore.NilPtr)
		return pscore.NilPtr
	}
	v := h.Car(args[0])
	h.Inc(v)
	return v
}

func cdr(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) != 1 || !h.IsSequence(args[0]) {
		return arityError(h, frame, "Attempt to take CDR of non sequence")
	}
	if h.IsNil(args[0]) {
		h.Inc(pscore.NilPtr)
		return pscore.NilPtr
	}
	v := h.Cdr(args[0])
	h.Inc(v)
	return v
}

func consFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) != 2 {
		return arityError(h, frame, "cons needs exactly two arguments")
	}
	return h.NewCons(args[0], args[1])
}

func listFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	return h.SliceToList(h.FrameArgs(frame))
}

func length(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) != 1 || !h.IsSequence(args[0]) {
		return arityError(h, frame, "length needs a single sequence argument")
	}
	return h.NewIntegerFromInt64(int64(h.ListLength(args[0])))
}

// ---- equality ----

func eqFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) != 2 {
		return arityError(h, frame, "eq needs exactly two arguments")
	}
	return boolCell(h, args[0] == args[1])
}

func equalFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) != 2 {
		return arityError(h, frame, "equal needs exactly two arguments")
	}
	return boolCell(h, h.DeepEqual(args[0], args[1]))
}

func notFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) != 1 {
		return arityError(h, frame, "not needs exactly one argument")
	}
	return boolCell(h, h.IsNil(args[0]))
}

// ---- I/O ----

func printFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) != 1 {
		return arityError(h, frame, "print needs exactly one argument")
	}
	fmt.Println(pscore.PrintCell(h, args[0]))
	v := args[0]
	h.Inc(v)
	return v
}

func writeFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) != 1 {
		return arityError(h, frame, "write needs exactly one argument")
	}
	fmt.Print(pscore.PrintCell(h, args[0]))
	v := args[0]
	h.Inc(v)
	return v
}

func readFromString(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) != 1 || !h.IsString(args[0]) {
		return arityError(h, frame, "read-from-string needs a single string argument")
	}
	cfg := pscore.NewConfig()
	r := pscore.NewReader(h, pscore.NewStringStream(h.ChainToString(args[0])), cfg)
	form, err := r.ReadForm()
	if err != nil {
		if errors.Is(err, io.EOF) {
			h.Inc(pscore.NilPtr)
			return pscore.NilPtr
		}
		return h.NewException(pscore.ExcReaderError, err.Error(), frame)
	}
	return form
}

func prognFunc(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) == 0 {
		h.Inc(pscore.NilPtr)
		return pscore.NilPtr
	}
	last := args[len(args)-1]
	h.Inc(last)
	return last
}

// ---- special forms ----

func quoteFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	if h.FrameArgCount(frame) != 1 {
		return arityError(h, frame, "quote needs exactly one argument")
	}
	v := h.FrameRegister(frame, 0)
	h.Inc(v)
	return v
}

func condFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	for _, clause := range h.FrameArgs(frame) {
		if !h.IsCons(clause) {
			continue
		}
		test := h.Car(clause)
		body := h.Cdr(clause)
		testVal := ev.Eval(test, env)
		if h.IsException(testVal) {
			return testVal
		}
		truthy := !h.IsNil(testVal)
		h.Dec(testVal)
		if truthy {
			return ev.Progn(body, env)
		}
	}
	h.Inc(pscore.NilPtr)
	return pscore.NilPtr
}

func setBangFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	if h.FrameArgCount(frame) != 2 {
		return arityError(h, frame, "set! needs exactly two arguments")
	}
	sym := h.FrameRegister(frame, 0)
	valForm := h.FrameRegister(frame, 1)
	val := ev.Eval(valForm, env)
	if h.IsException(val) {
		return val
	}
	h.DeepBind(&ev.Oblist, sym, val)
	return val
}

func lambdaFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) < 1 {
		return arityError(h, frame, "lambda needs a parameter list")
	}
	body := h.SliceToList(args[1:])
	result := h.NewLambda(args[0], body)
	h.Dec(body)
	return result
}

func nlambdaFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) < 1 {
		return arityError(h, frame, "nlambda needs a parameter list")
	}
	body := h.SliceToList(args[1:])
	result := h.NewNLambda(args[0], body)
	h.Dec(body)
	return result
}

func letFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) < 1 {
		return arityError(h, frame, "let needs a binding list")
	}
	bindings := args[0]
	newEnv := env
	cursor := bindings
	for h.IsCons(cursor) {
		pair := h.Car(cursor)
		if !h.IsCons(pair) || !h.IsCons(h.Cdr(pair)) {
			return arityError(h, frame, "malformed let binding")
		}
		sym := h.Car(pair)
		valForm := h.Car(h.Cdr(pair))
		val := ev.Eval(valForm, newEnv)
		if h.IsException(val) {
			return val
		}
		newEnv = h.Set(sym, val, newEnv)
		h.Dec(val)
		cursor = h.Cdr(cursor)
	}
	body := h.SliceToList(args[1:])
	result := ev.Progn(body, newEnv)
	h.Dec(body)
	return result
}

func tryFn(ev *pscore.Evaluator, frame, env pscore.CellPtr) pscore.CellPtr {
	h := ev.Heap
	args := h.FrameArgs(frame)
	if len(args) < 1 {
		return arityError(h, frame, "try needs a body")
	}
	body := args[0]
	catchForms := h.SliceToList(args[1:])
	result := ev.Try(body, catchForms, env)
	h.Dec(catchForms)
	return result
}
