package pscore

import "go.uber.org/zap"

// Evaluator holds the process-wide root environment (the oblist) and
// the frame currently in scope, which exceptions capture for
// diagnostics (spec §4.7 "stack frames as first-class objects").
// Everything else the evaluator touches is reached through Heap.
type Evaluator struct {
	Heap         *Heap
	Oblist       CellPtr
	currentFrame CellPtr
	log          *zap.SugaredLogger
}

// NewEvaluator wires a heap to a fresh, empty oblist.
func NewEvaluator(h *Heap, log *zap.SugaredLogger) *Evaluator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Evaluator{Heap: h, Oblist: NilPtr, currentFrame: NilPtr, log: log}
}

// Eval implements the ENTER/EVAL_HEAD/DISPATCH state machine of spec
// §4.8 as ordinary Go recursion: ENTER is the switch on expr's tag,
// EVAL_HEAD/DISPATCH/BUILD_FRAME/INVOKE live inside Apply, and
// RETURN/PROPAGATE_EXCEPTION are just the Go return path — a result
// of tag EXEP unwinds exactly like any other value because every
// caller in this file checks IsException before using what it got
// back, rather than treating it as a Go error.
func (ev *Evaluator) Eval(expr, env CellPtr) CellPtr {
	h := ev.Heap
	switch h.cell(expr).Tag {
	case TagSymbol:
		val, ok := h.Assoc(expr, env)
		if !ok {
			return h.NewException(ExcUnboundSymbol, "unbound symbol: "+h.ChainToString(expr), ev.currentFrame)
		}
		h.Inc(val)
		return val
	case TagCons:
		pl := h.cell(expr).Payload.(consPayload)
		headVal := ev.Eval(pl.car, env) // EVAL_HEAD
		if h.IsException(headVal) {
			return headVal // PROPAGATE_EXCEPTION
		}
		result := ev.Apply(headVal, pl.cdr, env) // DISPATCH / BUILD_FRAME / INVOKE
		h.Dec(headVal)
		return result // RETURN
	default:
		// NIL, TRUE, INTR, RTIO, REAL, STRG, KEYW, FUNC, SPFM, LMDA,
		// NLMD, READ, WRIT, VECP, EXEP all self-evaluate.
		h.Inc(expr)
		return expr
	}
}

// Apply dispatches on the head's tag (spec §4.8, "apply dispatch").
func (ev *Evaluator) Apply(head, argForms, env CellPtr) CellPtr {
	h := ev.Heap
	previous := ev.currentFrame
	switch h.cell(head).Tag {
	case TagFunction:
		frame, exc := ev.BuildRegularFrame(head, argForms, env, previous)
		if !exc.IsNil() {
			return exc
		}
		ev.currentFrame = frame
		result := h.FuncImpl(head)(ev, frame, env)
		ev.currentFrame = previous
		h.Dec(frame)
		return result
	case TagSpecial:
		frame := h.BuildSpecialFrame(head, argForms, previous)
		ev.currentFrame = frame
		result := h.FuncImpl(head)(ev, frame, env)
		ev.currentFrame = previous
		h.Dec(frame)
		return result
	case TagLambda:
		return ev.applyClosure(head, argForms, env, previous, false)
	case TagNLambda:
		return ev.applyClosure(head, argForms, env, previous, true)
	case TagKeyword:
		return ev.applyKeyword(head, argForms, env)
	case TagVector:
		if h.IsHashMap(head) {
			return ev.applyHashMap(head, argForms, env)
		}
		return h.NewException(ExcNotCallable, "not callable: "+PrintCell(h, head), previous)
	default:
		return h.NewException(ExcNotCallable, "not callable: "+PrintCell(h, head), previous)
	}
}

// applyClosure handles LMDA and NLMD: build the frame (evaluating or
// raw per special), bind formal parameters against the resulting
// argument values into a fresh extension of the *calling* env — LMDA
// cells carry no captured environment, so this interpreter is
// dynamically scoped by construction (spec §3's lambdaPayload has
// only args and body) — then evaluate the body with progn.
func (ev *Evaluator) applyClosure(lam, argForms, env, previous CellPtr, special bool) CellPtr {
	h := ev.Heap
	var frame, exc CellPtr
	if special {
		frame = h.BuildSpecialFrame(lam, argForms, previous)
	} else {
		frame, exc = ev.BuildRegularFrame(lam, argForms, env, previous)
		if !exc.IsNil() {
			return exc
		}
	}
	args := h.FrameArgs(frame)
	bodyEnv, bindExc := h.bindFormals(h.LambdaArgs(lam), args, env)
	if !bindExc.IsNil() {
		h.Dec(frame)
		return bindExc
	}
	ev.currentFrame = frame
	result := ev.Progn(h.LambdaBody(lam), bodyEnv)
	ev.currentFrame = previous
	h.Dec(frame)
	return result
}

// bindFormals binds a LMDA/NLMD formal-parameter list against already
// resolved argument values: a single trailing symbol soaks up the
// remaining arguments as a list (spec §4.8, "Varargs").
func (h *Heap) bindFormals(formals CellPtr, args []CellPtr, env CellPtr) (CellPtr, CellPtr) {
	if h.IsSymbol(formals) {
		return h.Set(formals, h.SliceToList(args), env), NilPtr
	}
	cursor := formals
	i := 0
	for h.IsCons(cursor) {
		pl := h.cell(cursor).Payload.(consPayload)
		if i >= len(args) {
			return NilPtr, h.NewException(ExcArityOrTypeMismatch, "too few arguments", NilPtr)
		}
		env = h.Set(pl.car, args[i], env)
		i++
		cursor = pl.cdr
	}
	if h.IsSymbol(cursor) {
		env = h.Set(cursor, h.SliceToList(args[i:]), env)
	} else if i < len(args) {
		return NilPtr, h.NewException(ExcArityOrTypeMismatch, "too many arguments", NilPtr)
	}
	return env, NilPtr
}

// applyKeyword treats a keyword applied to one form as a map lookup:
// `(:k m)` ≡ `(assoc :k m)` (spec §4.8). Exceptions additionally
// answer `:message`, `:kind` and `:frame` so `try`'s catch clause can
// destructure `*exception*` the same way it would a hashmap.
func (ev *Evaluator) applyKeyword(head, argForms, env CellPtr) CellPtr {
	h := ev.Heap
	if !h.IsCons(argForms) {
		return h.NewException(ExcArityOrTypeMismatch, "keyword application needs one argument", ev.currentFrame)
	}
	pl := h.cell(argForms).Payload.(consPayload)
	target := ev.Eval(pl.car, env)
	defer h.Dec(target)

	// An EXEP target is not a propagating failure here: keyword
	// access is how callers (notably `try`'s catch clause) pull
	// fields out of *exception*, so it is handled like a hashmap
	// lookup rather than short-circuited.
	if h.IsException(target) {
		return exceptionField(h, target, head)
	}
	if h.IsHashMap(target) {
		val, ok := h.HashMapGet(target, head)
		if !ok {
			return NilPtr
		}
		h.Inc(val)
		return val
	}
	return h.NewException(ExcArityOrTypeMismatch, "keyword application target is not a map", ev.currentFrame)
}

func exceptionField(h *Heap, exc, key CellPtr) CellPtr {
	switch h.ChainToString(key) {
	case "message":
		msg := h.ExceptionMessage(exc)
		h.Inc(msg)
		return msg
	case "frame":
		fr := h.ExceptionFrame(exc)
		h.Inc(fr)
		return fr
	case "kind":
		return h.NewKeywordFrom(string(h.ExceptionKind(exc)))
	default:
		return NilPtr
	}
}

// applyHashMap treats a VECP/HASH cell applied to one form as a key
// lookup: `(m key)` ≡ `(assoc key m)`.
func (ev *Evaluator) applyHashMap(m, argForms, env CellPtr) CellPtr {
	h := ev.Heap
	if !h.IsCons(argForms) {
		return h.NewException(ExcArityOrTypeMismatch, "map application needs one argument", ev.currentFrame)
	}
	pl := h.cell(argForms).Payload.(consPayload)
	key := ev.Eval(pl.car, env)
	if h.IsException(key) {
		return key
	}
	defer h.Dec(key)
	val, ok := h.HashMapGet(m, key)
	if !ok {
		return NilPtr
	}
	h.Inc(val)
	return val
}

// Progn walks a list of forms, evaluating each in order under env,
// returning the value of the last; an exception anywhere short
// circuits the walk (spec §4.8, "Body evaluation").
func (ev *Evaluator) Progn(forms, env CellPtr) CellPtr {
	h := ev.Heap
	result := NilPtr
	h.Inc(result)
	cursor := forms
	for h.IsCons(cursor) {
		pl := h.cell(cursor).Payload.(consPayload)
		h.Dec(result)
		result = ev.Eval(pl.car, env)
		if h.IsException(result) {
			return result
		}
		cursor = pl.cdr
	}
	return result
}

// Try implements `try`: evaluate body forms until one raises, bind
// `*exception*` in a fresh env extension, then evaluate the catch
// forms (spec §4.8). This is invoked from the `try` special form in
// the builtins package, which receives the raw body/catch forms in
// its special frame.
func (ev *Evaluator) Try(body, catchForms, env CellPtr) CellPtr {
	h := ev.Heap
	result := ev.Progn(body, env)
	if !h.IsException(result) {
		return result
	}
	excSym := h.NewSymbolFrom("*exception*")
	catchEnv := h.Set(excSym, result, env)
	h.Dec(excSym)
	h.Dec(result)
	return ev.Progn(catchForms, catchEnv)
}
