package pscore

// An environment is itself a value: NIL, a CONS chain of (key . value)
// bindings over another environment, or a hashmap (spec §4.5). The
// oblist is just the environment value the evaluator starts with, held
// by the caller (evaluator.go) rather than as global state here —
// mirrors the source's "global" being nothing more than the frame
// passed to the top-level read-eval-print loop.

// Assoc walks a cons-chain environment, or looks up the key in a
// hashmap environment, returning (value, found).
func (h *Heap) Assoc(key, env CellPtr) (CellPtr, bool) {
	cursor := env
	for {
		switch h.cell(cursor).Tag {
		case TagNil:
			return NilPtr, false
		case TagVector:
			if h.IsHashMap(cursor) {
				return h.HashMapGet(cursor, key)
			}
			return NilPtr, false
		case TagCons:
			pl := h.cell(cursor).Payload.(consPayload)
			binding := h.cell(pl.car).Payload.(consPayload)
			if h.DeepEqual(binding.car, key) {
				return binding.cdr, true
			}
			cursor = pl.cdr
		default:
			return NilPtr, false
		}
	}
}

// Interned returns the canonical key cell already stored in env for a
// deep-equal key, so later `eq` (pointer) comparisons against it
// succeed — spec §4.5's "interned?".
func (h *Heap) Interned(key, env CellPtr) (CellPtr, bool) {
	cursor := env
	for h.IsCons(cursor) {
		pl := h.cell(cursor).Payload.(consPayload)
		binding := h.cell(pl.car).Payload.(consPayload)
		if h.DeepEqual(binding.car, key) {
			return binding.car, true
		}
		cursor = pl.cdr
	}
	if h.IsHashMap(cursor) {
		obj := h.vectorObjectAt(cursor).payload.(hashMapObj)
		idx := int(h.KeyHash(key)) % len(obj.buckets)
		if idx < 0 {
			idx += len(obj.buckets)
		}
		for b := obj.buckets[idx]; h.IsCons(b); b = h.Cdr(b) {
			if stored := h.Car(h.Car(b)); h.DeepEqual(stored, key) {
				return stored, true
			}
		}
	}
	return NilPtr, false
}

// Set returns a new environment with key bound to value: a cons-chain
// environment grows by prepending a fresh binding cons (never mutating
// an existing one, per spec §4.5); a hashmap environment returns
// HashMapPut's new hashmap.
func (h *Heap) Set(key, value, env CellPtr) CellPtr {
	if h.IsHashMap(env) {
		return h.HashMapPut(env, key, value)
	}
	binding := h.NewCons(key, value)
	return h.NewCons(binding, env)
}

// Intern adds (key . NIL) to env iff key is not already bound there.
func (h *Heap) Intern(key, env CellPtr) CellPtr {
	if _, ok := h.Interned(key, env); ok {
		return env
	}
	return h.Set(key, NilPtr, env)
}

// DeepBind replaces *oblist with Set(key, value, *oblist) — the only
// place an environment pointer is mutated in place, because the
// oblist itself is a variable the host owns, not a cell (spec §4.5,
// "deep_bind").
func (h *Heap) DeepBind(oblist *CellPtr, key, value CellPtr) {
	*oblist = h.Set(key, value, *oblist)
}
