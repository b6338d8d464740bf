package pscore

// This file holds the tagged-value constructors and predicates: the
// Go-shaped equivalent of the source's consspaceobject.c constructor
// family. Every structural constructor increments the refcount of
// the child pointers it stores, per spec §3 "Lifecycle", and also
// retains the cell it hands back — so every New* function in this
// codebase returns a value the immediate caller already owns one
// reference to, rather than pushing a separate "remember to retain
// the return value" step onto every one of the dozens of call sites
// that thread values through eval/apply. A caller that discards the
// value without storing it elsewhere must Dec it.

func (h *Heap) NewCons(car, cdr CellPtr) CellPtr {
	h.Inc(car)
	h.Inc(cdr)
	p := h.Allocate(TagCons)
	h.cell(p).Payload = consPayload{car: car, cdr: cdr}
	h.Inc(p)
	return p
}

func (h *Heap) Car(p CellPtr) CellPtr { return h.cell(p).Payload.(consPayload).car }
func (h *Heap) Cdr(p CellPtr) CellPtr { return h.cell(p).Payload.(consPayload).cdr }

func (h *Heap) Tag(p CellPtr) Tag { return h.cell(p).Tag }

func (h *Heap) IsNil(p CellPtr) bool       { return h.cell(p).Tag == TagNil }
func (h *Heap) IsTrue(p CellPtr) bool      { return h.cell(p).Tag == TagTrue }
func (h *Heap) IsCons(p CellPtr) bool      { return h.cell(p).Tag == TagCons }
func (h *Heap) IsString(p CellPtr) bool    { return h.cell(p).Tag == TagString }
func (h *Heap) IsSymbol(p CellPtr) bool    { return h.cell(p).Tag == TagSymbol }
func (h *Heap) IsKeyword(p CellPtr) bool   { return h.cell(p).Tag == TagKeyword }
func (h *Heap) IsInteger(p CellPtr) bool   { return h.cell(p).Tag == TagInteger }
func (h *Heap) IsRatio(p CellPtr) bool     { return h.cell(p).Tag == TagRatio }
func (h *Heap) IsReal(p CellPtr) bool      { return h.cell(p).Tag == TagReal }
func (h *Heap) IsLambda(p CellPtr) bool    { return h.cell(p).Tag == TagLambda }
func (h *Heap) IsNLambda(p CellPtr) bool   { return h.cell(p).Tag == TagNLambda }
func (h *Heap) IsFunction(p CellPtr) bool  { return h.cell(p).Tag == TagFunction }
func (h *Heap) IsSpecial(p CellPtr) bool   { return h.cell(p).Tag == TagSpecial }
func (h *Heap) IsException(p CellPtr) bool { return h.cell(p).Tag == TagException }
func (h *Heap) IsVector(p CellPtr) bool    { return h.cell(p).Tag == TagVector }
func (h *Heap) IsHashMap(p CellPtr) bool {
	return h.IsVector(p) && h.cell(p).Payload.(vectorPayload).vtag == VecHash
}
func (h *Heap) IsNumber(p CellPtr) bool {
	return h.IsInteger(p) || h.IsRatio(p) || h.IsReal(p)
}
func (h *Heap) IsCallable(p CellPtr) bool {
	switch h.cell(p).Tag {
	case TagFunction, TagSpecial, TagLambda, TagNLambda, TagKeyword:
		return true
	}
	return h.IsHashMap(p)
}

// IsSequence matches anything car/cdr-walkable: CONS or NIL.
func (h *Heap) IsSequence(p CellPtr) bool {
	return h.IsCons(p) || h.IsNil(p)
}

// ---- strings / symbols / keywords ----

// newCharChain is shared machinery for STRG/SYMB/KEYW, which only
// differ by tag (spec §3 "Strings and symbols").
func (h *Heap) newCharChain(tag Tag, s string) CellPtr {
	runes := []rune(s)
	chain := NilPtr
	for i := len(runes) - 1; i >= 0; i-- {
		h.Inc(chain)
		p := h.Allocate(tag)
		h.cell(p).Payload = charPayload{char: runes[i], next: chain}
		chain = p
	}
	if chain.IsNil() {
		// empty string: single cell with the sentinel character 0
		h.Inc(NilPtr)
		p := h.Allocate(tag)
		h.cell(p).Payload = charPayload{char: 0, next: NilPtr}
		chain = p
	}
	h.computeChainHash(chain)
	h.Inc(chain)
	return chain
}

func (h *Heap) NewStringFrom(s string) CellPtr  { return h.newCharChain(TagString, s) }
func (h *Heap) NewSymbolFrom(s string) CellPtr  { return h.newCharChain(TagSymbol, s) }
func (h *Heap) NewKeywordFrom(s string) CellPtr { return h.newCharChain(TagKeyword, s) }

// ChainToString walks a STRG/SYMB/KEYW chain back into a Go string.
// The lone-sentinel-cell empty string decodes to "".
func (h *Heap) ChainToString(p CellPtr) string {
	var runes []rune
	cursor := p
	for !cursor.IsNil() {
		pl := h.cell(cursor).Payload.(charPayload)
		if pl.char == 0 && pl.next.IsNil() && cursor == p {
			break
		}
		runes = append(runes, pl.char)
		cursor = pl.next
	}
	return string(runes)
}

// ---- lists ----

// SliceToList builds a CONS chain from a Go slice, most-recently-last.
func (h *Heap) SliceToList(items []CellPtr) CellPtr {
	result := NilPtr
	for i := len(items) - 1; i >= 0; i-- {
		result = h.NewCons(items[i], result)
	}
	return result
}

// ListToSlice walks a (possibly improper) list into a Go slice plus
// the final tail (NIL for a proper list).
func (h *Heap) ListToSlice(p CellPtr) (items []CellPtr, tail CellPtr) {
	cursor := p
	for h.IsCons(cursor) {
		pl := h.cell(cursor).Payload.(consPayload)
		items = append(items, pl.car)
		cursor = pl.cdr
	}
	return items, cursor
}

func (h *Heap) ListLength(p CellPtr) int {
	items, _ := h.ListToSlice(p)
	return len(items)
}

// ---- lambda / nlambda ----

func (h *Heap) NewLambda(args, body CellPtr) CellPtr {
	h.Inc(args)
	h.Inc(body)
	p := h.Allocate(TagLambda)
	h.cell(p).Payload = lambdaPayload{args: args, body: body}
	h.Inc(p)
	return p
}

func (h *Heap) NewNLambda(args, body CellPtr) CellPtr {
	h.Inc(args)
	h.Inc(body)
	p := h.Allocate(TagNLambda)
	h.cell(p).Payload = lambdaPayload{args: args, body: body}
	h.Inc(p)
	return p
}

func (h *Heap) LambdaArgs(p CellPtr) CellPtr { return h.cell(p).Payload.(lambdaPayload).args }
func (h *Heap) LambdaBody(p CellPtr) CellPtr { return h.cell(p).Payload.(lambdaPayload).body }

// ---- function / special form ----

func (h *Heap) NewFunction(name string, impl HostFunc) CellPtr {
	p := h.Allocate(TagFunction)
	h.cell(p).Payload = funcPayload{name: name, meta: NilPtr, impl: impl}
	h.Inc(p)
	return p
}

func (h *Heap) NewSpecialForm(name string, impl HostFunc) CellPtr {
	p := h.Allocate(TagSpecial)
	h.cell(p).Payload = funcPayload{name: name, meta: NilPtr, impl: impl}
	h.Inc(p)
	return p
}

func (h *Heap) FuncImpl(p CellPtr) HostFunc { return h.cell(p).Payload.(funcPayload).impl }
func (h *Heap) FuncName(p CellPtr) string   { return h.cell(p).Payload.(funcPayload).name }

// ---- exceptions ----

// NewException builds an EXEP cell carrying a human-readable message
// and the stack frame at which it was thrown, per spec §7.
func (h *Heap) NewException(kind ExceptionKind, message string, frame CellPtr) CellPtr {
	msg := h.NewStringFrom(message)
	h.Inc(frame)
	p := h.Allocate(TagException)
	h.cell(p).Payload = exceptionPayload{kind: kind, message: msg, frame: frame}
	h.Inc(p)
	return p
}

func (h *Heap) ExceptionKind(p CellPtr) ExceptionKind {
	return h.cell(p).Payload.(exceptionPayload).kind
}
func (h *Heap) ExceptionMessage(p CellPtr) CellPtr {
	return h.cell(p).Payload.(exceptionPayload).message
}
func (h *Heap) ExceptionFrame(p CellPtr) CellPtr {
	return h.cell(p).Payload.(exceptionPayload).frame
}

// ---- streams ----

func (h *Heap) NewReadStream(handle Stream, meta CellPtr) CellPtr {
	h.Inc(meta)
	p := h.Allocate(TagReadStream)
	h.cell(p).Payload = streamPayload{handle: handle, meta: meta}
	h.Inc(p)
	return p
}

func (h *Heap) NewWriteStream(handle Stream, meta CellPtr) CellPtr {
	h.Inc(meta)
	p := h.Allocate(TagWriteStream)
	h.cell(p).Payload = streamPayload{handle: handle, meta: meta}
	h.Inc(p)
	return p
}

func (h *Heap) StreamHandle(p CellPtr) Stream { return h.cell(p).Payload.(streamPayload).handle }
func (h *Heap) StreamMeta(p CellPtr) CellPtr  { return h.cell(p).Payload.(streamPayload).meta }

// ---- DeepEqual ----

// DeepEqual implements structural equality across the tagged value
// model: used by assoc's association-list walk, hashmap bucket
// lookup, and the `equal` primitive. Numeric comparison defers to the
// numeric tower (numeric.go) so 1 and 1/1 and 1.0 compare per spec
// §4.4, not by tag.
func (h *Heap) DeepEqual(a, b CellPtr) bool {
	if a == b {
		return true
	}
	ta, tb := h.cell(a).Tag, h.cell(b).Tag

	if (ta == TagInteger || ta == TagRatio || ta == TagReal) &&
		(tb == TagInteger || tb == TagRatio || tb == TagReal) {
		return h.NumericEqual(a, b)
	}

	if ta != tb {
		return false
	}
	switch ta {
	case TagNil, TagTrue:
		return true
	case TagString, TagSymbol, TagKeyword:
		return h.ChainToString(a) == h.ChainToString(b)
	case TagCons:
		pa, pb := h.cell(a).Payload.(consPayload), h.cell(b).Payload.(consPayload)
		return h.DeepEqual(pa.car, pb.car) && h.DeepEqual(pa.cdr, pb.cdr)
	default:
		return false
	}
}
