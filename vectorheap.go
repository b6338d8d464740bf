package pscore

import (
	"hash/maphash"
	"unicode/utf8"
)

// vectorObject is one variable-size object living in the vector heap:
// a header {tag, back-reference, payload} the spec calls for, with
// `payload` narrowed from a raw byte blob (as the C source has it) to
// a Go interface holding one of hashMapObj/frameObj, since Go has no
// need to lay these out as a byte-counted blob to get the "single
// canonical VECP cell per object" invariant.
type vectorObject struct {
	vtag    VecTag
	back    CellPtr
	payload interface{}
	live    bool
}

// vectorHeap is the variable-size object heap: a growable slice of
// vectorObject with its own freelist of indices, mirroring the cell
// heap's page/freelist shape at a coarser grain.
type vectorHeap struct {
	objects        []vectorObject
	free           []int
	defaultBuckets int
	seed           maphash.Seed
}

func newVectorHeap(defaultBuckets int) *vectorHeap {
	return &vectorHeap{defaultBuckets: defaultBuckets, seed: maphash.MakeSeed()}
}

func (vh *vectorHeap) alloc(vtag VecTag, back CellPtr, payload interface{}) int {
	obj := vectorObject{vtag: vtag, back: back, payload: payload, live: true}
	if n := len(vh.free); n > 0 {
		idx := vh.free[n-1]
		vh.free = vh.free[:n-1]
		vh.objects[idx] = obj
		return idx
	}
	vh.objects = append(vh.objects, obj)
	return len(vh.objects) - 1
}

func (vh *vectorHeap) get(addr int) *vectorObject {
	return &vh.objects[addr]
}

// free releases a vector object's backing storage, decrementing every
// cell pointer its payload owns.
func (vh *vectorHeap) free(h *Heap, addr int) {
	obj := &vh.objects[addr]
	switch obj.vtag {
	case VecHash:
		hm := obj.payload.(hashMapObj)
		for _, bucket := range hm.buckets {
			if !bucket.IsNil() {
				h.Dec(bucket)
			}
		}
		if !hm.writeACL.IsNil() {
			h.Dec(hm.writeACL)
		}
	case VecFrame:
		fr := obj.payload.(frameObj)
		for _, r := range fr.registers {
			if !r.IsNil() {
				h.Dec(r)
			}
		}
		if !fr.overflow.IsNil() {
			h.Dec(fr.overflow)
		}
		if !fr.previous.IsNil() {
			h.Dec(fr.previous)
		}
		if !fr.function.IsNil() {
			h.Dec(fr.function)
		}
	}
	obj.live = false
	obj.payload = nil
	vh.free = append(vh.free, addr)
}

// newVectorCell wraps a freshly allocated vector object in its one
// canonical VECP cell.
// newVectorCell wraps a fresh vector object and retains it on the
// caller's behalf — every public function built on it (NewHashMap,
// HashMapPut, NewFrame) hands back a value the caller owns, per the
// ownership convention in value.go's doc comment.
func (h *Heap) newVectorCell(vtag VecTag, payload interface{}) CellPtr {
	p := h.Allocate(TagVector)
	addr := h.vectors.alloc(vtag, p, payload)
	h.cell(p).Payload = vectorPayload{vtag: vtag, addr: addr}
	h.Inc(p)
	return p
}

func (h *Heap) vectorObjectAt(p CellPtr) *vectorObject {
	pl := h.cell(p).Payload.(vectorPayload)
	return h.vectors.get(pl.addr)
}

// ---- Hashmap ----

type hashMapObj struct {
	buckets  []CellPtr // each bucket: NIL or a cons-chain of (key . value) conses
	writeACL CellPtr
}

// NewHashMap builds an empty, persistent hashmap with the heap's
// configured default bucket count.
func (h *Heap) NewHashMap() CellPtr {
	buckets := make([]CellPtr, h.vectors.defaultBuckets)
	for i := range buckets {
		buckets[i] = NilPtr
	}
	return h.newVectorCell(VecHash, hashMapObj{buckets: buckets, writeACL: NilPtr})
}

func (h *Heap) bucketCount(m CellPtr) int {
	return len(h.vectorObjectAt(m).payload.(hashMapObj).buckets)
}

// HashMapPut returns a new hashmap sharing every bucket but the one
// the key hashes into; that bucket gets the new (key . value) pair
// prepended, per spec §4.2.
func (h *Heap) HashMapPut(m, key, value CellPtr) CellPtr {
	obj := h.vectorObjectAt(m).payload.(hashMapObj)
	idx := int(h.KeyHash(key)) % len(obj.buckets)
	if idx < 0 {
		idx += len(obj.buckets)
	}

	newBuckets := make([]CellPtr, len(obj.buckets))
	copy(newBuckets, obj.buckets)
	for i, b := range newBuckets {
		if i != idx && !b.IsNil() {
			h.Inc(b)
		}
	}

	pair := h.NewCons(key, value)
	newBuckets[idx] = h.NewCons(pair, newBuckets[idx])

	return h.newVectorCell(VecHash, hashMapObj{buckets: newBuckets, writeACL: obj.writeACL})
}

// HashMapGet walks the bucket's association list with deep equality
// on keys.
func (h *Heap) HashMapGet(m, key CellPtr) (CellPtr, bool) {
	obj := h.vectorObjectAt(m).payload.(hashMapObj)
	idx := int(h.KeyHash(key)) % len(obj.buckets)
	if idx < 0 {
		idx += len(obj.buckets)
	}
	cursor := obj.buckets[idx]
	for !cursor.IsNil() {
		pair := h.cell(cursor).Payload.(consPayload)
		kv := h.cell(pair.car).Payload.(consPayload)
		if h.DeepEqual(kv.car, key) {
			return kv.cdr, true
		}
		cursor = pair.cdr
	}
	return NilPtr, false
}

// HashMapKeys returns a fresh list of every key across every bucket.
func (h *Heap) HashMapKeys(m CellPtr) CellPtr {
	obj := h.vectorObjectAt(m).payload.(hashMapObj)
	result := NilPtr
	for _, bucket := range obj.buckets {
		cursor := bucket
		for !cursor.IsNil() {
			pair := h.cell(cursor).Payload.(consPayload)
			kv := h.cell(pair.car).Payload.(consPayload)
			result = h.NewCons(kv.car, result)
			cursor = pair.cdr
		}
	}
	return result
}

// KeyHash hashes a string/symbol/keyword cell, mixing its tag into
// the input so keys of different tags never collide conceptually
// (spec §9, "Hashmap hashing").
func (h *Heap) KeyHash(key CellPtr) uint32 {
	cell := h.cell(key)
	if cell.Tag == TagString || cell.Tag == TagSymbol || cell.Tag == TagKeyword {
		pl := cell.Payload.(charPayload)
		if pl.hash != 0 {
			return pl.hash
		}
		return h.computeChainHash(key)
	}
	// non-textual keys (rare, but the contract doesn't forbid them):
	// hash the printed form.
	var hh maphash.Hash
	hh.SetSeed(h.vectors.seed)
	hh.WriteByte(byte(cell.Tag))
	hh.WriteString(PrintCell(h, key))
	return uint32(hh.Sum64())
}

func (h *Heap) computeChainHash(head CellPtr) uint32 {
	tag := h.cell(head).Tag
	var hh maphash.Hash
	hh.SetSeed(h.vectors.seed)
	hh.WriteByte(byte(tag))
	cursor := head
	for !cursor.IsNil() {
		pl := h.cell(cursor).Payload.(charPayload)
		var buf [4]byte
		n := utf8.EncodeRune(buf[:], pl.char)
		hh.Write(buf[:n])
		cursor = pl.next
	}
	sum := uint32(hh.Sum64())
	if head != NilPtr {
		pl := h.cell(head).Payload.(charPayload)
		pl.hash = sum
		h.cell(head).Payload = pl
	}
	return sum
}

// ---- Stack frame vector object ----

// frameObj is the STFR vector payload: previous-frame pointer, the
// eight argument registers, an overflow list for the 9th+ argument,
// the function invoked, and an argument count (spec §4.7).
type frameObj struct {
	previous     CellPtr
	registers    [8]CellPtr
	overflow     CellPtr
	overflowTail CellPtr
	function     CellPtr
	argCount     int
}
