package pscore

import (
	"strconv"

	"go.uber.org/zap"
)

// Heap geometry. The source fixes 1024 cells per page and 64 pages
// (65536 cells) before exhaustion; Go has no reason to keep that
// ceiling this low, but the defaults are kept identical so the
// allocator's page/offset behaviour matches the spec exactly and a
// host embedding can still raise heap.page_cap via Config.
const (
	ConsPageSize       = 1024
	MaxConsPages       = 64
	DefaultHashBuckets = 256

	// MaxRefcount is the sentinel meaning "pinned — never decrement,
	// never free". NIL and T are allocated with this count.
	MaxRefcount uint32 = ^uint32(0)
)

// CellPtr is the opaque (page, offset) handle spec §9 calls out as
// deliberately not a raw pointer. -1/-1 is never a legal cell and is
// used internally as the "freelist is empty" sentinel.
type CellPtr struct {
	Page   int32
	Offset int32
}

var (
	NilPtr     = CellPtr{0, 0}
	TPtr       = CellPtr{0, 1}
	noFreeCell = CellPtr{-1, -1}
)

func (p CellPtr) IsNil() bool { return p == NilPtr }
func (p CellPtr) IsT() bool   { return p == TPtr }

// Cell is one fixed-size slot of the paged heap. Payload holds one of
// the *Payload structs from tags.go, selected by Tag; Go's type
// system replaces the C union, the invariant "tag determines payload
// shape" is enforced by never touching Payload except through the
// tag-checked accessors in value.go.
type Cell struct {
	Tag      Tag
	Refcount uint32
	ACL      CellPtr
	Payload  interface{}
}

// Heap is the cell heap: a paged array with a freelist, plus the
// vector heap it backs VECP cells with.
type Heap struct {
	pages    [][]Cell
	freelist CellPtr
	pageCap  int
	vectors  *vectorHeap
	oom      CellPtr
	log      *zap.SugaredLogger

	// tolerance is the fraction of the larger magnitude two REAL values
	// may differ by and still compare equal (spec §4.4, "Real equality
	// is tolerance-based": within 1 part in 10^6 of the larger value).
	tolerance float64
}

// NewHeap allocates the first page (reserving offsets 0/1 for NIL and
// T), builds the backing vector heap, and pre-builds the pinned
// OUT_OF_MEMORY exception cell per spec §4.1.
func NewHeap(cfg *Config, log *zap.SugaredLogger) *Heap {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &Heap{
		pageCap:  cfg.PageCap(),
		freelist: noFreeCell,
		log:      log,
	}
	h.vectors = newVectorHeap(cfg.HashmapBuckets())
	tol, err := strconv.ParseFloat(cfg.RealToleranceRaw(), 64)
	if err != nil {
		tol = 1e-6
	}
	h.tolerance = tol
	h.growPage()
	h.oom = h.buildOOM()
	return h
}

func (h *Heap) growPage() {
	pageIdx := int32(len(h.pages))
	page := make([]Cell, ConsPageSize)

	start := 0
	if pageIdx == 0 {
		page[0] = Cell{Tag: TagNil, Refcount: MaxRefcount, Payload: consPayload{car: NilPtr, cdr: NilPtr}}
		page[1] = Cell{Tag: TagTrue, Refcount: MaxRefcount, Payload: consPayload{car: TPtr, cdr: TPtr}}
		start = 2
	}
	for i := start; i < ConsPageSize; i++ {
		page[i] = Cell{Tag: TagFree, Payload: freePayload{next: h.freelist}}
		h.freelist = CellPtr{Page: pageIdx, Offset: int32(i)}
	}
	h.pages = append(h.pages, page)
	h.log.Debugw("allocated cell page", "category", "alloc", "page", pageIdx, "size", ConsPageSize)
}

func (h *Heap) cell(p CellPtr) *Cell {
	return &h.pages[p.Page][p.Offset]
}

// Allocate pops the freelist head, growing the heap by one page (and
// retrying) if it's empty. Once the page cap is reached it returns the
// pre-built, pinned OUT_OF_MEMORY exception instead of panicking.
func (h *Heap) Allocate(tag Tag) CellPtr {
	if h.freelist == noFreeCell {
		if len(h.pages) >= h.pageCap {
			h.log.Warnw("cell heap exhausted", "category", "alloc", "pages", len(h.pages), "page_cap", h.pageCap)
			return h.oom
		}
		h.growPage()
	}
	p := h.freelist
	cell := h.cell(p)
	h.freelist = cell.Payload.(freePayload).next
	cell.Tag = tag
	cell.Refcount = 0
	cell.ACL = NilPtr
	cell.Payload = nil
	return p
}

// Inc increments a cell's refcount. Pinned cells (NIL, T, OUT_OF_MEMORY)
// are exempt.
func (h *Heap) Inc(p CellPtr) {
	cell := h.cell(p)
	if cell.Refcount == MaxRefcount {
		return
	}
	cell.Refcount++
}

// Dec decrements a cell's refcount, cascading to free and recursively
// decrement every child pointer when the count reaches zero.
func (h *Heap) Dec(p CellPtr) {
	cell := h.cell(p)
	if cell.Refcount == MaxRefcount {
		return
	}
	if cell.Tag == TagFree {
		h.log.Errorw("decrementing a free cell", "category", "alloc", "page", p.Page, "offset", p.Offset)
		return
	}
	if cell.Refcount == 0 {
		h.log.Errorw("decrementing a cell with refcount already zero", "category", "alloc", "page", p.Page, "offset", p.Offset)
		return
	}
	cell.Refcount--
	if cell.Refcount == 0 {
		h.free(p)
	}
}

// free cascades the decrement across every cell-pointer payload slot
// before returning the cell to the freelist.
func (h *Heap) free(p CellPtr) {
	cell := h.cell(p)
	switch cell.Tag {
	case TagCons:
		pl := cell.Payload.(consPayload)
		h.Dec(pl.car)
		h.Dec(pl.cdr)
	case TagString, TagSymbol, TagKeyword:
		pl := cell.Payload.(charPayload)
		if !pl.next.IsNil() {
			h.Dec(pl.next)
		}
	case TagInteger:
		pl := cell.Payload.(intPayload)
		if !pl.more.IsNil() {
			h.Dec(pl.more)
		}
	case TagRatio:
		pl := cell.Payload.(ratioPayload)
		h.Dec(pl.dividend)
		h.Dec(pl.divisor)
	case TagLambda, TagNLambda:
		pl := cell.Payload.(lambdaPayload)
		h.Dec(pl.args)
		h.Dec(pl.body)
	case TagFunction, TagSpecial:
		pl := cell.Payload.(funcPayload)
		if !pl.meta.IsNil() {
			h.Dec(pl.meta)
		}
	case TagReadStream, TagWriteStream:
		pl := cell.Payload.(streamPayload)
		if pl.handle != nil {
			_ = pl.handle.Close()
		}
		if !pl.meta.IsNil() {
			h.Dec(pl.meta)
		}
	case TagException:
		pl := cell.Payload.(exceptionPayload)
		if !pl.message.IsNil() {
			h.Dec(pl.message)
		}
		if !pl.frame.IsNil() {
			h.Dec(pl.frame)
		}
	case TagVector:
		pl := cell.Payload.(vectorPayload)
		h.vectors.free(h, pl.addr)
	}

	h.log.Debugw("freeing cell", "category", "alloc", "page", p.Page, "offset", p.Offset, "tag", cell.Tag.String())
	cell.Tag = TagFree
	cell.Payload = freePayload{next: h.freelist}
	h.freelist = p
}

func (h *Heap) buildOOM() CellPtr {
	msg := h.NewStringFrom("heap exhausted")
	p := h.Allocate(TagException)
	h.cell(p).Payload = exceptionPayload{kind: ExcOutOfMemory, message: msg, frame: NilPtr}
	h.cell(p).Refcount = MaxRefcount
	return p
}
