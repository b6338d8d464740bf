package pscore

// Frame construction builds the STFR vector object behind a VECP cell
// (spec §4.7): a previous-frame pointer, eight registers, an overflow
// list for the ninth-and-later argument, the function invoked, and an
// argument count. Registers and overflow elements are owned by the
// frame — setting one increments its refcount, and freeing the frame
// (via the vector heap's ordinary cascading free) decrements them all.

// NewFrame allocates an empty frame linked to previous, for function.
func (h *Heap) NewFrame(previous, function CellPtr) CellPtr {
	h.Inc(previous)
	h.Inc(function)
	return h.newVectorCell(VecFrame, frameObj{
		previous:     previous,
		function:     function,
		overflow:     NilPtr,
		overflowTail: NilPtr,
	})
}

// setFrameArg stores value into the frame's argument slot idx (0-7),
// incrementing its refcount; idx 8+ appends to the tail of the
// overflow list instead, so arguments beyond the eighth stay in
// left-to-right call order (spec §4.7).
func (h *Heap) setFrameArg(frame CellPtr, idx int, value CellPtr) {
	obj := h.vectorObjectAt(frame)
	fr := obj.payload.(frameObj)
	if idx < 8 {
		h.Inc(value)
		fr.registers[idx] = value
	} else {
		// NewCons takes the overflow element's one reference itself.
		node := h.NewCons(value, NilPtr)
		if fr.overflow.IsNil() {
			fr.overflow = node
		} else {
			tail := h.cell(fr.overflowTail)
			tailPl := tail.Payload.(consPayload)
			tailPl.cdr = node
			tail.Payload = tailPl
		}
		fr.overflowTail = node
	}
	fr.argCount++
	obj.payload = fr
}

func (h *Heap) FramePrevious(frame CellPtr) CellPtr {
	return h.vectorObjectAt(frame).payload.(frameObj).previous
}

func (h *Heap) FrameFunction(frame CellPtr) CellPtr {
	return h.vectorObjectAt(frame).payload.(frameObj).function
}

func (h *Heap) FrameArgCount(frame CellPtr) int {
	return h.vectorObjectAt(frame).payload.(frameObj).argCount
}

// FrameRegister returns register idx (0-7); the 9th and later
// arguments live in FrameOverflow instead.
func (h *Heap) FrameRegister(frame CellPtr, idx int) CellPtr {
	return h.vectorObjectAt(frame).payload.(frameObj).registers[idx]
}

// FrameOverflow returns the list of arguments beyond the eighth, in
// left-to-right order (spec §4.7 builds it by left-to-right append;
// setFrameArg maintains a tail pointer so each append lands in place).
func (h *Heap) FrameOverflow(frame CellPtr) CellPtr {
	return h.vectorObjectAt(frame).payload.(frameObj).overflow
}

// FrameArgs returns every argument (registers then overflow) as one
// slice, in call order — the shape most primitives and lambda binding
// want to work with.
func (h *Heap) FrameArgs(frame CellPtr) []CellPtr {
	n := h.FrameArgCount(frame)
	out := make([]CellPtr, 0, n)
	lim := n
	if lim > 8 {
		lim = 8
	}
	for i := 0; i < lim; i++ {
		out = append(out, h.FrameRegister(frame, i))
	}
	if n > 8 {
		items, _ := h.ListToSlice(h.FrameOverflow(frame))
		out = append(out, items...)
	}
	return out
}

// releaseFrame decrements a partially or fully built frame; used when
// argument evaluation raises an exception mid-build (spec §4.8's
// BUILD_FRAME → PROPAGATE_EXCEPTION transition releases the pending
// partial frame).
func (h *Heap) releaseFrame(frame CellPtr) {
	h.Dec(frame)
}

// BuildRegularFrame evaluates each argument form left to right under
// ev and stores the results; on the first exception it releases the
// partial frame and returns (NilPtr, exception).
func (ev *Evaluator) BuildRegularFrame(function, argForms, env, previous CellPtr) (CellPtr, CellPtr) {
	h := ev.Heap
	frame := h.NewFrame(previous, function)
	idx := 0
	cursor := argForms
	for h.IsCons(cursor) {
		pl := h.cell(cursor).Payload.(consPayload)
		val := ev.Eval(pl.car, env)
		if h.IsException(val) {
			h.releaseFrame(frame)
			return NilPtr, val
		}
		h.setFrameArg(frame, idx, val)
		h.Dec(val)
		idx++
		cursor = pl.cdr
	}
	return frame, NilPtr
}

// BuildSpecialFrame stores every argument form unevaluated, for SPFM
// and NLMD dispatch (spec §4.7, "special frame construction").
func (h *Heap) BuildSpecialFrame(function, argForms, previous CellPtr) CellPtr {
	frame := h.NewFrame(previous, function)
	idx := 0
	cursor := argForms
	for h.IsCons(cursor) {
		pl := h.cell(cursor).Payload.(consPayload)
		h.setFrameArg(frame, idx, pl.car)
		idx++
		cursor = pl.cdr
	}
	return frame
}
