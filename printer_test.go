package pscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintCell_Atoms(t *testing.T) {
	h := newTestHeap()
	assert.Equal(t, "()", PrintCell(h, NilPtr))
	assert.Equal(t, "T", PrintCell(h, TPtr))
	assert.Equal(t, "42", PrintCell(h, h.NewIntegerFromInt64(42)))
	assert.Equal(t, "foo", PrintCell(h, h.NewSymbolFrom("foo")))
	assert.Equal(t, ":foo", PrintCell(h, h.NewKeywordFrom("foo")))
	assert.Equal(t, `"hi"`, PrintCell(h, h.NewStringFrom("hi")))
}

func TestPrintCell_StringEscaping(t *testing.T) {
	h := newTestHeap()
	s := h.NewStringFrom("a\"b\\c\nd")
	assert.Equal(t, `"a\"b\\c\nd"`, PrintCell(h, s))
}

func TestPrintCell_Ratio(t *testing.T) {
	h := newTestHeap()
	r := h.NewRatio(h.NewIntegerFromInt64(2), h.NewIntegerFromInt64(3))
	assert.Equal(t, "2/3", PrintCell(h, r))
}

func TestPrintCell_DottedList(t *testing.T) {
	h := newTestHeap()
	p := h.NewCons(h.NewIntegerFromInt64(1), h.NewIntegerFromInt64(2))
	assert.Equal(t, "(1 . 2)", PrintCell(h, p))
}

func TestPrintCell_ProperList(t *testing.T) {
	h := newTestHeap()
	l := h.SliceToList([]CellPtr{h.NewIntegerFromInt64(1), h.NewIntegerFromInt64(2), h.NewIntegerFromInt64(3)})
	assert.Equal(t, "(1 2 3)", PrintCell(h, l))
}

func TestPrintCell_FunctionAndException(t *testing.T) {
	h := newTestHeap()
	fn := h.NewFunction("car", func(ev *Evaluator, frame, env CellPtr) CellPtr { return NilPtr })
	assert.Equal(t, "<function car>", PrintCell(h, fn))

	exc := h.NewException(ExcDivisionByZero, "division by zero", NilPtr)
	assert.Equal(t, "<exception DivisionByZero: division by zero>", PrintCell(h, exc))
}

func TestPrintCell_HashMap(t *testing.T) {
	h := newTestHeap()
	m := h.NewHashMap()
	assert.Equal(t, "<hashmap>", PrintCell(h, m))
}
