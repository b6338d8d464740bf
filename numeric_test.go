package pscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumeric_RatioSimplifiesByGCD(t *testing.T) {
	h := newTestHeap()
	r := h.NewRatio(h.NewIntegerFromInt64(4), h.NewIntegerFromInt64(8))
	assert.True(t, h.IsInteger(r) || h.IsRatio(r))
	if h.IsRatio(r) {
		dividend, divisor := h.RatioParts(r)
		assert.Equal(t, "1", h.IntegerToString(dividend))
		assert.Equal(t, "2", h.IntegerToString(divisor))
	}
}

func TestNumeric_RatioWithDivisorOneCollapsesToInteger(t *testing.T) {
	h := newTestHeap()
	r := h.NewRatio(h.NewIntegerFromInt64(6), h.NewIntegerFromInt64(3))
	assert.True(t, h.IsInteger(r), "dividing out to a whole number must collapse to INTR")
	assert.Equal(t, "2", h.IntegerToString(r))
}

func TestNumeric_RatioNormalizesSignOntoDividend(t *testing.T) {
	h := newTestHeap()
	r := h.NewRatio(h.NewIntegerFromInt64(3), h.NewIntegerFromInt64(-4))
	require := assert.New(t)
	require.True(h.IsRatio(r))
	dividend, divisor := h.RatioParts(r)
	require.Equal("-3", h.IntegerToString(dividend))
	require.Equal("4", h.IntegerToString(divisor))
}

func TestNumeric_AddCoercesToHigherRank(t *testing.T) {
	h := newTestHeap()
	half := h.NewRatio(h.NewIntegerFromInt64(1), h.NewIntegerFromInt64(2))
	third := h.NewRatio(h.NewIntegerFromInt64(1), h.NewIntegerFromInt64(3))
	sum := h.NumericAdd(half, third)
	assert.True(t, h.IsRatio(sum))
	dividend, divisor := h.RatioParts(sum)
	assert.Equal(t, "5", h.IntegerToString(dividend))
	assert.Equal(t, "6", h.IntegerToString(divisor))
}

func TestNumeric_AddIntegerAndRatio(t *testing.T) {
	h := newTestHeap()
	one := h.NewIntegerFromInt64(1)
	half := h.NewRatio(h.NewIntegerFromInt64(1), h.NewIntegerFromInt64(2))
	sum := h.NumericAdd(one, half)
	assert.True(t, h.IsRatio(sum))
	dividend, divisor := h.RatioParts(sum)
	assert.Equal(t, "3", h.IntegerToString(dividend))
	assert.Equal(t, "2", h.IntegerToString(divisor))
}

func TestNumeric_MixedRealCoercion(t *testing.T) {
	h := newTestHeap()
	two := h.NewIntegerFromInt64(2)
	half := h.NewRealFrom(0.5)
	sum := h.NumericAdd(two, half)
	assert.True(t, h.IsReal(sum))
	assert.InDelta(t, 2.5, h.RealValue(sum), 1e-9)
}

func TestNumeric_DivisionByZeroIsFlagged(t *testing.T) {
	h := newTestHeap()
	_, divZero := h.NumericDivide(h.NewIntegerFromInt64(1), h.NewIntegerFromInt64(0))
	assert.True(t, divZero)
}

func TestNumeric_RealEqualityUsesTolerance(t *testing.T) {
	h := newTestHeap()
	a := h.NewRealFrom(1.0000001)
	b := h.NewRealFrom(1.0000002)
	assert.Equal(t, 0, h.NumericCompare(a, b), "difference under the configured tolerance must compare equal")

	c := h.NewRealFrom(1.0)
	d := h.NewRealFrom(1.1)
	assert.NotEqual(t, 0, h.NumericCompare(c, d))
}

// TestNumeric_RealToleranceIsRelativeNotAbsolute pins down that the
// tolerance scales with magnitude: a difference of 1 part in 10^12 of
// a huge value compares equal, while two tiny values a factor of two
// apart (an absolute gap of only 1e-9) do not.
func TestNumeric_RealToleranceIsRelativeNotAbsolute(t *testing.T) {
	h := newTestHeap()
	big1 := h.NewRealFrom(1e12)
	big2 := h.NewRealFrom(1e12 + 1)
	assert.Equal(t, 0, h.NumericCompare(big1, big2), "1 part in 1e12 is well within relative tolerance of a value this large")

	tiny1 := h.NewRealFrom(1e-9)
	tiny2 := h.NewRealFrom(2e-9)
	assert.NotEqual(t, 0, h.NumericCompare(tiny1, tiny2), "an absolute tolerance would wrongly call these equal")
}

func TestNumeric_CompareAcrossRanks(t *testing.T) {
	h := newTestHeap()
	one := h.NewIntegerFromInt64(1)
	oneHalf := h.NewRatio(h.NewIntegerFromInt64(3), h.NewIntegerFromInt64(2))
	assert.Equal(t, -1, h.NumericCompare(one, oneHalf))
	assert.Equal(t, 1, h.NumericCompare(oneHalf, one))
}
