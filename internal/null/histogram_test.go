package null

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRightTailPTiesCountAsExceeding(t *testing.T) {
	h := NewHistogram()
	for _, v := range []float64{0.001, 0.002, 0.002, 0.003} {
		h.Add(v)
	}

	// Mass at or above the queried value, ties included.
	assert.InDelta(t, 1.0, h.RightTailP(0.0005), 1e-12)
	assert.InDelta(t, 0.75, h.RightTailP(0.002), 1e-12)
	assert.InDelta(t, 0.25, h.RightTailP(0.003), 1e-12)
	assert.InDelta(t, 0.0, h.RightTailP(0.5), 1e-12)
}

func TestRightTailPEmptyHistogram(t *testing.T) {
	h := NewHistogram()
	assert.Equal(t, 1.0, h.RightTailP(0.1))
}

func TestQuantile(t *testing.T) {
	h := NewHistogram()
	for i := 1; i <= 100; i++ {
		h.Add(float64(i) * 0.001)
	}
	// The 0.95 quantile falls at the 95th value's bin edge.
	q := h.Quantile(0.95)
	assert.InDelta(t, 0.095, q, 2e-5)
	assert.Greater(t, h.Quantile(0.99), q)
}

func TestDegenerate(t *testing.T) {
	h := NewHistogram()
	assert.True(t, h.Degenerate(), "empty histogram is degenerate")

	h.Add(0.002)
	h.Add(0.002)
	assert.True(t, h.Degenerate(), "single occupied bin is degenerate")

	h.Add(0.1)
	assert.False(t, h.Degenerate())
}

func TestMergeCommutes(t *testing.T) {
	a1, b1 := NewHistogram(), NewHistogram()
	a2, b2 := NewHistogram(), NewHistogram()
	for i := 0; i < 50; i++ {
		v := float64(i) * 0.0007
		a1.Add(v)
		a2.Add(v)
	}
	for i := 0; i < 30; i++ {
		v := float64(i) * 0.0011
		b1.Add(v)
		b2.Add(v)
	}

	a1.Merge(b1) // a then b
	b2.Merge(a2) // b then a
	assert.True(t, a1.Equal(b2))
	assert.Equal(t, uint64(80), a1.Total())
}
