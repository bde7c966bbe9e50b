// Package ale unions per-study modeled-activation maps into the ALE
// statistic: per voxel, the probability that at least one study truly
// activates there, treating studies as independent evidence.
package ale

import (
	"math"

	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/space"
)

// Accumulator folds MA maps into a running ALE union. The union is
// accumulated in log space as sum(log(1 - MA_i)), converting back to
// linear probability only in Result, so large study sets never
// underflow. Adds commute, which makes the combined map invariant to
// study order.
type Accumulator struct {
	grid space.Grid
	logq []float64 // running sum of log(1 - MA_i) per voxel
}

// NewAccumulator returns an empty accumulator over g.
func NewAccumulator(g space.Grid) *Accumulator {
	return &Accumulator{grid: g, logq: make([]float64, g.Len())}
}

// Reset clears the accumulator for reuse without reallocating.
func (a *Accumulator) Reset() {
	for i := range a.logq {
		a.logq[i] = 0
	}
}

// Add folds one study's MA map into the union.
func (a *Accumulator) Add(m *space.Volume) error {
	if !m.Grid.Same(a.grid) {
		return core.NewGeometryError("MA map does not share the accumulator grid")
	}
	for i, v := range m.Data {
		a.logq[i] += math.Log1p(-v)
	}
	return nil
}

// Result converts the accumulated union into a fresh ALE volume.
func (a *Accumulator) Result() *space.Volume {
	out := space.NewVolume(a.grid)
	a.ResultInto(out)
	return out
}

// ResultInto writes ALE(v) = 1 - exp(sum log(1 - MA_i(v))) into dst,
// which must share the accumulator grid.
func (a *Accumulator) ResultInto(dst *space.Volume) {
	for i, lq := range a.logq {
		v := -math.Expm1(lq)
		if v < 0 {
			v = 0
		}
		dst.Data[i] = v
	}
}

// Combine unions a sequence of MA maps sharing one grid. Deterministic
// given inputs; rejects mixed geometries.
func Combine(maps []*space.Volume) (*space.Volume, error) {
	if len(maps) == 0 {
		return nil, core.ErrInsufficientStudies
	}
	acc := NewAccumulator(maps[0].Grid)
	for _, m := range maps {
		if err := acc.Add(m); err != nil {
			return nil, err
		}
	}
	return acc.Result(), nil
}
