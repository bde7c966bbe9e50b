package ma

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/space"
	"github.com/tamarajafar/NeuroMeta/domain/study"
	"github.com/tamarajafar/NeuroMeta/internal/kernel"
)

// wideGrid is large enough that a default kernel centered in the middle
// keeps its full truncated support inside the bounds.
func wideGrid(t *testing.T) space.Grid {
	t.Helper()
	g, err := space.NewIsotropicGrid(21, 21, 21, 2.0)
	require.NoError(t, err)
	return g
}

func centerStudy(n int) study.Study {
	return study.Study{
		Name:       "center",
		SampleSize: n,
		Foci:       []study.Focus{{X: 20, Y: 20, Z: 20}}, // voxel (10,10,10)
	}
}

func TestBuildUnitMassKernel(t *testing.T) {
	b := NewBuilder(kernel.Default(), 0)
	m, err := b.Build(wideGrid(t), centerStudy(20))
	require.NoError(t, err)
	assert.Zero(t, m.Dropped)

	sum := 0.0
	peak := 0.0
	for _, v := range m.Vol.Data {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
		sum += v
		if v > peak {
			peak = v
		}
	}
	// Fully interior support, so the truncated kernel's mass is intact.
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, peak, m.Vol.At(10, 10, 10), "peak must sit on the focus voxel")
}

func TestBuildMaxCombineWithinStudy(t *testing.T) {
	g := wideGrid(t)
	b := NewBuilder(kernel.Default(), 0)

	single := centerStudy(20)
	doubled := study.Study{
		Name:       "doubled",
		SampleSize: 20,
		Foci:       []study.Focus{{X: 20, Y: 20, Z: 20}, {X: 20, Y: 20, Z: 20}},
	}

	one, err := b.Build(g, single)
	require.NoError(t, err)
	two, err := b.Build(g, doubled)
	require.NoError(t, err)

	// A duplicated focus must not compound: max, not sum.
	assert.Equal(t, one.Vol.Data, two.Vol.Data)
}

func TestBuildNearbyFociDoNotSum(t *testing.T) {
	g := wideGrid(t)
	b := NewBuilder(kernel.Default(), 0)

	s := study.Study{
		Name:       "pair",
		SampleSize: 20,
		Foci:       []study.Focus{{X: 20, Y: 20, Z: 20}, {X: 22, Y: 20, Z: 20}},
	}
	m, err := b.Build(g, s)
	require.NoError(t, err)

	single, err := b.Build(g, centerStudy(20))
	require.NoError(t, err)
	peakAlone := single.Vol.At(10, 10, 10)

	// At the first focus the neighbor contributes less than the local
	// kernel, so the max rule keeps the value at the single-focus peak.
	assert.InDelta(t, peakAlone, m.Vol.At(10, 10, 10), 1e-12)
}

func TestBuildDropsOutOfGridFoci(t *testing.T) {
	g := wideGrid(t)
	b := NewBuilder(kernel.Default(), 0)

	s := study.Study{
		Name:       "stray",
		SampleSize: 20,
		Foci: []study.Focus{
			{X: 20, Y: 20, Z: 20},
			{X: 500, Y: 500, Z: 500},
			{X: -100, Y: 0, Z: 0},
		},
	}
	m, err := b.Build(g, s)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Dropped)

	// The surviving focus still rasterizes.
	assert.Greater(t, m.Vol.At(10, 10, 10), 0.0)
}

func TestBuildRejectsInvalidSampleSize(t *testing.T) {
	b := NewBuilder(kernel.Default(), 0)
	s := centerStudy(0)
	_, err := b.Build(wideGrid(t), s)
	assert.True(t, errors.Is(err, core.ErrInvalidSampleSize))
}

func TestNarrowerKernelForLargerStudy(t *testing.T) {
	g := wideGrid(t)
	b := NewBuilder(kernel.Default(), 0)

	small, err := b.Build(g, centerStudy(8))
	require.NoError(t, err)
	large, err := b.Build(g, centerStudy(200))
	require.NoError(t, err)

	// Same unit mass, tighter spread: the larger study concentrates
	// more probability on the focus voxel.
	assert.Greater(t, large.Vol.At(10, 10, 10), small.Vol.At(10, 10, 10))
}
