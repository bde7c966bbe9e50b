package null

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamarajafar/NeuroMeta/adapters/rng"
	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/space"
	"github.com/tamarajafar/NeuroMeta/domain/study"
	"github.com/tamarajafar/NeuroMeta/internal/kernel"
	"github.com/tamarajafar/NeuroMeta/internal/ma"
)

func testStudies() []study.Study {
	return []study.Study{
		{Name: "a", SampleSize: 20, Foci: []study.Focus{{X: 4, Y: 4, Z: 4}}},
		{Name: "b", SampleSize: 15, Foci: []study.Focus{{X: 6, Y: 4, Z: 4}, {X: 2, Y: 6, Z: 6}}},
		{Name: "c", SampleSize: 30, Foci: []study.Focus{{X: 4, Y: 6, Z: 2}}},
	}
}

func newEstimator(perms, workers int, seed int64) *Estimator {
	return &Estimator{
		Builder:         ma.NewBuilder(kernel.Default(), 0),
		RNG:             rng.NewSeededAdapter(),
		Permutations:    perms,
		Seed:            seed,
		ClusterFormingP: 0.01,
		Workers:         workers,
	}
}

func testMask(t *testing.T) *space.Mask {
	t.Helper()
	g, err := space.NewIsotropicGrid(5, 5, 5, 2.0)
	require.NoError(t, err)
	return space.FullMask(g)
}

func TestEstimateReproducibleAcrossWorkerCounts(t *testing.T) {
	ctx := context.Background()
	mask := testMask(t)
	studies := testStudies()

	serial, err := newEstimator(50, 1, 42).Estimate(ctx, mask, studies)
	require.NoError(t, err)
	parallel, err := newEstimator(50, 4, 42).Estimate(ctx, mask, studies)
	require.NoError(t, err)

	assert.True(t, serial.Hist.Equal(parallel.Hist), "pooled histograms must be bit-identical")
	assert.Equal(t, serial.MaxALE, parallel.MaxALE)
	assert.Equal(t, serial.MaxClusterSize, parallel.MaxClusterSize)
	assert.Equal(t, serial.ClusterFormingALE, parallel.ClusterFormingALE)
}

func TestEstimateSeedChangesDistribution(t *testing.T) {
	ctx := context.Background()
	mask := testMask(t)
	studies := testStudies()

	a, err := newEstimator(20, 2, 1).Estimate(ctx, mask, studies)
	require.NoError(t, err)
	b, err := newEstimator(20, 2, 2).Estimate(ctx, mask, studies)
	require.NoError(t, err)

	assert.False(t, a.Hist.Equal(b.Hist), "different seeds should permute differently")
}

func TestEstimateRecordsEveryMaskedVoxel(t *testing.T) {
	ctx := context.Background()
	mask := testMask(t)

	dist, err := newEstimator(10, 2, 3).Estimate(ctx, mask, testStudies())
	require.NoError(t, err)

	assert.Equal(t, uint64(10*mask.Count()), dist.Hist.Total())
	assert.Len(t, dist.MaxALE, 10)
	assert.Len(t, dist.MaxClusterSize, 10)
	for _, m := range dist.MaxALE {
		assert.Greater(t, m, 0.0, "a permuted study set always activates somewhere in the mask")
	}
}

func TestEstimateRejectsBadInputs(t *testing.T) {
	ctx := context.Background()
	mask := testMask(t)
	studies := testStudies()

	_, err := newEstimator(0, 1, 0).Estimate(ctx, mask, studies)
	assert.True(t, errors.Is(err, core.ErrInvalidConfiguration))

	empty, err := space.NewMask(mask.Grid, make([]bool, mask.Grid.Len()))
	require.NoError(t, err)
	_, err = newEstimator(10, 1, 0).Estimate(ctx, empty, studies)
	assert.True(t, errors.Is(err, core.ErrEmptyMask))

	_, err = newEstimator(10, 1, 0).Estimate(ctx, mask, nil)
	assert.True(t, errors.Is(err, core.ErrInsufficientStudies))
}

func TestEstimateCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEstimator(1000, 2, 0).Estimate(ctx, testMask(t), testStudies())
	assert.True(t, errors.Is(err, context.Canceled))
}
