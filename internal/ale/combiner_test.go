package ale

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/space"
)

func randomMAMap(t *testing.T, g space.Grid, rng *rand.Rand) *space.Volume {
	t.Helper()
	v := space.NewVolume(g)
	for i := range v.Data {
		v.Data[i] = rng.Float64() * 0.02 // realistic MA magnitudes
	}
	return v
}

func TestCombineMatchesDirectProduct(t *testing.T) {
	g, _ := space.NewIsotropicGrid(4, 4, 4, 2.0)
	rng := rand.New(rand.NewSource(7))
	maps := []*space.Volume{
		randomMAMap(t, g, rng),
		randomMAMap(t, g, rng),
		randomMAMap(t, g, rng),
	}

	combined, err := Combine(maps)
	require.NoError(t, err)

	for idx := range combined.Data {
		q := 1.0
		for _, m := range maps {
			q *= 1 - m.Data[idx]
		}
		assert.InDelta(t, 1-q, combined.Data[idx], 1e-12)
	}
}

func TestCombineCommutativeInStudyOrder(t *testing.T) {
	g, _ := space.NewIsotropicGrid(5, 5, 5, 2.0)
	rng := rand.New(rand.NewSource(11))
	a := randomMAMap(t, g, rng)
	b := randomMAMap(t, g, rng)
	c := randomMAMap(t, g, rng)

	fwd, err := Combine([]*space.Volume{a, b, c})
	require.NoError(t, err)
	rev, err := Combine([]*space.Volume{c, a, b})
	require.NoError(t, err)

	for idx := range fwd.Data {
		assert.InDelta(t, fwd.Data[idx], rev.Data[idx], 1e-14)
	}
}

func TestCombineBoundsAndZeros(t *testing.T) {
	g, _ := space.NewIsotropicGrid(3, 3, 3, 2.0)
	a := space.NewVolume(g)
	b := space.NewVolume(g)
	a.Set(1, 1, 1, 0.4)
	b.Set(1, 1, 1, 0.5)

	combined, err := Combine([]*space.Volume{a, b})
	require.NoError(t, err)

	for idx, v := range combined.Data {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
		if a.Data[idx] == 0 && b.Data[idx] == 0 {
			assert.Zero(t, v, "ALE must be exactly 0 where every MA value is 0")
		}
	}
	assert.InDelta(t, 1-(0.6*0.5), combined.At(1, 1, 1), 1e-12)
}

func TestCombineLogSpaceSurvivesManyStudies(t *testing.T) {
	g, _ := space.NewIsotropicGrid(2, 2, 2, 2.0)
	maps := make([]*space.Volume, 400)
	for i := range maps {
		v := space.NewVolume(g)
		v.Fill(0.05)
		maps[i] = v
	}
	combined, err := Combine(maps)
	require.NoError(t, err)

	want := -math.Expm1(400 * math.Log1p(-0.05))
	assert.InDelta(t, want, combined.Data[0], 1e-9)
	assert.Less(t, combined.Data[0], 1.0)
}

func TestCombineRejectsMixedGeometry(t *testing.T) {
	a, _ := space.NewIsotropicGrid(3, 3, 3, 2.0)
	b, _ := space.NewIsotropicGrid(3, 3, 4, 2.0)

	_, err := Combine([]*space.Volume{space.NewVolume(a), space.NewVolume(b)})
	assert.True(t, errors.Is(err, core.ErrGeometryMismatch))
}

func TestCombineRejectsEmptyInput(t *testing.T) {
	_, err := Combine(nil)
	assert.True(t, errors.Is(err, core.ErrInsufficientStudies))
}
