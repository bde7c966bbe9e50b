// Package testkit provides deterministic builders for engine tests:
// small grids, masks, and synthetic study sets.
package testkit

import (
	"github.com/tamarajafar/NeuroMeta/adapters/rng"
	"github.com/tamarajafar/NeuroMeta/domain/space"
	"github.com/tamarajafar/NeuroMeta/domain/study"
	"github.com/tamarajafar/NeuroMeta/ports"
)

// TestKit bundles the shared test collaborators.
type TestKit struct{}

// NewTestKit creates a test kit.
func NewTestKit() *TestKit {
	return &TestKit{}
}

// RNGAdapter returns the deterministic seeded RNG adapter.
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return rng.NewSeededAdapter()
}

// CubeGrid returns an n^3 isotropic grid with the given spacing in mm.
func CubeGrid(n int, spacing float64) space.Grid {
	g, err := space.NewIsotropicGrid(n, n, n, spacing)
	if err != nil {
		panic(err)
	}
	return g
}

// PointStudy builds a study with a single focus at the given world
// coordinate.
func PointStudy(name string, sampleSize int, x, y, z float64) study.Study {
	return study.Study{
		Name:       name,
		SampleSize: sampleSize,
		Foci:       []study.Focus{{X: x, Y: y, Z: z}},
	}
}

// RepeatedPointStudies builds count studies that all report the same
// single focus, the classic convergence fixture.
func RepeatedPointStudies(count, sampleSize int, x, y, z float64) []study.Study {
	out := make([]study.Study, count)
	for i := range out {
		out[i] = PointStudy(studyName(i), sampleSize, x, y, z)
	}
	return out
}

func studyName(i int) string {
	return "study-" + string(rune('a'+i))
}
