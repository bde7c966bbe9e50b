// Package ma rasterizes one study's foci into its modeled-activation
// map: a per-voxel probability that the study's true activation lies at
// that voxel. Foci within one study are combined by point-wise maximum,
// so nearby redundant peaks never compound.
package ma

import (
	"fmt"
	"math"

	"github.com/tamarajafar/NeuroMeta/domain/space"
	"github.com/tamarajafar/NeuroMeta/domain/study"
	"github.com/tamarajafar/NeuroMeta/internal/kernel"
)

// DefaultTruncationRadius bounds the kernel support, expressed in
// standard deviations from the focus. Beyond 3 sigma the Gaussian holds
// under 0.3% of its mass, so truncation there is a numerical
// approximation rather than an accuracy compromise. The radius is
// configurable through Builder.
const DefaultTruncationRadius = 3.0

// Builder rasterizes studies against a fixed kernel model. It carries
// no per-study state and is safe to share across workers.
type Builder struct {
	Kernel           kernel.Model
	TruncationRadius float64
}

// NewBuilder returns a builder with the given kernel model. A
// truncation radius <= 0 falls back to the default.
func NewBuilder(k kernel.Model, truncationRadius float64) *Builder {
	if truncationRadius <= 0 {
		truncationRadius = DefaultTruncationRadius
	}
	return &Builder{Kernel: k, TruncationRadius: truncationRadius}
}

// Map is a study's modeled-activation volume plus the count of foci
// dropped for falling outside the grid.
type Map struct {
	Vol     *space.Volume
	Dropped int
}

// Build rasterizes s onto a fresh volume over g.
func (b *Builder) Build(g space.Grid, s study.Study) (*Map, error) {
	vol := space.NewVolume(g)
	dropped, err := b.BuildInto(vol, s)
	if err != nil {
		return nil, err
	}
	return &Map{Vol: vol, Dropped: dropped}, nil
}

// BuildInto rasterizes s into vol, zeroing it first. It reports the
// number of out-of-grid foci dropped. The function is pure in
// (study, grid, kernel): identical inputs produce identical maps.
func (b *Builder) BuildInto(vol *space.Volume, s study.Study) (int, error) {
	sigma, err := b.Kernel.Sigma(s.SampleSize)
	if err != nil {
		return 0, fmt.Errorf("study %q: %w", s.Name, err)
	}
	vol.Zero()

	g := vol.Grid
	dropped := 0
	for _, f := range s.Foci {
		fi, fj, fk := g.Affine.WorldToGrid(f.X, f.Y, f.Z)
		ci := int(math.Round(fi))
		cj := int(math.Round(fj))
		ck := int(math.Round(fk))
		if !g.InBounds(ci, cj, ck) {
			dropped++
			continue
		}
		b.splat(vol, fi, fj, fk, sigma)
	}
	return dropped, nil
}

// splat writes one focus kernel into vol with max-combine. The kernel
// is evaluated at each voxel center from the focus's continuous grid
// position, truncated at TruncationRadius standard deviations, and
// normalized to unit mass over its own support so values are
// probabilities.
func (b *Builder) splat(vol *space.Volume, fi, fj, fk, sigma float64) {
	g := vol.Grid
	ri := int(math.Ceil(b.TruncationRadius * sigma / g.Spacing[0]))
	rj := int(math.Ceil(b.TruncationRadius * sigma / g.Spacing[1]))
	rk := int(math.Ceil(b.TruncationRadius * sigma / g.Spacing[2]))

	ci := int(math.Round(fi))
	cj := int(math.Round(fj))
	ck := int(math.Round(fk))

	lo := [3]int{ci - ri, cj - rj, ck - rk}
	hi := [3]int{ci + ri, cj + rj, ck + rk}

	maxDist2 := b.TruncationRadius * sigma * b.TruncationRadius * sigma
	inv2s2 := 1 / (2 * sigma * sigma)

	// First pass over the full (unclipped) support accumulates the
	// normalizing mass; the second writes clipped, normalized values.
	// Normalizing over the support itself keeps per-focus mass exactly
	// 1 regardless of the truncation radius.
	mass := 0.0
	for k := lo[2]; k <= hi[2]; k++ {
		dz := (float64(k) - fk) * g.Spacing[2]
		for j := lo[1]; j <= hi[1]; j++ {
			dy := (float64(j) - fj) * g.Spacing[1]
			for i := lo[0]; i <= hi[0]; i++ {
				dx := (float64(i) - fi) * g.Spacing[0]
				d2 := dx*dx + dy*dy + dz*dz
				if d2 > maxDist2 {
					continue
				}
				mass += math.Exp(-d2 * inv2s2)
			}
		}
	}
	if mass <= 0 {
		return
	}

	for k := max(lo[2], 0); k <= min(hi[2], g.NZ-1); k++ {
		dz := (float64(k) - fk) * g.Spacing[2]
		for j := max(lo[1], 0); j <= min(hi[1], g.NY-1); j++ {
			dy := (float64(j) - fj) * g.Spacing[1]
			for i := max(lo[0], 0); i <= min(hi[0], g.NX-1); i++ {
				dx := (float64(i) - fi) * g.Spacing[0]
				d2 := dx*dx + dy*dy + dz*dz
				if d2 > maxDist2 {
					continue
				}
				idx := g.Index(i, j, k)
				v := math.Exp(-d2*inv2s2) / mass
				if v > vol.Data[idx] {
					vol.Data[idx] = v
				}
			}
		}
	}
}
