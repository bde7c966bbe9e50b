// Package sig converts observed ALE values into voxel p-values against
// the permutation null and applies the caller's correction mode.
package sig

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/space"
	"github.com/tamarajafar/NeuroMeta/internal/null"
)

// PMap computes the uncorrected right-tail empirical p-value for every
// masked voxel; outside the mask p is NaN, the undefined marker. A
// degenerate zero-variance null maps every masked voxel to p = 1.
func PMap(aleVol *space.Volume, mask *space.Mask, hist *null.Histogram) (*space.Volume, error) {
	if !aleVol.Grid.Same(mask.Grid) {
		return nil, core.NewGeometryError("ALE map does not share the mask grid")
	}
	p := space.NewVolume(aleVol.Grid)
	p.Fill(math.NaN())
	degenerate := hist.Degenerate()
	for _, idx := range mask.Indices() {
		if degenerate {
			p.Data[idx] = 1.0
			continue
		}
		p.Data[idx] = hist.RightTailP(aleVol.Data[idx])
	}
	return p, nil
}

// ThresholdUncorrected marks masked voxels with p <= alpha.
func ThresholdUncorrected(pVol *space.Volume, mask *space.Mask, alpha float64) []bool {
	sigVox := make([]bool, pVol.Grid.Len())
	for _, idx := range mask.Indices() {
		sigVox[idx] = pVol.Data[idx] <= alpha
	}
	return sigVox
}

// ThresholdFDR applies the Benjamini-Hochberg procedure over masked
// voxel p-values at rate q: with the m p-values sorted ascending, find
// the largest rank k with p(k) <= (k/m)*q and reject everything at or
// below p(k). Rejections can never exceed an uncorrected threshold at
// the same nominal level.
func ThresholdFDR(pVol *space.Volume, mask *space.Mask, q float64) []bool {
	sigVox := make([]bool, pVol.Grid.Len())
	m := mask.Count()
	if m == 0 {
		return sigVox
	}
	ps := make([]float64, 0, m)
	for _, idx := range mask.Indices() {
		ps = append(ps, pVol.Data[idx])
	}
	sort.Float64s(ps)

	cutoff := -1.0
	for k := m; k >= 1; k-- {
		if ps[k-1] <= float64(k)/float64(m)*q {
			cutoff = ps[k-1]
			break
		}
	}
	if cutoff < 0 {
		return sigVox
	}
	for _, idx := range mask.Indices() {
		sigVox[idx] = pVol.Data[idx] <= cutoff
	}
	return sigVox
}

// ThresholdFWEVoxel marks masked voxels whose observed ALE value
// reaches the (1-alpha) empirical quantile of the per-permutation
// maximum ALE sample. Controlling against the maximum makes this
// strictly stricter than the plain uncorrected threshold.
func ThresholdFWEVoxel(aleVol *space.Volume, mask *space.Mask, maxALE []float64, alpha float64) []bool {
	sigVox := make([]bool, aleVol.Grid.Len())
	if len(maxALE) == 0 {
		return sigVox
	}
	sorted := make([]float64, len(maxALE))
	copy(sorted, maxALE)
	sort.Float64s(sorted)
	critical := stat.Quantile(1-alpha, stat.Empirical, sorted, nil)
	for _, idx := range mask.Indices() {
		sigVox[idx] = aleVol.Data[idx] >= critical
	}
	return sigVox
}
