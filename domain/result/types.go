package result

import (
	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/space"
)

// ClusterRecord describes one surviving suprathreshold cluster.
type ClusterRecord struct {
	ID        int        `json:"id"`
	Size      int        `json:"size"`       // voxel count
	PeakValue float64    `json:"peak_value"` // ALE statistic at the peak
	PeakIndex [3]int     `json:"peak_index"` // grid coordinate of the peak
	Peak      [3]float64 `json:"peak"`       // world-space coordinate of the peak
	PFWE      float64    `json:"p_fwe"`      // cluster-level FWE-corrected p
}

// NullSummary describes the per-permutation maximum-ALE sample, the
// shape of chance under the study set's own kernel structure.
type NullSummary struct {
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile95 float64 `json:"percentile_95"`
	Percentile99 float64 `json:"percentile_99"`
	Permutations int     `json:"permutations"`
}

// AnalysisResult is everything the engine hands back to the caller.
// Significant and Labels are flat arrays over the shared grid; voxels
// outside the analysis mask carry NaN in PMap and are never
// significant.
type AnalysisResult struct {
	ID         core.AnalysisID
	ComputedAt core.Timestamp

	ALE         *space.Volume
	PMap        *space.Volume
	Significant []bool
	Labels      []int32
	Clusters    []ClusterRecord

	// ClusterFormingALE is the ALE value corresponding to the
	// configured cluster-forming p under the permutation null.
	ClusterFormingALE float64

	// DroppedFoci counts foci discarded for falling outside the grid.
	DroppedFoci int

	Null NullSummary
}

// SignificantCount returns the number of significant voxels.
func (r *AnalysisResult) SignificantCount() int {
	n := 0
	for _, ok := range r.Significant {
		if ok {
			n++
		}
	}
	return n
}
