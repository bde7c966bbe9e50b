// Package cluster labels 6-connected components of suprathreshold
// voxels and applies cluster-level FWE correction against the
// permutation null of maximum cluster sizes.
package cluster

import (
	"sort"

	"github.com/tamarajafar/NeuroMeta/domain/result"
	"github.com/tamarajafar/NeuroMeta/domain/space"
)

// Labeler is a reusable union-find over flat voxel indices. The arena
// of parent/size arrays is allocated once per grid and recycled across
// permutations, keeping the per-call cost a single O(voxels) pass.
type Labeler struct {
	grid   space.Grid
	parent []int32
	size   []int32
}

// NewLabeler allocates a labeler for grids of g's size.
func NewLabeler(g space.Grid) *Labeler {
	n := g.Len()
	return &Labeler{
		grid:   g,
		parent: make([]int32, n),
		size:   make([]int32, n),
	}
}

const inactive = int32(-1)

// label runs one union-find pass over vals, activating masked voxels
// strictly above threshold and unioning each with its already-visited
// face neighbors (-x, -y, -z). After the pass, parent holds a forest
// whose roots identify components.
func (l *Labeler) label(vals []float64, mask *space.Mask, threshold float64) {
	g := l.grid
	for i := range l.parent {
		l.parent[i] = inactive
		l.size[i] = 0
	}
	nx, ny := g.NX, g.NY
	plane := nx * ny
	for _, idx := range mask.Indices() {
		if vals[idx] <= threshold {
			continue
		}
		l.parent[idx] = int32(idx)
		l.size[idx] = 1
		i := idx % nx
		j := (idx / nx) % ny
		if i > 0 && l.parent[idx-1] != inactive {
			l.union(int32(idx), int32(idx-1))
		}
		if j > 0 && l.parent[idx-nx] != inactive {
			l.union(int32(idx), int32(idx-nx))
		}
		if idx >= plane && l.parent[idx-plane] != inactive {
			l.union(int32(idx), int32(idx-plane))
		}
	}
}

func (l *Labeler) find(x int32) int32 {
	for l.parent[x] != x {
		l.parent[x] = l.parent[l.parent[x]] // path halving
		x = l.parent[x]
	}
	return x
}

func (l *Labeler) union(a, b int32) {
	ra, rb := l.find(a), l.find(b)
	if ra == rb {
		return
	}
	if l.size[ra] < l.size[rb] {
		ra, rb = rb, ra
	}
	l.parent[rb] = ra
	l.size[ra] += l.size[rb]
}

// MaxClusterSize returns the largest component size above threshold,
// or 0 when nothing survives. Used per permutation to build the null
// of maximum cluster sizes.
func (l *Labeler) MaxClusterSize(vals []float64, mask *space.Mask, threshold float64) int {
	l.label(vals, mask, threshold)
	best := int32(0)
	for _, idx := range mask.Indices() {
		p := l.parent[idx]
		if p == inactive {
			continue
		}
		r := l.find(p)
		if l.size[r] > best {
			best = l.size[r]
		}
	}
	return int(best)
}

// Correct labels the observed volume at the cluster-forming threshold,
// assigns each cluster a FWE p-value from the null maximum-cluster-size
// sample, discards clusters with p above level, and returns the label
// volume plus records sorted by descending size, then descending peak
// value, then ascending peak grid coordinate. Label 0 is background;
// surviving clusters are renumbered 1..K in sorted order.
func (l *Labeler) Correct(vol *space.Volume, mask *space.Mask, threshold float64, nullMaxSizes []int, level float64) ([]int32, []result.ClusterRecord, error) {
	l.label(vol.Data, mask, threshold)
	g := l.grid

	// Gather per-root statistics in one pass over masked voxels.
	type raw struct {
		size    int
		peakVal float64
		peakIdx int
	}
	byRoot := make(map[int32]*raw)
	for _, idx := range mask.Indices() {
		if l.parent[idx] == inactive {
			continue
		}
		r := l.find(int32(idx))
		c, ok := byRoot[r]
		if !ok {
			c = &raw{size: int(l.size[r]), peakVal: vol.Data[idx], peakIdx: idx}
			byRoot[r] = c
			continue
		}
		if vol.Data[idx] > c.peakVal {
			c.peakVal = vol.Data[idx]
			c.peakIdx = idx
		}
	}

	type labeled struct {
		root int32
		rec  result.ClusterRecord
	}
	kept := make([]labeled, 0, len(byRoot))
	for root, c := range byRoot {
		p := clusterFWEP(c.size, nullMaxSizes)
		if p > level {
			continue
		}
		i, j, k := g.Coords(c.peakIdx)
		x, y, z := g.Affine.GridToWorld(float64(i), float64(j), float64(k))
		kept = append(kept, labeled{
			root: root,
			rec: result.ClusterRecord{
				Size:      c.size,
				PeakValue: c.peakVal,
				PeakIndex: [3]int{i, j, k},
				Peak:      [3]float64{x, y, z},
				PFWE:      p,
			},
		})
	}

	sort.Slice(kept, func(a, b int) bool {
		ra, rb := kept[a].rec, kept[b].rec
		if ra.Size != rb.Size {
			return ra.Size > rb.Size
		}
		if ra.PeakValue != rb.PeakValue {
			return ra.PeakValue > rb.PeakValue
		}
		return lessCoord(ra.PeakIndex, rb.PeakIndex)
	})

	idByRoot := make(map[int32]int32, len(kept))
	records := make([]result.ClusterRecord, len(kept))
	for i := range kept {
		kept[i].rec.ID = i + 1
		records[i] = kept[i].rec
		idByRoot[kept[i].root] = int32(i + 1)
	}

	labels := make([]int32, g.Len())
	for _, idx := range mask.Indices() {
		if l.parent[idx] == inactive {
			continue
		}
		if id, ok := idByRoot[l.find(int32(idx))]; ok {
			labels[idx] = id
		}
	}
	return labels, records, nil
}

// clusterFWEP is the fraction of permutations whose maximum cluster
// size reached s, ties inclusive. An empty null sample yields the
// conservative p = 1.
func clusterFWEP(s int, nullMaxSizes []int) float64 {
	if len(nullMaxSizes) == 0 {
		return 1.0
	}
	n := 0
	for _, m := range nullMaxSizes {
		if m >= s {
			n++
		}
	}
	return float64(n) / float64(len(nullMaxSizes))
}

func lessCoord(a, b [3]int) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
