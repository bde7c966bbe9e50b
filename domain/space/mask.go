package space

import (
	"fmt"
)

// Mask restricts computation to brain voxels. It caches the list of
// included flat indices, which doubles as the sampling population for
// the permutation null: drawing a uniform element of Indices() is a
// uniform draw over in-mask voxels.
type Mask struct {
	Grid    Grid
	In      []bool
	indices []int
}

// NewMask wraps an inclusion array over g. The array length must equal
// the grid's voxel count.
func NewMask(g Grid, in []bool) (*Mask, error) {
	if len(in) != g.Len() {
		return nil, fmt.Errorf("mask length %d does not match grid voxel count %d", len(in), g.Len())
	}
	m := &Mask{Grid: g, In: in}
	for idx, ok := range in {
		if ok {
			m.indices = append(m.indices, idx)
		}
	}
	return m, nil
}

// FullMask includes every voxel of g.
func FullMask(g Grid) *Mask {
	in := make([]bool, g.Len())
	for i := range in {
		in[i] = true
	}
	m, _ := NewMask(g, in)
	return m
}

// BoxMask includes the half-open box [lo, hi) of grid indices.
func BoxMask(g Grid, lo, hi [3]int) (*Mask, error) {
	in := make([]bool, g.Len())
	for k := lo[2]; k < hi[2]; k++ {
		for j := lo[1]; j < hi[1]; j++ {
			for i := lo[0]; i < hi[0]; i++ {
				if !g.InBounds(i, j, k) {
					return nil, fmt.Errorf("box corner (%d,%d,%d) outside grid", i, j, k)
				}
				in[g.Index(i, j, k)] = true
			}
		}
	}
	return NewMask(g, in)
}

// Indices returns the flat indices of included voxels, ascending.
// The returned slice is shared; callers must not mutate it.
func (m *Mask) Indices() []int {
	return m.indices
}

// Count returns the number of included voxels.
func (m *Mask) Count() int {
	return len(m.indices)
}

// Contains reports whether the flat index idx is inside the mask.
func (m *Mask) Contains(idx int) bool {
	return m.In[idx]
}
