package space

import (
	"fmt"
)

// geometryTol is the per-entry tolerance used when comparing affines.
const geometryTol = 1e-6

// Grid describes the shared geometry of every volume in one analysis:
// integer dimensions, voxel spacing in millimeters, and the affine from
// grid indices to world coordinates. Volumes store their data x-fastest
// (index = i + nx*j + nx*ny*k).
type Grid struct {
	NX, NY, NZ int
	Spacing    [3]float64
	Affine     Affine
}

// NewGrid validates dimensions and spacing and returns the geometry.
func NewGrid(nx, ny, nz int, spacing [3]float64, affine Affine) (Grid, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return Grid{}, fmt.Errorf("grid dimensions must be positive, got %dx%dx%d", nx, ny, nz)
	}
	for axis, s := range spacing {
		if s <= 0 {
			return Grid{}, fmt.Errorf("voxel spacing must be positive, axis %d got %g", axis, s)
		}
	}
	return Grid{NX: nx, NY: ny, NZ: nz, Spacing: spacing, Affine: affine}, nil
}

// NewIsotropicGrid builds a grid with equal spacing on all axes and a
// diagonal affine anchored at the world origin.
func NewIsotropicGrid(nx, ny, nz int, spacing float64) (Grid, error) {
	aff, err := ScaledAffine([3]float64{spacing, spacing, spacing}, [3]float64{0, 0, 0})
	if err != nil {
		return Grid{}, err
	}
	return NewGrid(nx, ny, nz, [3]float64{spacing, spacing, spacing}, aff)
}

// Len returns the total voxel count.
func (g Grid) Len() int {
	return g.NX * g.NY * g.NZ
}

// Index flattens (i, j, k) into the x-fastest linear index.
func (g Grid) Index(i, j, k int) int {
	return i + g.NX*(j+g.NY*k)
}

// Coords unflattens a linear index back to (i, j, k).
func (g Grid) Coords(idx int) (i, j, k int) {
	i = idx % g.NX
	idx /= g.NX
	j = idx % g.NY
	k = idx / g.NY
	return i, j, k
}

// InBounds reports whether (i, j, k) lies inside the grid.
func (g Grid) InBounds(i, j, k int) bool {
	return i >= 0 && i < g.NX && j >= 0 && j < g.NY && k >= 0 && k < g.NZ
}

// Same reports whether two grids share dimensions, spacing, and affine.
// Mixing volumes from grids that are not Same is a contract violation.
func (g Grid) Same(o Grid) bool {
	if g.NX != o.NX || g.NY != o.NY || g.NZ != o.NZ {
		return false
	}
	for axis := range g.Spacing {
		d := g.Spacing[axis] - o.Spacing[axis]
		if d < -geometryTol || d > geometryTol {
			return false
		}
	}
	return g.Affine.Equal(o.Affine, geometryTol)
}
