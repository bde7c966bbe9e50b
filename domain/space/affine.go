package space

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Affine maps continuous grid indices (i, j, k) to world-space
// millimeter coordinates via a 4x4 homogeneous matrix. The inverse is
// computed once at construction and cached, so world-to-grid lookups on
// the rasterization hot path never re-invert.
type Affine struct {
	fwd [16]float64
	inv [16]float64
}

// NewAffine builds an affine from 16 row-major values (grid -> world).
// The matrix must be invertible.
func NewAffine(rowMajor [16]float64) (Affine, error) {
	m := mat.NewDense(4, 4, rowMajor[:])
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Affine{}, fmt.Errorf("affine is not invertible: %w", err)
	}
	a := Affine{fwd: rowMajor}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			a.inv[r*4+c] = inv.At(r, c)
		}
	}
	return a, nil
}

// ScaledAffine builds a diagonal affine with the given voxel spacing and
// world-space origin, the common case for analysis masks.
func ScaledAffine(spacing [3]float64, origin [3]float64) (Affine, error) {
	return NewAffine([16]float64{
		spacing[0], 0, 0, origin[0],
		0, spacing[1], 0, origin[1],
		0, 0, spacing[2], origin[2],
		0, 0, 0, 1,
	})
}

// GridToWorld maps a continuous grid index to world millimeters.
func (a Affine) GridToWorld(i, j, k float64) (x, y, z float64) {
	return apply(&a.fwd, i, j, k)
}

// WorldToGrid maps world millimeters to a continuous grid index.
func (a Affine) WorldToGrid(x, y, z float64) (i, j, k float64) {
	return apply(&a.inv, x, y, z)
}

// Equal reports whether two affines agree within tol on every entry.
func (a Affine) Equal(b Affine, tol float64) bool {
	for i := range a.fwd {
		d := a.fwd[i] - b.fwd[i]
		if d < -tol || d > tol {
			return false
		}
	}
	return true
}

func apply(m *[16]float64, p, q, r float64) (float64, float64, float64) {
	x := m[0]*p + m[1]*q + m[2]*r + m[3]
	y := m[4]*p + m[5]*q + m[6]*r + m[7]
	z := m[8]*p + m[9]*q + m[10]*r + m[11]
	return x, y, z
}
