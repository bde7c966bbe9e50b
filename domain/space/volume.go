package space

// Volume is a dense scalar field over a Grid. MA maps, the ALE map, and
// the p-map all share this shape.
type Volume struct {
	Grid Grid
	Data []float64
}

// NewVolume allocates a zeroed volume over g.
func NewVolume(g Grid) *Volume {
	return &Volume{Grid: g, Data: make([]float64, g.Len())}
}

// At returns the value at (i, j, k). Bounds are the caller's contract.
func (v *Volume) At(i, j, k int) float64 {
	return v.Data[v.Grid.Index(i, j, k)]
}

// Set writes the value at (i, j, k).
func (v *Volume) Set(i, j, k int, val float64) {
	v.Data[v.Grid.Index(i, j, k)] = val
}

// Zero resets every voxel to 0 without reallocating.
func (v *Volume) Zero() {
	for i := range v.Data {
		v.Data[i] = 0
	}
}

// Fill sets every voxel to val.
func (v *Volume) Fill(val float64) {
	for i := range v.Data {
		v.Data[i] = val
	}
}
