// Package kernel derives the spatial uncertainty kernel applied to each
// study's foci. A reported coordinate is uncertain for two reasons: the
// template the study was normalized to, and the study's own subject
// sampling. The second shrinks as the subject count grows, so larger
// studies get narrower kernels.
package kernel

import (
	"math"

	"github.com/tamarajafar/NeuroMeta/domain/core"
)

// fwhmPerSigma converts a Gaussian standard deviation to its
// full-width-half-maximum: FWHM = 2*sqrt(2*ln 2) * sigma.
var fwhmPerSigma = 2 * math.Sqrt(2*math.Ln2)

// Model holds the kernel constants in millimeters. Construct one
// explicitly and pass it in; there is no module-level default state, so
// concurrent analyses with different constants never interfere.
type Model struct {
	// TemplateFWHM is the fixed between-template uncertainty.
	TemplateFWHM float64
	// SubjectFWHM is the within-study uncertainty for a single
	// subject; it is divided down by the subject count.
	SubjectFWHM float64
	// MinFWHM clamps the kernel from below so very large studies
	// never degenerate to a near-delta kernel.
	MinFWHM float64
}

// Default returns the standard kernel constants.
func Default() Model {
	return Model{
		TemplateFWHM: 5.7,
		SubjectFWHM:  11.6,
		MinFWHM:      6.0,
	}
}

// FWHM returns the kernel full-width-half-maximum in millimeters for a
// study with sampleSize subjects. The value is monotonic non-increasing
// in sampleSize and clamped at MinFWHM.
func (m Model) FWHM(sampleSize int) (float64, error) {
	if sampleSize <= 0 {
		return 0, core.NewSampleSizeError("", sampleSize)
	}
	w := math.Sqrt(m.TemplateFWHM*m.TemplateFWHM + m.SubjectFWHM*m.SubjectFWHM/float64(sampleSize))
	if w < m.MinFWHM {
		w = m.MinFWHM
	}
	return w, nil
}

// Sigma returns the kernel standard deviation in millimeters.
func (m Model) Sigma(sampleSize int) (float64, error) {
	w, err := m.FWHM(sampleSize)
	if err != nil {
		return 0, err
	}
	return w / fwhmPerSigma, nil
}
