package study

import (
	"fmt"

	"github.com/tamarajafar/NeuroMeta/domain/core"
)

// Focus is one reported activation coordinate in world millimeters,
// owned by exactly one study.
type Focus struct {
	X, Y, Z float64
}

// Study is an immutable meta-analysis input: an ordered sequence of
// foci plus the subject count that determines the kernel width.
type Study struct {
	Name       string
	SampleSize int
	Foci       []Focus
}

// Validate applies the eager entry checks: a positive subject count and
// at least one focus. A study listed with zero foci is degenerate and
// rejected rather than silently contributing an empty map.
func (s Study) Validate() error {
	if s.SampleSize <= 0 {
		return core.NewSampleSizeError(s.Name, s.SampleSize)
	}
	if len(s.Foci) == 0 {
		return fmt.Errorf("%w: study %q has no foci", core.ErrInsufficientStudies, s.Name)
	}
	return nil
}

// ValidateAll checks a full study set: at least one study, and every
// study individually valid.
func ValidateAll(studies []Study) error {
	if len(studies) == 0 {
		return fmt.Errorf("%w: no studies supplied", core.ErrInsufficientStudies)
	}
	for _, s := range studies {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TotalFoci returns the focus count summed over studies.
func TotalFoci(studies []Study) int {
	n := 0
	for _, s := range studies {
		n += len(s.Foci)
	}
	return n
}
