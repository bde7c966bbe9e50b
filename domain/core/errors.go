package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input validation errors
	ErrInvalidSampleSize    = errors.New("invalid sample size")
	ErrEmptyMask            = errors.New("empty analysis mask")
	ErrGeometryMismatch     = errors.New("voxel grid geometry mismatch")
	ErrInsufficientStudies  = errors.New("insufficient studies for meta-analysis")
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// Ingestion errors
	ErrMalformedFociTable = errors.New("malformed foci table")
)

// NewSampleSizeError reports a rejected subject count for a study.
func NewSampleSizeError(studyName string, n int) error {
	return fmt.Errorf("%w: study %q reports %d subjects", ErrInvalidSampleSize, studyName, n)
}

// NewGeometryError reports two volumes with incompatible grids.
func NewGeometryError(context string) error {
	return fmt.Errorf("%w: %s", ErrGeometryMismatch, context)
}

// NewConfigurationError reports an out-of-range configuration field.
func NewConfigurationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfiguration, field, reason)
}

// IsValidationError reports whether err is one of the eager input checks
// that abort an analysis before any volume is allocated.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidSampleSize) ||
		errors.Is(err, ErrEmptyMask) ||
		errors.Is(err, ErrGeometryMismatch) ||
		errors.Is(err, ErrInsufficientStudies) ||
		errors.Is(err, ErrInvalidConfiguration)
}
