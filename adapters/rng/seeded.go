// Package rng provides the deterministic random-stream adapter used by
// the permutation machinery. Every stream is derived from the caller's
// base seed, never from a process-global source.
package rng

import (
	"context"
	"math/rand"
)

// SeededAdapter implements ports.RNGPort with plain seeded generators.
type SeededAdapter struct{}

// NewSeededAdapter returns the default RNG adapter.
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *SeededAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(seed + int64(hashString(name)))), nil
}

// PermutationStream derives an independent stream for one permutation
// index. The derivation is pure arithmetic on (name, perm, baseSeed),
// so results never depend on which worker runs the permutation.
func (a *SeededAdapter) PermutationStream(ctx context.Context, name string, perm int, baseSeed int64) (*rand.Rand, error) {
	seed := baseSeed + int64(hashString(name)) + int64(perm)*0x9E3779B9
	return rand.New(rand.NewSource(seed)), nil
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
