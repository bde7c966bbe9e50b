package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// PermutationStream creates a deterministic RNG stream for one permutation
	// iteration of a named stage. Streams for distinct permutation indices are
	// independent, and the mapping (name, perm, baseSeed) -> stream is stable
	// across runs and across worker-pool sizes.
	PermutationStream(ctx context.Context, name string, perm int, baseSeed int64) (*rand.Rand, error)
}
