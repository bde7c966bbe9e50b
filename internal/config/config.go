// Package config holds the engine configuration and its eager
// validation. The library takes the struct directly; environment
// loading exists for the CLI entrypoint.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/internal/kernel"
	"github.com/tamarajafar/NeuroMeta/internal/ma"
)

// Correction selects the multiple-comparison correction mode.
type Correction string

const (
	CorrectionNone       Correction = "none"
	CorrectionFDR        Correction = "fdr"
	CorrectionFWEVoxel   Correction = "fwe-voxel"
	CorrectionFWECluster Correction = "fwe-cluster"
)

// Config is the full analysis configuration.
type Config struct {
	Correction       Correction
	PThreshold       float64 // significance level for the selected correction
	ClusterFormingP  float64 // voxel p forming clusters before cluster-level FWE
	Permutations     int
	RandomSeed       int64
	TruncationRadius float64 // kernel support bound, in standard deviations
	Workers          int     // 0 means NumCPU
	Kernel           kernel.Model
}

// Default mirrors the conventional analysis settings: 1000
// permutations, p < 0.05 with cluster-level FWE at a 0.001
// cluster-forming threshold.
func Default() Config {
	return Config{
		Correction:       CorrectionFWECluster,
		PThreshold:       0.05,
		ClusterFormingP:  0.001,
		Permutations:     1000,
		RandomSeed:       0,
		TruncationRadius: ma.DefaultTruncationRadius,
		Workers:          0,
		Kernel:           kernel.Default(),
	}
}

// Validate applies the eager range checks; it never allocates volumes,
// so a failed configuration aborts before any analysis state exists.
func (c Config) Validate() error {
	switch c.Correction {
	case CorrectionNone, CorrectionFDR, CorrectionFWEVoxel, CorrectionFWECluster:
	default:
		return core.NewConfigurationError("correction", fmt.Sprintf("unrecognized mode %q", c.Correction))
	}
	if c.PThreshold <= 0 || c.PThreshold >= 1 {
		return core.NewConfigurationError("p_threshold", fmt.Sprintf("must be in (0,1), got %g", c.PThreshold))
	}
	if c.ClusterFormingP <= 0 || c.ClusterFormingP >= 1 {
		return core.NewConfigurationError("cluster_forming_p", fmt.Sprintf("must be in (0,1), got %g", c.ClusterFormingP))
	}
	if c.Permutations < 1 {
		return core.NewConfigurationError("permutations", fmt.Sprintf("must be >= 1, got %d", c.Permutations))
	}
	if c.TruncationRadius <= 0 {
		return core.NewConfigurationError("kernel_truncation_radius", fmt.Sprintf("must be > 0, got %g", c.TruncationRadius))
	}
	if c.Workers < 0 {
		return core.NewConfigurationError("workers", fmt.Sprintf("must be >= 0, got %d", c.Workers))
	}
	if c.Kernel.TemplateFWHM <= 0 || c.Kernel.SubjectFWHM <= 0 || c.Kernel.MinFWHM <= 0 {
		return core.NewConfigurationError("kernel", "FWHM constants must be > 0")
	}
	return nil
}

// FromEnv builds a configuration from environment variables, starting
// from Default. Unset variables keep their defaults; malformed values
// are configuration errors.
func FromEnv() (Config, error) {
	c := Default()
	if v := os.Getenv("NEUROMETA_CORRECTION"); v != "" {
		c.Correction = Correction(v)
	}
	var err error
	if c.PThreshold, err = envFloat("NEUROMETA_P_THRESHOLD", c.PThreshold); err != nil {
		return c, err
	}
	if c.ClusterFormingP, err = envFloat("NEUROMETA_CLUSTER_FORMING_P", c.ClusterFormingP); err != nil {
		return c, err
	}
	if c.Permutations, err = envInt("NEUROMETA_PERMUTATIONS", c.Permutations); err != nil {
		return c, err
	}
	if c.TruncationRadius, err = envFloat("NEUROMETA_TRUNCATION_RADIUS", c.TruncationRadius); err != nil {
		return c, err
	}
	if c.Workers, err = envInt("NEUROMETA_WORKERS", c.Workers); err != nil {
		return c, err
	}
	if v := os.Getenv("NEUROMETA_RANDOM_SEED"); v != "" {
		seed, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return c, core.NewConfigurationError("NEUROMETA_RANDOM_SEED", fmt.Sprintf("not an integer: %q", v))
		}
		c.RandomSeed = seed
	}
	return c, c.Validate()
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, core.NewConfigurationError(key, fmt.Sprintf("not a number: %q", v))
	}
	return f, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, core.NewConfigurationError(key, fmt.Sprintf("not an integer: %q", v))
	}
	return n, nil
}
