package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamarajafar/NeuroMeta/domain/core"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown correction", func(c *Config) { c.Correction = "bonferroni" }},
		{"p threshold zero", func(c *Config) { c.PThreshold = 0 }},
		{"p threshold one", func(c *Config) { c.PThreshold = 1 }},
		{"cluster forming p negative", func(c *Config) { c.ClusterFormingP = -0.1 }},
		{"zero permutations", func(c *Config) { c.Permutations = 0 }},
		{"negative truncation radius", func(c *Config) { c.TruncationRadius = -1 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"zero kernel FWHM", func(c *Config) { c.Kernel.MinFWHM = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			assert.True(t, errors.Is(err, core.ErrInvalidConfiguration), "got %v", err)
		})
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NEUROMETA_CORRECTION", "fdr")
	t.Setenv("NEUROMETA_P_THRESHOLD", "0.01")
	t.Setenv("NEUROMETA_PERMUTATIONS", "250")
	t.Setenv("NEUROMETA_RANDOM_SEED", "42")
	t.Setenv("NEUROMETA_WORKERS", "3")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, CorrectionFDR, c.Correction)
	assert.Equal(t, 0.01, c.PThreshold)
	assert.Equal(t, 250, c.Permutations)
	assert.Equal(t, int64(42), c.RandomSeed)
	assert.Equal(t, 3, c.Workers)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().ClusterFormingP, c.ClusterFormingP)
}

func TestFromEnvRejectsMalformed(t *testing.T) {
	t.Setenv("NEUROMETA_PERMUTATIONS", "many")
	_, err := FromEnv()
	assert.True(t, errors.Is(err, core.ErrInvalidConfiguration))
}
