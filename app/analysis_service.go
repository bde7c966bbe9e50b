// Package app wires the engine components into the full analysis
// pipeline: validation, observed map, permutation null, significance
// mapping, and cluster correction.
package app

import (
	"context"
	"fmt"

	mstats "github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"

	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/result"
	"github.com/tamarajafar/NeuroMeta/domain/space"
	"github.com/tamarajafar/NeuroMeta/domain/study"
	neurolog "github.com/tamarajafar/NeuroMeta/internal"
	"github.com/tamarajafar/NeuroMeta/internal/ale"
	"github.com/tamarajafar/NeuroMeta/internal/cluster"
	"github.com/tamarajafar/NeuroMeta/internal/config"
	"github.com/tamarajafar/NeuroMeta/internal/ma"
	"github.com/tamarajafar/NeuroMeta/internal/null"
	"github.com/tamarajafar/NeuroMeta/internal/sig"
	"github.com/tamarajafar/NeuroMeta/ports"
)

// AnalysisService runs ALE meta-analyses. It holds only configuration
// and collaborators, never per-run state, so one service can serve
// concurrent analyses.
type AnalysisService struct {
	cfg config.Config
	rng ports.RNGPort
	log *neurolog.Logger
}

// NewAnalysisService constructs the service. A nil logger falls back
// to the LOG_LEVEL-driven default.
func NewAnalysisService(cfg config.Config, rng ports.RNGPort, logger *neurolog.Logger) *AnalysisService {
	if logger == nil {
		logger = neurolog.NewDefaultLogger()
	}
	return &AnalysisService{cfg: cfg, rng: rng, log: logger.WithPrefix("[analysis]")}
}

// Run executes the full pipeline over the masked grid and study set.
// All validation happens before any volume is allocated; every
// taxonomy error surfaces from here as a distinct recoverable value.
func (s *AnalysisService) Run(ctx context.Context, mask *space.Mask, studies []study.Study) (*result.AnalysisResult, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if mask == nil || mask.Count() == 0 {
		return nil, core.ErrEmptyMask
	}
	if err := study.ValidateAll(studies); err != nil {
		return nil, err
	}

	builder := ma.NewBuilder(s.cfg.Kernel, s.cfg.TruncationRadius)

	s.log.Info("building %d modeled-activation maps over %d masked voxels", len(studies), mask.Count())
	maMaps, dropped, err := s.buildObserved(ctx, builder, mask.Grid, studies)
	if err != nil {
		return nil, err
	}
	if dropped == study.TotalFoci(studies) {
		return nil, fmt.Errorf("%w: every focus fell outside the grid", core.ErrInsufficientStudies)
	}
	if dropped > 0 {
		s.log.Warn("dropped %d out-of-grid foci", dropped)
	}

	aleVol, err := ale.Combine(maMaps)
	if err != nil {
		return nil, err
	}

	est := &null.Estimator{
		Builder:         builder,
		RNG:             s.rng,
		Permutations:    s.cfg.Permutations,
		Seed:            s.cfg.RandomSeed,
		ClusterFormingP: s.cfg.ClusterFormingP,
		Workers:         s.cfg.Workers,
	}
	s.log.Info("estimating null distribution, %d permutations", s.cfg.Permutations)
	dist, err := est.Estimate(ctx, mask, studies)
	if err != nil {
		return nil, err
	}

	pVol, err := sig.PMap(aleVol, mask, dist.Hist)
	if err != nil {
		return nil, err
	}

	var sigVox []bool
	clusterLevel := 1.0
	switch s.cfg.Correction {
	case config.CorrectionNone:
		sigVox = sig.ThresholdUncorrected(pVol, mask, s.cfg.PThreshold)
	case config.CorrectionFDR:
		sigVox = sig.ThresholdFDR(pVol, mask, s.cfg.PThreshold)
	case config.CorrectionFWEVoxel:
		sigVox = sig.ThresholdFWEVoxel(aleVol, mask, dist.MaxALE, s.cfg.PThreshold)
	case config.CorrectionFWECluster:
		clusterLevel = s.cfg.PThreshold
	}

	labels, records, err := cluster.NewLabeler(mask.Grid).Correct(
		aleVol, mask, dist.ClusterFormingALE, dist.MaxClusterSize, clusterLevel)
	if err != nil {
		return nil, err
	}
	if s.cfg.Correction == config.CorrectionFWECluster {
		// Significance is membership in a surviving cluster.
		sigVox = make([]bool, mask.Grid.Len())
		for idx, id := range labels {
			sigVox[idx] = id > 0
		}
	}

	res := &result.AnalysisResult{
		ID:                core.NewAnalysisID(),
		ComputedAt:        core.Now(),
		ALE:               aleVol,
		PMap:              pVol,
		Significant:       sigVox,
		Labels:            labels,
		Clusters:          records,
		ClusterFormingALE: dist.ClusterFormingALE,
		DroppedFoci:       dropped,
		Null:              nullSummary(dist),
	}
	s.log.Info("analysis %s complete: %d significant voxels, %d clusters",
		res.ID, res.SignificantCount(), len(records))
	return res, nil
}

// buildObserved rasterizes every study's MA map, bounding concurrency
// with a weighted semaphore. Map order matches study order.
func (s *AnalysisService) buildObserved(ctx context.Context, builder *ma.Builder, g space.Grid, studies []study.Study) ([]*space.Volume, int, error) {
	workers := int64(s.cfg.Workers)
	if workers <= 0 {
		workers = 4
	}
	sem := semaphore.NewWeighted(workers)

	vols := make([]*space.Volume, len(studies))
	droppedPer := make([]int, len(studies))
	errsPer := make([]error, len(studies))

	for i := range studies {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, 0, err
		}
		go func(i int) {
			defer sem.Release(1)
			m, err := builder.Build(g, studies[i])
			if err != nil {
				errsPer[i] = err
				return
			}
			vols[i] = m.Vol
			droppedPer[i] = m.Dropped
		}(i)
	}
	if err := sem.Acquire(ctx, workers); err != nil {
		return nil, 0, err
	}

	dropped := 0
	for i := range studies {
		if errsPer[i] != nil {
			return nil, 0, errsPer[i]
		}
		dropped += droppedPer[i]
	}
	return vols, dropped, nil
}

// nullSummary condenses the per-permutation maximum-ALE sample.
func nullSummary(dist *null.Distribution) result.NullSummary {
	mean, _ := mstats.Mean(dist.MaxALE)
	sd, _ := mstats.StandardDeviationSample(dist.MaxALE)
	minV, _ := mstats.Min(dist.MaxALE)
	maxV, _ := mstats.Max(dist.MaxALE)
	p95, _ := mstats.Percentile(dist.MaxALE, 95)
	p99, _ := mstats.Percentile(dist.MaxALE, 99)
	return result.NullSummary{
		Mean:         mean,
		StdDev:       sd,
		Min:          minV,
		Max:          maxV,
		Percentile95: p95,
		Percentile99: p99,
		Permutations: dist.Permutations,
	}
}
