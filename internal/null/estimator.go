// Package null builds the permutation null: the distribution of ALE
// values and of maximum cluster sizes that arise when each study's foci
// are relocated uniformly within the analysis mask, with focus counts
// and kernel widths preserved.
package null

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/space"
	"github.com/tamarajafar/NeuroMeta/domain/study"
	"github.com/tamarajafar/NeuroMeta/internal/ale"
	"github.com/tamarajafar/NeuroMeta/internal/cluster"
	"github.com/tamarajafar/NeuroMeta/internal/ma"
	"github.com/tamarajafar/NeuroMeta/ports"
)

// streamName names the RNG stream family so permutation draws are
// stable across runs and unrelated to any other seeded operation.
const streamName = "ale-null"

// Estimator runs the permutation loop. Mask and kernel model are
// shared read-only across workers; every mutable buffer is
// worker-private and merged once per pass.
type Estimator struct {
	Builder         *ma.Builder
	RNG             ports.RNGPort
	Permutations    int
	Seed            int64
	ClusterFormingP float64
	// Workers caps the pool size; 0 means NumCPU.
	Workers int
}

// Distribution is the immutable output of the estimator.
type Distribution struct {
	// Hist pools every masked voxel's ALE value across permutations.
	Hist *Histogram
	// MaxALE holds each permutation's maximum masked ALE value,
	// indexed by permutation.
	MaxALE []float64
	// MaxClusterSize holds each permutation's largest 6-connected
	// cluster above ClusterFormingALE.
	MaxClusterSize []int
	// ClusterFormingALE is the pooled-histogram quantile matching the
	// configured cluster-forming p.
	ClusterFormingALE float64
	Permutations      int
}

// Estimate runs both permutation passes and returns the distribution.
// The first pass pools voxel ALE values and per-permutation maxima;
// the cluster-forming ALE threshold is then fixed from the pooled
// histogram, and a second pass over the same seeded streams records
// maximum cluster sizes at that threshold. Identical (seed, P) inputs
// produce bit-identical output for any worker count, because
// permutation i always draws from its own derived stream and the
// merge is commutative.
func (e *Estimator) Estimate(ctx context.Context, mask *space.Mask, studies []study.Study) (*Distribution, error) {
	if e.Permutations < 1 {
		return nil, core.NewConfigurationError("permutations", fmt.Sprintf("must be >= 1, got %d", e.Permutations))
	}
	if e.ClusterFormingP <= 0 || e.ClusterFormingP >= 1 {
		return nil, core.NewConfigurationError("cluster_forming_p", fmt.Sprintf("must be in (0,1), got %g", e.ClusterFormingP))
	}
	if mask == nil || mask.Count() == 0 {
		return nil, core.ErrEmptyMask
	}
	if err := study.ValidateAll(studies); err != nil {
		return nil, err
	}

	dist := &Distribution{
		Hist:           NewHistogram(),
		MaxALE:         make([]float64, e.Permutations),
		MaxClusterSize: make([]int, e.Permutations),
		Permutations:   e.Permutations,
	}

	err := e.runPass(ctx, mask, studies, func(w *permScratch, perm int, vals []float64) {
		maxV := 0.0
		for _, idx := range mask.Indices() {
			v := vals[idx]
			w.hist.Add(v)
			if v > maxV {
				maxV = v
			}
		}
		dist.MaxALE[perm] = maxV
	}, dist.Hist)
	if err != nil {
		return nil, err
	}

	dist.ClusterFormingALE = dist.Hist.Quantile(1 - e.ClusterFormingP)

	err = e.runPass(ctx, mask, studies, func(w *permScratch, perm int, vals []float64) {
		dist.MaxClusterSize[perm] = w.labeler.MaxClusterSize(vals, mask, dist.ClusterFormingALE)
	}, nil)
	if err != nil {
		return nil, err
	}
	return dist, nil
}

// permScratch holds one worker's private buffers for the permutation
// hot path: no allocation and no shared mutable state per iteration.
type permScratch struct {
	permuted []study.Study
	maVol    *space.Volume
	aleVol   *space.Volume
	acc      *ale.Accumulator
	hist     *Histogram
	labeler  *cluster.Labeler
}

func newPermScratch(g space.Grid, studies []study.Study, withHist bool) *permScratch {
	sc := &permScratch{
		permuted: make([]study.Study, len(studies)),
		maVol:    space.NewVolume(g),
		aleVol:   space.NewVolume(g),
		acc:      ale.NewAccumulator(g),
		labeler:  cluster.NewLabeler(g),
	}
	for i, s := range studies {
		sc.permuted[i] = study.Study{
			Name:       s.Name,
			SampleSize: s.SampleSize,
			Foci:       make([]study.Focus, len(s.Foci)),
		}
	}
	if withHist {
		sc.hist = NewHistogram()
	}
	return sc
}

// runPass drives one full sweep of permutations through a worker pool.
// record is called once per permutation with that permutation's ALE
// values; pooled (if non-nil) receives the merged worker histograms.
func (e *Estimator) runPass(ctx context.Context, mask *space.Mask, studies []study.Study,
	record func(w *permScratch, perm int, vals []float64), pooled *Histogram) error {

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > e.Permutations {
		workers = e.Permutations
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for p := 0; p < e.Permutations; p++ {
			select {
			case jobs <- p:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var mu sync.Mutex
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			sc := newPermScratch(mask.Grid, studies, pooled != nil)
			for perm := range jobs {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				rng, err := e.RNG.PermutationStream(gctx, streamName, perm, e.Seed)
				if err != nil {
					return fmt.Errorf("permutation %d: %w", perm, err)
				}

				// Relocate every focus to a uniform masked voxel,
				// preserving per-study focus counts and kernels.
				indices := mask.Indices()
				for si := range studies {
					for fi := range studies[si].Foci {
						idx := indices[rng.Intn(len(indices))]
						i, j, k := mask.Grid.Coords(idx)
						x, y, z := mask.Grid.Affine.GridToWorld(float64(i), float64(j), float64(k))
						sc.permuted[si].Foci[fi] = study.Focus{X: x, Y: y, Z: z}
					}
				}

				sc.acc.Reset()
				for si := range sc.permuted {
					if _, err := e.Builder.BuildInto(sc.maVol, sc.permuted[si]); err != nil {
						return err
					}
					if err := sc.acc.Add(sc.maVol); err != nil {
						return err
					}
				}
				sc.acc.ResultInto(sc.aleVol)
				record(sc, perm, sc.aleVol.Data)
			}
			if pooled != nil {
				mu.Lock()
				pooled.Merge(sc.hist)
				mu.Unlock()
			}
			return nil
		})
	}
	return g.Wait()
}
