package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tamarajafar/NeuroMeta/adapters/excel"
	"github.com/tamarajafar/NeuroMeta/adapters/rng"
	"github.com/tamarajafar/NeuroMeta/adapters/sleuth"
	"github.com/tamarajafar/NeuroMeta/app"
	"github.com/tamarajafar/NeuroMeta/domain/result"
	"github.com/tamarajafar/NeuroMeta/domain/space"
	"github.com/tamarajafar/NeuroMeta/internal/config"
	"github.com/tamarajafar/NeuroMeta/ports"
)

func main() {
	// A local .env may carry NEUROMETA_* overrides; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "neurometa",
		Short: "ALE meta-analysis over reported activation coordinates",
	}
	rootCmd.AddCommand(newRunCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		fociPath   string
		dims       []int
		spacing    float64
		correction string
		pThresh    float64
		clusterP   float64
		perms      int
		seed       int64
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an ALE analysis over a foci table (xlsx, csv, or Sleuth text)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("correction") {
				cfg.Correction = config.Correction(correction)
			}
			if cmd.Flags().Changed("p") {
				cfg.PThreshold = pThresh
			}
			if cmd.Flags().Changed("cluster-p") {
				cfg.ClusterFormingP = clusterP
			}
			if cmd.Flags().Changed("perms") {
				cfg.Permutations = perms
			}
			if cmd.Flags().Changed("seed") {
				cfg.RandomSeed = seed
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}

			if len(dims) != 3 {
				return fmt.Errorf("--dim needs three values, got %d", len(dims))
			}
			grid, err := space.NewIsotropicGrid(dims[0], dims[1], dims[2], spacing)
			if err != nil {
				return err
			}
			// Volumetric mask parsing lives outside this tool; the CLI
			// analyzes over the full grid box.
			mask := space.FullMask(grid)

			source, err := studySource(fociPath)
			if err != nil {
				return err
			}
			studies, err := source.ReadStudies(cmd.Context())
			if err != nil {
				return err
			}

			service := app.NewAnalysisService(cfg, rng.NewSeededAdapter(), nil)
			res, err := service.Run(cmd.Context(), mask, studies)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&fociPath, "foci", "", "path to the foci table (required)")
	cmd.Flags().IntSliceVar(&dims, "dim", []int{91, 109, 91}, "grid dimensions nx,ny,nz")
	cmd.Flags().Float64Var(&spacing, "spacing", 2.0, "isotropic voxel spacing in mm")
	cmd.Flags().StringVar(&correction, "correction", string(config.CorrectionFWECluster), "none|fdr|fwe-voxel|fwe-cluster")
	cmd.Flags().Float64Var(&pThresh, "p", 0.05, "significance level")
	cmd.Flags().Float64Var(&clusterP, "cluster-p", 0.001, "cluster-forming p threshold")
	cmd.Flags().IntVar(&perms, "perms", 1000, "permutation count")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = NumCPU)")
	_ = cmd.MarkFlagRequired("foci")
	return cmd
}

func studySource(path string) (ports.StudySource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".csv":
		return excel.NewFociReader(path), nil
	case ".txt":
		return sleuth.NewFileReader(path), nil
	default:
		return nil, fmt.Errorf("unsupported foci table format: %s", path)
	}
}

func printResult(w io.Writer, res *result.AnalysisResult) {
	fmt.Fprintf(w, "analysis %s\n", res.ID)
	fmt.Fprintf(w, "significant voxels: %d\n", res.SignificantCount())
	if res.DroppedFoci > 0 {
		fmt.Fprintf(w, "dropped out-of-grid foci: %d\n", res.DroppedFoci)
	}
	fmt.Fprintf(w, "null max-ALE: mean %.5f, sd %.5f, p95 %.5f (%d permutations)\n",
		res.Null.Mean, res.Null.StdDev, res.Null.Percentile95, res.Null.Permutations)
	fmt.Fprintf(w, "cluster-forming ALE threshold: %.5f\n\n", res.ClusterFormingALE)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "cluster\tsize\tpeak ALE\tpeak (mm)\tp(FWE)")
	for _, c := range res.Clusters {
		fmt.Fprintf(tw, "%d\t%d\t%.5f\t%.1f %.1f %.1f\t%.4f\n",
			c.ID, c.Size, c.PeakValue, c.Peak[0], c.Peak[1], c.Peak[2], c.PFWE)
	}
	tw.Flush()
}
