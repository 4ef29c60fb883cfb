package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/corrmatrix"
	"github.com/hupe1980/corrmatrix/codec"
)

var (
	buildRatings          string
	buildOut              string
	buildStore            string
	buildStoreRoot        string
	buildMinCommon        int
	buildPrecomputedMeans bool
	buildBudget           int64
	buildInitialSize      int
	buildCompress         bool
	buildSpillCompression string
	buildSpillDir         string
	buildMetricsTextfile  string
	buildJSON             bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compute the similarity matrix of a ratings file",
	Long: `Compute the user-user Pearson similarity matrix of a ratings file and
publish it to the configured store.

The ratings file holds one "user::item::rating" or tab-separated
"user<TAB>item<TAB>rating" line per rating.

Examples:
  corrmatrix build --ratings ratings.dat --out sim.csv
  corrmatrix build --ratings ratings.dat --out sim.csv.zst --compress --budget 1000000
  corrmatrix build --ratings ratings.dat --out sim.csv --min-common 5 --precomputed-means`,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildRatings, "ratings", "", "ratings file (required)")
	f.StringVar(&buildOut, "out", "similarity.csv", "matrix name in the store")
	f.StringVar(&buildStore, "store", "", "store kind: local, minio or s3")
	f.StringVar(&buildStoreRoot, "store-root", "", "directory of the local store")
	f.IntVar(&buildMinCommon, "min-common", 0, "minimum co-rated items for a defined correlation")
	f.BoolVar(&buildPrecomputedMeans, "precomputed-means", false, "center on each user's overall mean")
	f.Int64Var(&buildBudget, "budget", 0, "deferred values held in memory (0 = unlimited)")
	f.IntVar(&buildInitialSize, "initial-size", 0, "initial capacity of each row")
	f.BoolVar(&buildCompress, "compress", false, "zstd-compress the matrix")
	f.StringVar(&buildSpillCompression, "spill-compression", "", "spill segment compression: none, lz4 or zstd")
	f.StringVar(&buildSpillDir, "spill-dir", "", "directory for spill files")
	f.StringVar(&buildMetricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file")
	f.BoolVar(&buildJSON, "json", false, "print the build report as JSON")
	_ = buildCmd.MarkFlagRequired("ratings")

	rootCmd.AddCommand(buildCmd)
}

func applyBuildFlags(cmd *cobra.Command, cfg *Config) error {
	f := cmd.Flags()
	if f.Changed("store") {
		cfg.Store.Kind = buildStore
	}
	if f.Changed("store-root") {
		cfg.Store.Root = buildStoreRoot
	}
	if f.Changed("min-common") {
		cfg.Build.MinCommonItems = buildMinCommon
	}
	if f.Changed("precomputed-means") {
		cfg.Build.PrecomputedMeans = buildPrecomputedMeans
	}
	if f.Changed("budget") {
		cfg.Build.BudgetElements = buildBudget
	}
	if f.Changed("initial-size") {
		cfg.Build.InitialChunk = buildInitialSize
	}
	if f.Changed("compress") {
		cfg.Build.Compress = buildCompress
	}
	if f.Changed("spill-compression") {
		cfg.Build.SpillCompression = buildSpillCompression
	}
	if f.Changed("spill-dir") {
		cfg.Build.SpillDir = buildSpillDir
	}
	if f.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = buildMetricsTextfile
	}
	return cfg.Validate()
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyBuildFlags(cmd, cfg); err != nil {
		return err
	}

	repo, err := readRatingsFile(buildRatings)
	if err != nil {
		return fmt.Errorf("read ratings: %w", err)
	}
	logger.Info("ratings loaded", "file", buildRatings, "users", repo.UserCount(), "ratings", repo.RatingCount())

	store, registry, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}

	if cfg.Build.SpillDir == "" {
		dir, err := newRunDir()
		if err != nil {
			return fmt.Errorf("create spill dir: %w", err)
		}
		defer func() { _ = os.RemoveAll(dir) }()
		cfg.Build.SpillDir = dir
	}

	metrics := newPromMetrics()
	report, err := corrmatrix.Build(ctx, repo, store, buildOut, buildOptions(cfg, logger, metrics, registry)...)
	if cfg.Metrics.Textfile != "" {
		if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Warn("failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", werr)
		}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if buildJSON {
		data, err := codec.GoJSON{}.MarshalIndent(report)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err = fmt.Fprintf(out, "wrote %s: %d users, %d of %d pairs defined, %d bytes, %d spills\n",
		report.Name, report.Stats.Users, report.Stats.DefinedPairs, report.Stats.Pairs, report.StoredBytes, report.Stats.Spill.Spills)
	return err
}

func buildOptions(cfg *Config, logger *corrmatrix.Logger, metrics corrmatrix.MetricsCollector, registry corrmatrix.Registry) []corrmatrix.Option {
	algo := corrmatrix.RawMoments
	if cfg.Build.PrecomputedMeans {
		algo = corrmatrix.PrecomputedMeans
	}
	// Validated by Config.Validate.
	spill, _ := corrmatrix.ParseCompression(cfg.Build.SpillCompression)

	opts := []corrmatrix.Option{
		corrmatrix.WithLogger(logger),
		corrmatrix.WithMetrics(metrics),
		corrmatrix.WithMinCommonItems(cfg.Build.MinCommonItems),
		corrmatrix.WithAlgorithm(algo),
		corrmatrix.WithBudget(cfg.Build.BudgetElements),
		corrmatrix.WithInitialChunk(cfg.Build.InitialChunk),
		corrmatrix.WithSpillDir(cfg.Build.SpillDir),
		corrmatrix.WithSpillCompression(spill),
		corrmatrix.WithSpillIOLimit(cfg.Build.SpillIOLimit),
		corrmatrix.WithOutputCompression(cfg.Build.Compress),
	}
	if registry != nil {
		opts = append(opts, corrmatrix.WithRegistry(registry))
	}
	return opts
}
