package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/corrmatrix"
	"github.com/hupe1980/corrmatrix/internal/fs"
	"github.com/hupe1980/corrmatrix/internal/rowstore"
)

var (
	cleanSpillDir  string
	cleanMatrix    string
	cleanStoreRoot string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale spill files or a published matrix",
	Long: `Remove spill files left behind by a crashed build. With --matrix, also
delete that matrix and its report from the configured store.

Without a configured spill directory, builds spill into private
corrmatrix-run-* directories under the system temp dir, and clean sweeps
those as well. Do not run clean while a build is in progress.

Examples:
  corrmatrix clean
  corrmatrix clean --spill-dir /var/tmp/corrmatrix
  corrmatrix clean --matrix sim-old.csv`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&cleanSpillDir, "spill-dir", "", "spill directory (default build.spill_dir or the system temp dir)")
	cleanCmd.Flags().StringVar(&cleanMatrix, "matrix", "", "matrix to delete from the store")
	cleanCmd.Flags().StringVar(&cleanStoreRoot, "store-root", "", "directory of the local store")

	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dir := cfg.Build.SpillDir
	if cmd.Flags().Changed("spill-dir") {
		dir = cleanSpillDir
	}
	sweepRunDirs := dir == ""
	if sweepRunDirs {
		dir = os.TempDir()
	}

	removed, err := rowstore.CleanupStale(fs.Default, dir, rowstore.DefaultPrefix)
	if err != nil {
		return err
	}
	if sweepRunDirs {
		n, err := cleanRunDirs(dir)
		removed += n
		if err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %d spill files from %s\n", removed, dir); err != nil {
		return err
	}

	if cleanMatrix == "" {
		return nil
	}
	if cmd.Flags().Changed("store-root") {
		cfg.Store.Root = cleanStoreRoot
	}
	store, _, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if err := corrmatrix.Remove(ctx, store, cleanMatrix, corrmatrix.WithLogger(logger)); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed matrix %s\n", cleanMatrix)
	return err
}
