package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hupe1980/corrmatrix"
)

var (
	pairRatings   string
	pairMinCommon int
)

var pairCmd = &cobra.Command{
	Use:   "pair USER USER",
	Short: "Print the correlation of two users",
	Long: `Compute the Pearson correlation of two users of a ratings file without
building a matrix. Undefined correlations print as NaN.

Examples:
  corrmatrix pair --ratings ratings.dat 10 42
  corrmatrix pair --ratings ratings.dat --min-common 5 10 42`,
	Args: cobra.ExactArgs(2),
	RunE: runPair,
}

func init() {
	f := pairCmd.Flags()
	f.StringVar(&pairRatings, "ratings", "", "ratings file (required)")
	f.IntVar(&pairMinCommon, "min-common", 0, "minimum co-rated items for a defined correlation")
	_ = pairCmd.MarkFlagRequired("ratings")

	rootCmd.AddCommand(pairCmd)
}

func runPair(cmd *cobra.Command, args []string) error {
	var users [2]int
	for i, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("user %q: %w", arg, err)
		}
		users[i] = id
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("min-common") {
		cfg.Build.MinCommonItems = pairMinCommon
	}

	repo, err := readRatingsFile(pairRatings)
	if err != nil {
		return fmt.Errorf("read ratings: %w", err)
	}

	r, ok, err := corrmatrix.Correlation(repo, users[0], users[1], corrmatrix.WithMinCommonItems(cfg.Build.MinCommonItems))
	if err != nil {
		return err
	}
	if !ok {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "NaN")
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", r)
	return err
}
