package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hupe1980/corrmatrix"
	"github.com/hupe1980/corrmatrix/neighbors"
)

var (
	neighborsMatrix  string
	neighborsUser    int
	neighborsK       int
	neighborsRatings string
	neighborsStore   string
	neighborsRoot    string
)

var neighborsCmd = &cobra.Command{
	Use:   "neighbors",
	Short: "Print top-K neighbor lists from a matrix",
	Long: `Print the K most similar users of one user, or of every user.

Without --ratings, users and peers are matrix indexes. With --ratings, they
are the user ids of that file, which must be the file the matrix was built
from. Without --matrix, the latest matrix of the registry is used.

Examples:
  corrmatrix neighbors --matrix sim.csv --user 0 --k 20
  corrmatrix neighbors --matrix sim.csv --ratings ratings.dat --user 42`,
	RunE: runNeighbors,
}

func init() {
	f := neighborsCmd.Flags()
	f.StringVar(&neighborsMatrix, "matrix", "", "matrix name in the store")
	f.IntVar(&neighborsUser, "user", -1, "user to print (default all)")
	f.IntVar(&neighborsK, "k", 0, "neighbors per user")
	f.StringVar(&neighborsRatings, "ratings", "", "ratings file mapping indexes to user ids")
	f.StringVar(&neighborsStore, "store", "", "store kind: local, minio or s3")
	f.StringVar(&neighborsRoot, "store-root", "", "directory of the local store")

	rootCmd.AddCommand(neighborsCmd)
}

func runNeighbors(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("k") {
		cfg.Neighbors.K = neighborsK
	}
	if f.Changed("store") {
		cfg.Store.Kind = neighborsStore
	}
	if f.Changed("store-root") {
		cfg.Store.Root = neighborsRoot
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, registry, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	opts := []corrmatrix.Option{corrmatrix.WithLogger(logger)}
	if registry != nil {
		opts = append(opts, corrmatrix.WithRegistry(registry))
	}

	tbl, err := corrmatrix.Neighbors(ctx, store, neighborsMatrix, cfg.Neighbors.K, opts...)
	if err != nil {
		return err
	}

	ids := make([]int, tbl.Len())
	for i := range ids {
		ids[i] = i
	}
	if neighborsRatings != "" {
		repo, err := readRatingsFile(neighborsRatings)
		if err != nil {
			return fmt.Errorf("read ratings: %w", err)
		}
		ids = repo.UserIDs()
		if len(ids) != tbl.Len() {
			return fmt.Errorf("ratings file has %d users, matrix has %d", len(ids), tbl.Len())
		}
	}

	out := cmd.OutOrStdout()
	if neighborsUser < 0 {
		return tbl.Deliver(neighbors.ConsumerFunc(func(_ int, id int, list neighbors.List) error {
			return printList(out, id, list, ids)
		}), ids)
	}

	i, ok := slices.BinarySearch(ids, neighborsUser)
	if !ok {
		return fmt.Errorf("unknown user %d", neighborsUser)
	}
	return printList(out, neighborsUser, tbl.Neighbors(i), ids)
}

func printList(w io.Writer, user int, list neighbors.List, ids []int) error {
	for _, e := range list {
		if _, err := fmt.Fprintf(w, "%d\t%d\t%.4f\n", user, ids[e.Peer], e.Value); err != nil {
			return err
		}
	}
	return nil
}
