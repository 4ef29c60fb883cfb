// Package corrmatrix computes user-user Pearson similarity matrices for
// user-based collaborative filtering and serves top-K neighbor lists from
// them.
//
// The full N×N matrix rarely fits in memory. Build streams it row by row to
// a blob store while holding only the deferred lower triangle, under one
// global element budget; rows that cannot grow are spilled to disk and read
// back when their turn comes.
//
// # Quick Start
//
//	repo := ratings.NewMemoryRepository()
//	_ = repo.Add(1, ratings.Rating{ItemID: 10, Value: 4}, ratings.Rating{ItemID: 11, Value: 2})
//	// ...
//
//	store := blobstore.NewLocalStore("./matrices")
//	report, err := corrmatrix.Build(ctx, repo, store, "similarity.csv",
//	    corrmatrix.WithMinCommonItems(5),
//	    corrmatrix.WithBudget(256<<20),
//	)
//
//	tbl, err := corrmatrix.Neighbors(ctx, store, "similarity.csv", 50)
//	for _, e := range tbl.Neighbors(0) {
//	    fmt.Println(e.Peer, e.Value)
//	}
//
// # Matrix Format
//
// A matrix is plain text: the user count, a metadata line, then one line per
// user with N comma-separated tokens. Correlations are quantized to four
// decimals and written in a fixed-width form ("NaN", "1.0000", "-1.0000",
// ".dddd", "-.dddd"), so a file is at most 8 bytes per cell. See package
// matrix for details.
//
// # Cloud Storage
//
// Matrices can be published to MinIO or S3:
//
//	store, _ := s3.New(ctx, "my-bucket", func(o *s3.Options) { o.Prefix = "matrices/" })
//	registry := s3.NewRegistryFromConfig(cfg, "corrmatrix-registry", "s3://my-bucket/matrices")
//	report, err := corrmatrix.Build(ctx, repo, store, "2024-05-01.csv.zst",
//	    corrmatrix.WithOutputCompression(true),
//	    corrmatrix.WithRegistry(registry),
//	)
//
// With a registry, Neighbors resolves an empty name to the latest committed
// matrix.
//
// # Errors
//
// IO failures are reported as *IOError with the Site that failed (Init,
// Write, Close, Spill, Load). Cancellation between rows returns an error
// wrapping ErrCanceled; spill files are removed either way.
package corrmatrix
