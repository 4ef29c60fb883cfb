// Package testutil provides testing utilities for corrmatrix.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random rating data and computing exact
// Pearson correlations the slow way, as ground truth for the matrix builder.
//
// # Random Ratings
//
//	rng := testutil.NewRNG(seed)
//	repo := rng.Repository(200, 50, 0.3) // users, items, density
//
// # Exact Correlation (Ground Truth)
//
//	r, ok := testutil.ExactPearson(x, y, minCommon)
//	r, ok := testutil.ExactPearsonWithMeans(x, y, minCommon, meanX, meanY)
package testutil
