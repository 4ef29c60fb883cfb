// Package ratings defines the rating data consumed by the matrix builder.
//
// Parsing raw datasets is outside this module: callers fill a
// [MemoryRepository] (or implement [Repository] over their own storage) and
// hand it to matrix.NewBuilder.
//
//	repo := ratings.NewMemoryRepository()
//	_ = repo.Add(42, ratings.Rating{ItemID: 1, Value: 4.5})
//
// User indexes are positions in the ascending UserIDs slice; they are only
// meaningful for the repository instance (and matrix) they were derived from.
package ratings
