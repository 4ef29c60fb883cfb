// Package blobstore abstracts where matrices and their build reports are
// published.
//
// A matrix is written once through Create and read sequentially by the
// neighbor loader. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local file system; writes are atomic (temp file + rename)
//     and reads are memory-mapped
//   - MemoryStore: in-memory, for tests
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with multipart streaming uploads
package blobstore
