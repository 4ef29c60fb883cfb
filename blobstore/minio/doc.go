// Package minio provides a BlobStore backed by MinIO or any other
// S3-compatible service (Ceph, Garage, SeaweedFS) through the MinIO client.
//
// # Basic Usage
//
//	store, err := minio.Dial(ctx, "localhost:9000", "matrices", func(o *minio.Options) {
//	    o.AccessKey = "minioadmin"
//	    o.SecretKey = "minioadmin"
//	    o.CreateBucket = true
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stats, err := corrmatrix.Build(ctx, repo, store, "similarity.csv")
//
// Matrices are streamed with a PutObject of unknown length, so the object
// becomes visible only once the build closes it successfully. An aborted
// build leaves nothing behind.
package minio
