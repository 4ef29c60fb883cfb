// Package s3 publishes matrices to Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", func(o *s3.Options) {
//	    o.Prefix = "matrices/"
//	    o.Region = "eu-central-1"
//	})
//
//	stats, err := corrmatrix.Build(ctx, repo, store, "ml-100k.csv.zst")
//
// Matrices are streamed through the multipart upload manager, so a build
// never buffers more than a few parts in memory. A Registry keeps a
// versioned "latest matrix" pointer per namespace in DynamoDB, using
// conditional writes so that concurrent publishers cannot overwrite each
// other.
package s3
