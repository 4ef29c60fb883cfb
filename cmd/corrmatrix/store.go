package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/hupe1980/corrmatrix"
	"github.com/hupe1980/corrmatrix/blobstore"
	"github.com/hupe1980/corrmatrix/blobstore/minio"
	"github.com/hupe1980/corrmatrix/blobstore/s3"
)

// openStore returns the configured blob store and, for s3 with a registry
// table, the registry.
func openStore(ctx context.Context, c StoreConfig) (blobstore.BlobStore, corrmatrix.Registry, error) {
	switch c.Kind {
	case "local":
		return blobstore.NewLocalStore(c.Root), nil, nil

	case "minio":
		store, err := minio.Dial(ctx, c.Endpoint, c.Bucket, func(o *minio.Options) {
			o.AccessKey = c.AccessKey
			o.SecretKey = c.SecretKey
			o.Region = c.Region
			o.Secure = c.Secure
			o.Prefix = c.Prefix
			o.CreateBucket = true
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case "s3":
		store, err := s3.New(ctx, c.Bucket, func(o *s3.Options) {
			o.Prefix = c.Prefix
			o.Region = c.Region
			o.Endpoint = c.Endpoint
			o.UsePathStyle = c.UsePathStyle
		})
		if err != nil {
			return nil, nil, err
		}
		if c.RegistryTable == "" {
			return store, nil, nil
		}

		var loadOpts []func(*awsconfig.LoadOptions) error
		if c.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(c.Region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		namespace := "s3://" + c.Bucket + "/" + c.Prefix
		return store, s3.NewRegistryFromConfig(cfg, c.RegistryTable, namespace), nil
	}
	return nil, nil, fmt.Errorf("unknown store kind %q", c.Kind)
}
