package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/corrmatrix/blobstore"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err)

	prefix := fmt.Sprintf("test-corrmatrix-%d/", time.Now().UnixNano())
	store := NewStore(s3.NewFromConfig(cfg), bucket, prefix)

	const matrix = "2\nprecomputedMeans=false,minCommonRatedMovies=1\nNaN,.5000\n.5000,NaN\n"

	w, err := store.Create(ctx, "m.csv")
	require.NoError(t, err)
	_, err = io.WriteString(w, matrix)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "m.csv")

	blob, err := store.Open(ctx, "m.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(len(matrix)), blob.Size())

	r, err := blobstore.NewReader(ctx, blob)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, matrix, string(data))

	require.NoError(t, blobstore.DeleteAll(ctx, store, names, 4))
	_, err = store.Open(ctx, "m.csv")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
