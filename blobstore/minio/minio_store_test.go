package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/corrmatrix/blobstore"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	ctx := context.Background()
	store, err := Dial(ctx, endpoint, "test-corrmatrix", func(o *Options) {
		o.AccessKey = "minioadmin"
		o.SecretKey = "minioadmin"
		o.Prefix = "test-prefix/"
		o.CreateBucket = true
	})
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	data := []byte("2\nprecomputedMeans=true,minCommonRatedMovies=3\nNaN,-.2500\n-.2500,NaN\n")
	require.NoError(t, store.Put(ctx, "put.csv", data))

	blob, err := store.Open(ctx, "put.csv")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := blob.ReadRange(ctx, 47, 8)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "NaN,-.25", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	wb, err := store.Create(ctx, "stream.csv")
	require.NoError(t, err)
	_, err = wb.Write(data)
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	aborted, err := store.Create(ctx, "aborted.csv")
	require.NoError(t, err)
	_, err = aborted.Write([]byte("1\n"))
	require.NoError(t, err)
	require.NoError(t, blobstore.Abort(aborted))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "put.csv")
	assert.Contains(t, names, "stream.csv")
	assert.NotContains(t, names, "aborted.csv")

	require.NoError(t, blobstore.DeleteAll(ctx, store, names, 2))

	_, err = store.Open(ctx, "put.csv")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
