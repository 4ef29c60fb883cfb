package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/corrmatrix/internal/fs"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	name := "matrices/ml-100k.csv"
	data := []byte("2\nprecomputedMeans=false,minCommonRatedMovies=1\nNaN,.5000\n.5000,NaN\n")

	w, err := store.Create(ctx, name)
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	// Not visible until closed.
	_, err = os.Stat(filepath.Join(tmpDir, "matrices", "ml-100k.csv"))
	require.True(t, os.IsNotExist(err))
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), os.ErrClosed)

	blob, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer blob.Close()
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 1)
	n, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "2", string(buf))

	r, err := NewReader(ctx, blob)
	require.NoError(t, err)
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, all)

	require.NoError(t, store.Put(ctx, "matrices/ml-100k.csv.report.json", []byte("{}")))
	names, err = store.List(ctx, "matrices/")
	require.NoError(t, err)
	assert.Equal(t, []string{"matrices/ml-100k.csv", "matrices/ml-100k.csv.report.json"}, names)

	require.NoError(t, store.Delete(ctx, name))
	require.NoError(t, store.Delete(ctx, name))
	_, err = store.Open(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ReadRangeBoundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "b.bin", []byte("0123456789")))

	blob, err := store.Open(ctx, "b.bin")
	require.NoError(t, err)
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "89", string(content))

	_, err = blob.ReadRange(ctx, 20, 5)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLocalStore_AbortPublishesNothing(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	ctx := context.Background()

	w, err := store.Create(ctx, "m.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, Abort(w))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStore_RenameFailureRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("m.csv", fs.Fault{FailOnRename: true, FailAfterBytes: -1})
	store := NewLocalStore(dir, WithFileSystem(faulty))
	ctx := context.Background()

	w, err := store.Create(ctx, "m.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)

	err = w.Close()
	assert.ErrorIs(t, err, fs.ErrInjected)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	w, err := store.Create(ctx, "b")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)

	_, err = store.Open(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())
	require.NoError(t, store.Put(ctx, "a", []byte("x")))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	blob, err := store.Open(ctx, "b")
	require.NoError(t, err)
	r, err := NewReader(ctx, blob)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

type failingDeleteStore struct {
	*MemoryStore
	fail string
}

func (s failingDeleteStore) Delete(ctx context.Context, name string) error {
	if name == s.fail {
		return errors.New("delete failed")
	}
	return s.MemoryStore.Delete(ctx, name)
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}

	require.NoError(t, DeleteAll(ctx, store, []string{"a", "b"}, 1))
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names)

	err = DeleteAll(ctx, failingDeleteStore{MemoryStore: store, fail: "c"}, []string{"c"}, 0)
	assert.Error(t, err)
}
