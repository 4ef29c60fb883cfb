package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/corrmatrix/internal/fs"
	"github.com/hupe1980/corrmatrix/internal/rowstore"
)

// runDirPrefix names the per-build spill directories created under the
// system temp dir when no spill directory is configured.
const runDirPrefix = "corrmatrix-run-"

// newRunDir creates a private spill directory for one build. The caller
// removes it when the build ends.
func newRunDir() (string, error) {
	return os.MkdirTemp("", runDirPrefix)
}

// cleanRunDirs removes spill files from the run directories under parent and
// then the directories themselves. It returns the number of spill files
// removed.
func cleanRunDirs(parent string) (int, error) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var (
		removed int
		errs    []error
	)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), runDirPrefix) {
			continue
		}
		dir := filepath.Join(parent, e.Name())
		n, err := rowstore.CleanupStale(fs.Default, dir, rowstore.DefaultPrefix)
		removed += n
		if err != nil {
			errs = append(errs, err)
			continue
		}
		// Fails on a non-empty directory, which is then left alone.
		if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}
