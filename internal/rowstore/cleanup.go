package rowstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/corrmatrix/internal/fs"
)

// CleanupStale removes files in dir whose name starts with prefix and ends
// in ".tmp". It returns how many were removed. A missing dir is not an error.
func CleanupStale(fsys fs.FileSystem, dir, prefix string) (int, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	entries, err := fsys.ReadDir(dir)
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
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".tmp") {
			continue
		}
		if err := fsys.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
