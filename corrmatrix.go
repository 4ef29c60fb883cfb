package corrmatrix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/corrmatrix/blobstore"
	"github.com/hupe1980/corrmatrix/internal/ioerr"
	"github.com/hupe1980/corrmatrix/matrix"
	"github.com/hupe1980/corrmatrix/neighbors"
	"github.com/hupe1980/corrmatrix/ratings"
)

// reportSuffix is appended to a matrix name to form its report name.
const reportSuffix = ".report.json"

// Report describes a published matrix.
type Report struct {
	Name       string        `json:"name"`
	Codec      string        `json:"codec"`
	Compressed bool          `json:"compressed"`
	Header     matrix.Header `json:"header"`
	Stats      matrix.Stats  `json:"stats"`

	// StoredBytes is the size of the blob, after compression.
	StoredBytes int64     `json:"stored_bytes"`
	Version     uint64    `json:"version,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportName returns the blob name of the report for matrix name.
func ReportName(name string) string {
	return name + reportSuffix
}

// Build computes the similarity matrix of repo and streams it to store
// under name. The blob only becomes visible if the build succeeds; on error
// the partial blob is discarded and the returned report carries the
// statistics gathered so far.
//
// After a successful build the registry (if any) is committed and the
// report is written next to the matrix.
func Build(ctx context.Context, repo ratings.Repository, store blobstore.BlobStore, name string, optFns ...Option) (*Report, error) {
	o := applyOptions(optFns)
	o.logger = o.logger.WithMatrix(name)
	log := o.logger

	b, err := matrix.NewBuilder(repo, o.builderOptions()...)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Name:       name,
		Codec:      o.codec.Name(),
		Compressed: o.compress,
		Header:     b.Header(),
		CreatedAt:  time.Now().UTC(),
	}

	w, err := store.Create(ctx, name)
	if err != nil {
		err = ioerr.New(ioerr.SiteInit, -1, name, err)
		log.LogBuild(ctx, report.Stats, err)
		return report, err
	}

	cw := &countingWriter{w: w}
	report.Stats, err = writeMatrix(ctx, b, cw, &o)
	if err == nil {
		if cerr := w.Close(); cerr != nil {
			err = ioerr.New(ioerr.SiteClose, -1, name, cerr)
		}
	} else if aerr := blobstore.Abort(w); aerr != nil {
		log.Warn("failed to discard partial matrix", "error", aerr)
	}
	report.StoredBytes = cw.n

	log.LogBuild(ctx, report.Stats, err)
	if err != nil {
		return report, err
	}

	err = publish(ctx, store, report, &o)
	log.LogPublish(ctx, report.Version, err)
	return report, err
}

func writeMatrix(ctx context.Context, b *matrix.Builder, w io.Writer, o *options) (matrix.Stats, error) {
	if !o.compress {
		return b.Build(ctx, w)
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(o.compressionLevel))
	if err != nil {
		return matrix.Stats{}, ioerr.New(ioerr.SiteInit, -1, "", err)
	}
	stats, err := b.Build(ctx, zw)
	if err != nil {
		_ = zw.Close()
		return stats, err
	}
	if err := zw.Close(); err != nil {
		return stats, ioerr.New(ioerr.SiteClose, -1, "", err)
	}
	return stats, nil
}

func publish(ctx context.Context, store blobstore.BlobStore, report *Report, o *options) error {
	if o.registry != nil {
		v, err := o.registry.Commit(ctx, report.Name)
		if err != nil {
			return fmt.Errorf("corrmatrix: commit %s: %w", report.Name, err)
		}
		report.Version = v
	}

	if !o.report {
		return nil
	}
	data, err := o.codec.Marshal(report)
	if err != nil {
		return fmt.Errorf("corrmatrix: encode report: %w", err)
	}
	if err := store.Put(ctx, ReportName(report.Name), data); err != nil {
		return fmt.Errorf("corrmatrix: write report: %w", err)
	}
	return nil
}

// Neighbors loads the top-k neighbor lists of matrix name. An empty name
// resolves to the latest matrix of the configured registry.
func Neighbors(ctx context.Context, store blobstore.BlobStore, name string, k int, optFns ...Option) (*neighbors.Table, error) {
	o := applyOptions(optFns)

	if name == "" {
		var err error
		if name, err = Latest(ctx, optFns...); err != nil {
			return nil, err
		}
	}
	log := o.logger.WithMatrix(name)

	start := time.Now()
	tbl, err := neighbors.LoadBlob(ctx, store, name, k)
	if err != nil {
		log.LogNeighbors(ctx, k, 0, 0, time.Since(start), err)
		return nil, err
	}
	log.LogNeighbors(ctx, k, tbl.Len(), int(tbl.Covered().GetCardinality()), time.Since(start), nil)
	return tbl, nil
}

// Latest returns the name of the latest matrix in the configured registry.
func Latest(ctx context.Context, optFns ...Option) (string, error) {
	o := applyOptions(optFns)
	if o.registry == nil {
		return "", ErrNoRegistry
	}
	_, name, err := o.registry.Latest(ctx)
	return name, err
}

// ReadReport reads the report written by Build for matrix name.
func ReadReport(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Report, error) {
	o := applyOptions(optFns)

	blob, err := store.Open(ctx, ReportName(name))
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	r, err := blobstore.NewReader(ctx, blob)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var report Report
	if err := o.codec.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("corrmatrix: decode report %s: %w", name, err)
	}
	return &report, nil
}

// Remove deletes matrix name and its report. Missing blobs are ignored.
func Remove(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) error {
	o := applyOptions(optFns)

	err := blobstore.DeleteAll(ctx, store, []string{name, ReportName(name)}, 2)
	if errors.Is(err, blobstore.ErrNotFound) {
		err = nil
	}
	o.logger.WithMatrix(name).LogRemove(ctx, err)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
