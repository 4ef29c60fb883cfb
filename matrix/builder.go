package matrix

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/corrmatrix/codec"
	"github.com/hupe1980/corrmatrix/internal/ioerr"
	"github.com/hupe1980/corrmatrix/internal/lookup"
	"github.com/hupe1980/corrmatrix/internal/pearson"
	"github.com/hupe1980/corrmatrix/internal/resource"
	"github.com/hupe1980/corrmatrix/internal/rowstore"
	"github.com/hupe1980/corrmatrix/ratings"
)

const writeBufferSize = 1 << 20

// Stats describes a finished (or aborted) build.
type Stats struct {
	Users          int            `json:"users"`
	Algorithm      string         `json:"algorithm"`
	MinCommonItems int            `json:"min_common_items"`
	RowsWritten    int            `json:"rows_written"`
	Pairs          int64          `json:"pairs"`
	DefinedPairs   int64          `json:"defined_pairs"`
	BytesWritten   int64          `json:"bytes_written"`
	Duration       time.Duration  `json:"duration_ns"`
	Spill          rowstore.Stats `json:"spill"`
}

// Builder computes the correlation matrix of a ratings repository.
type Builder struct {
	repo ratings.Repository
	opts Options
}

// NewBuilder validates the options and returns a Builder for repo.
func NewBuilder(repo ratings.Repository, optFns ...func(o *Options)) (*Builder, error) {
	if repo == nil {
		return nil, fmt.Errorf("matrix: nil repository")
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	return &Builder{repo: repo, opts: opts}, nil
}

// Header returns the header Build writes for the current repository.
func (b *Builder) Header() Header {
	return Header{
		N:                b.repo.UserCount(),
		PrecomputedMeans: b.opts.Algorithm == PrecomputedMeans,
		MinCommonItems:   b.opts.MinCommonItems,
	}
}

// Build writes the matrix to w. It does not close w.
//
// Rows are produced strictly in order. While row i is written, the value
// for column i of every later row j is appended to row j in the row store;
// row i itself starts with the i values deferred by rows 0..i-1, followed
// by NaN on the diagonal. Each row is destroyed once drained, which returns
// its budget to the rows still growing. The scheme depends on this order,
// so a Builder computes one row at a time.
//
// Spill files are removed before Build returns, on success and on error.
func (b *Builder) Build(ctx context.Context, w io.Writer) (stats Stats, err error) {
	start := time.Now()
	opts := b.opts
	log := opts.Logger

	users := b.repo.UserIDs()
	n := len(users)
	stats = Stats{
		Users:          n,
		Algorithm:      opts.Algorithm.String(),
		MinCommonItems: opts.MinCommonItems,
	}
	defer func() {
		stats.Duration = time.Since(start)
		opts.Metrics.RecordBuild(n, stats.Duration, err)
	}()

	// Ratings are fetched once; the inner loop touches every user per row.
	rs := make([][]ratings.Rating, n)
	for i, id := range users {
		rs[i] = b.repo.RatingsOf(id)
	}

	var means []float64
	if opts.Algorithm == PrecomputedMeans {
		means = pearson.Means(b.repo)
	}

	buf := lookup.New(ratings.MaxItemID(b.repo))

	budget := resource.NewController(resource.Config{
		BudgetElements:     opts.BudgetElements,
		IOLimitBytesPerSec: opts.SpillIOLimitBytesPerSec,
	})
	store, err := rowstore.New(n, budget, func(o *rowstore.Options) {
		o.InitialChunk = opts.InitialChunk
		o.SpillDir = opts.SpillDir
		o.Compression = opts.SpillCompression
		o.FS = opts.FS
		o.IOContext = ctx
		o.Logger = log
		o.OnSpill = func(ev rowstore.Event) {
			opts.Metrics.RecordSpill(ev.Elements, ev.Bytes, ev.Duration)
		}
		o.OnLoad = func(ev rowstore.Event) {
			opts.Metrics.RecordLoad(ev.Elements, ev.Bytes, ev.Duration)
		}
	})
	if err != nil {
		return stats, err
	}
	defer func() {
		stats.Spill = store.Stats()
		if cerr := store.Close(); cerr != nil {
			log.Warn("failed to remove spill files", "error", cerr)
		}
	}()

	log.Info("matrix build started",
		"users", n,
		"algorithm", opts.Algorithm.String(),
		"min_common_items", opts.MinCommonItems,
		"budget_elements", opts.BudgetElements,
	)

	bw := bufio.NewWriterSize(w, writeBufferSize)

	h := b.Header()
	h.N = n
	header := h.AppendTo(nil)
	if _, err := bw.Write(header); err != nil {
		return stats, ioerr.New(ioerr.SiteInit, -1, "", err)
	}
	if err := bw.Flush(); err != nil {
		return stats, ioerr.New(ioerr.SiteInit, -1, "", err)
	}
	stats.BytesWritten = int64(len(header))

	line := make([]byte, 0, max(n, 1)*codec.MaxTokenLen)
	for i := 0; i < n; i++ {
		if cerr := ctx.Err(); cerr != nil {
			log.Warn("matrix build canceled", "row", i, "users", n)
			return stats, fmt.Errorf("%w at row %d: %w", ErrCanceled, i, cerr)
		}
		rowStart := time.Now()

		if err := buf.Load(rs[i]); err != nil {
			return stats, fmt.Errorf("matrix: row %d: %w", i, err)
		}

		line = line[:0]
		for k := 0; k < i; k++ {
			q, err := store.Next(i)
			if err != nil {
				return stats, err
			}
			line = codec.AppendToken(line, q)
		}
		if err := store.Destroy(i); err != nil {
			return stats, err
		}
		line = codec.AppendToken(line, codec.Undefined)

		defined := 0
		for j := i + 1; j < n; j++ {
			var (
				r  float64
				ok bool
			)
			if opts.Algorithm == PrecomputedMeans {
				r, ok = pearson.PrecomputedMeans(rs[j], buf, opts.MinCommonItems, means[i], means[j])
			} else {
				r, ok = pearson.RawMoments(rs[j], buf, opts.MinCommonItems)
			}
			q := codec.Quantize(r, ok)
			if ok {
				defined++
			}

			if err := store.Append(j, q); err != nil {
				return stats, err
			}
			line = codec.AppendToken(line, q)
		}
		buf.Reset(rs[i])

		line[len(line)-1] = '\n'
		if _, err := bw.Write(line); err != nil {
			return stats, ioerr.New(ioerr.SiteWrite, i, "", err)
		}

		stats.RowsWritten++
		stats.Pairs += int64(n - i - 1)
		stats.DefinedPairs += int64(defined)
		stats.BytesWritten += int64(len(line))
		opts.Metrics.RecordRow(i, defined, time.Since(rowStart))

		if (i+1)%opts.ProgressEvery == 0 {
			log.Debug("matrix rows written", "rows", i+1, "users", n, "spilled_rows", store.Spilled().GetCardinality())
		}
	}

	if err := bw.Flush(); err != nil {
		return stats, ioerr.New(ioerr.SiteClose, -1, "", err)
	}

	log.Info("matrix build finished",
		"users", n,
		"pairs", stats.Pairs,
		"defined_pairs", stats.DefinedPairs,
		"bytes", stats.BytesWritten,
		"spills", store.Stats().Spills,
		"duration", time.Since(start),
	)
	return stats, nil
}
