package matrix

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/corrmatrix/internal/fs"
	"github.com/hupe1980/corrmatrix/internal/rowstore"
)

// Algorithm selects the correlation kernel.
type Algorithm uint8

const (
	// RawMoments computes Pearson from raw sums over the common items.
	RawMoments Algorithm = iota
	// PrecomputedMeans centers on each user's mean over all of their ratings.
	PrecomputedMeans
)

func (a Algorithm) String() string {
	switch a {
	case RawMoments:
		return "raw-moments"
	case PrecomputedMeans:
		return "precomputed-means"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm maps "raw-moments" and "precomputed-means" to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "", "raw-moments":
		return RawMoments, nil
	case "precomputed-means":
		return PrecomputedMeans, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q", s)
	}
}

// MetricsCollector receives build telemetry.
type MetricsCollector interface {
	// RecordRow is called after each matrix row is written. defined is the
	// number of computed (non-deferred) cells that were not undefined.
	RecordRow(row, defined int, duration time.Duration)

	// RecordSpill is called after a row segment was written to disk.
	RecordSpill(elements int, bytes int64, duration time.Duration)

	// RecordLoad is called after a spill file was read back.
	RecordLoad(elements int, bytes int64, duration time.Duration)

	// RecordBuild is called once when a build finishes.
	RecordBuild(users int, duration time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordRow(int, int, time.Duration)     {}
func (noopMetrics) RecordSpill(int, int64, time.Duration) {}
func (noopMetrics) RecordLoad(int, int64, time.Duration)  {}
func (noopMetrics) RecordBuild(int, time.Duration, error) {}

// Options configures a Builder.
type Options struct {
	// MinCommonItems is the number of co-rated items below which a pair is
	// undefined. Must be at least 1.
	MinCommonItems int

	Algorithm Algorithm

	// BudgetElements bounds the deferred values held in memory across all
	// rows. 0 disables the limit.
	BudgetElements int64

	// InitialChunk is the capacity each row reserves up front.
	InitialChunk int

	// SpillDir holds spill files. Defaults to os.TempDir(). A build removes
	// stale spill files there when it starts, so concurrent builds need
	// distinct directories.
	SpillDir string

	SpillCompression rowstore.Compression

	// SpillIOLimitBytesPerSec throttles spill IO. 0 is unlimited.
	SpillIOLimitBytesPerSec int64

	// ProgressEvery logs progress every this many rows at debug level.
	ProgressEvery int

	Logger  *slog.Logger
	Metrics MetricsCollector

	// FS is the file system for spill files.
	FS fs.FileSystem
}

// DefaultOptions are the options used by NewBuilder.
var DefaultOptions = Options{
	MinCommonItems:   1,
	Algorithm:        RawMoments,
	BudgetElements:   64 << 20,
	InitialChunk:     10000,
	SpillCompression: rowstore.CompressionNone,
	ProgressEvery:    1000,
}

func (o *Options) normalize() error {
	if o.MinCommonItems < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidThreshold, o.MinCommonItems)
	}
	if o.Algorithm != RawMoments && o.Algorithm != PrecomputedMeans {
		return fmt.Errorf("matrix: unknown algorithm %d", uint8(o.Algorithm))
	}
	if o.BudgetElements < 0 {
		return fmt.Errorf("matrix: negative budget %d", o.BudgetElements)
	}
	if o.InitialChunk < 0 {
		o.InitialChunk = 0
	}
	if o.SpillDir == "" {
		o.SpillDir = os.TempDir()
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultOptions.ProgressEvery
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Metrics == nil {
		o.Metrics = noopMetrics{}
	}
	if o.FS == nil {
		o.FS = fs.Default
	}
	return nil
}
