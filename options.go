package corrmatrix

import (
	"context"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/corrmatrix/codec"
	"github.com/hupe1980/corrmatrix/internal/fs"
	"github.com/hupe1980/corrmatrix/internal/rowstore"
	"github.com/hupe1980/corrmatrix/matrix"
)

// Algorithm selects the Pearson variant.
type Algorithm = matrix.Algorithm

const (
	// RawMoments centers each pair on the means of its co-rated items.
	RawMoments = matrix.RawMoments
	// PrecomputedMeans centers on each user's mean over all ratings.
	PrecomputedMeans = matrix.PrecomputedMeans
)

// Compression selects how spill segments are compressed.
type Compression = rowstore.Compression

const (
	CompressionNone = rowstore.CompressionNone
	CompressionLZ4  = rowstore.CompressionLZ4
	CompressionZSTD = rowstore.CompressionZSTD
)

// ParseCompression maps "none", "lz4" and "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	return rowstore.ParseCompression(s)
}

// Registry tracks the latest published matrix. s3.Registry implements it.
type Registry interface {
	Commit(ctx context.Context, name string) (uint64, error)
	Latest(ctx context.Context) (uint64, string, error)
}

type options struct {
	builder          []func(*matrix.Options)
	metricsCollector MetricsCollector
	logger           *Logger
	codec            codec.Codec
	compress         bool
	compressionLevel zstd.EncoderLevel
	registry         Registry
	report           bool
}

// Option configures Build, Neighbors and Remove.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metricsCollector = m
	}
}

// WithMinCommonItems sets the co-rated item count below which a pair is
// undefined.
func WithMinCommonItems(k int) Option {
	return WithBuilderOptions(func(mo *matrix.Options) { mo.MinCommonItems = k })
}

// WithAlgorithm selects the Pearson variant.
func WithAlgorithm(a Algorithm) Option {
	return WithBuilderOptions(func(mo *matrix.Options) { mo.Algorithm = a })
}

// WithBudget bounds the deferred values held in memory. 0 disables the limit.
func WithBudget(elements int64) Option {
	return WithBuilderOptions(func(mo *matrix.Options) { mo.BudgetElements = elements })
}

// WithInitialChunk sets the capacity every row reserves up front.
func WithInitialChunk(n int) Option {
	return WithBuilderOptions(func(mo *matrix.Options) { mo.InitialChunk = n })
}

// WithSpillDir sets the directory for spill files.
func WithSpillDir(dir string) Option {
	return WithBuilderOptions(func(mo *matrix.Options) { mo.SpillDir = dir })
}

// WithSpillCompression sets the spill segment compression.
func WithSpillCompression(c Compression) Option {
	return WithBuilderOptions(func(mo *matrix.Options) { mo.SpillCompression = c })
}

// WithSpillIOLimit throttles spill reads and writes to bytesPerSec.
func WithSpillIOLimit(bytesPerSec int64) Option {
	return WithBuilderOptions(func(mo *matrix.Options) { mo.SpillIOLimitBytesPerSec = bytesPerSec })
}

// WithFileSystem replaces the file system used for spill files.
func WithFileSystem(fsys fs.FileSystem) Option {
	return WithBuilderOptions(func(mo *matrix.Options) { mo.FS = fsys })
}

// WithBuilderOptions passes raw options to matrix.NewBuilder. They are
// applied in order after the defaults.
func WithBuilderOptions(fns ...func(*matrix.Options)) Option {
	return func(o *options) {
		o.builder = append(o.builder, fns...)
	}
}

// WithOutputCompression zstd-compresses the matrix as it is written.
// Neighbors detects compressed matrices on its own.
func WithOutputCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}

// WithCompressionLevel sets the zstd level used by WithOutputCompression.
func WithCompressionLevel(level zstd.EncoderLevel) Option {
	return func(o *options) {
		o.compressionLevel = level
	}
}

// WithRegistry commits every successful build to r and lets Neighbors
// resolve the latest matrix.
func WithRegistry(r Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithReportCodec sets the codec for build reports.
//
// If nil is passed, codec.Default is used.
func WithReportCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithoutReport skips writing the build report next to the matrix.
func WithoutReport() Option {
	return func(o *options) {
		o.report = false
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		codec:            codec.Default,
		compressionLevel: zstd.SpeedDefault,
		report:           true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o *options) builderOptions() []func(*matrix.Options) {
	base := func(mo *matrix.Options) {
		mo.Logger = o.logger.Logger
		mo.Metrics = o.metricsCollector
	}
	return append([]func(*matrix.Options){base}, o.builder...)
}
