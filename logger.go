package corrmatrix

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/corrmatrix/matrix"
)

// Logger wraps slog.Logger with corrmatrix-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithMatrix adds the matrix name to the logger.
func (l *Logger) WithMatrix(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("matrix", name),
	}
}

// LogBuild logs the outcome of a build.
func (l *Logger) LogBuild(ctx context.Context, stats matrix.Stats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"users", stats.Users,
			"rows_written", stats.RowsWritten,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "build completed",
		"users", stats.Users,
		"defined_pairs", stats.DefinedPairs,
		"bytes", stats.BytesWritten,
		"spills", stats.Spill.Spills,
		"duration", stats.Duration,
	)
}

// LogPublish logs the report and registry step after a build.
func (l *Logger) LogPublish(ctx context.Context, version uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "matrix published",
		"version", version,
	)
}

// LogNeighbors logs a neighbor table load.
func (l *Logger) LogNeighbors(ctx context.Context, k, users, covered int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "neighbor load failed",
			"k", k,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "neighbor load completed",
		"k", k,
		"users", users,
		"covered", covered,
		"duration", d,
	)
}

// LogRemove logs the removal of a matrix and its report.
func (l *Logger) LogRemove(ctx context.Context, err error) {
	if err != nil {
		l.WarnContext(ctx, "remove failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "matrix removed")
}
