package corrmatrix

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/corrmatrix/matrix"
)

// MetricsCollector receives build telemetry.
// Implement this interface to integrate with monitoring systems like
// Prometheus; cmd/corrmatrix ships such a collector.
type MetricsCollector = matrix.MetricsCollector

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRow(int, int, time.Duration)     {}
func (NoopMetricsCollector) RecordSpill(int, int64, time.Duration) {}
func (NoopMetricsCollector) RecordLoad(int, int64, time.Duration)  {}
func (NoopMetricsCollector) RecordBuild(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	Rows            atomic.Int64
	DefinedPairs    atomic.Int64
	RowTotalNanos   atomic.Int64
	Spills          atomic.Int64
	SpilledElements atomic.Int64
	SpilledBytes    atomic.Int64
	SpillTotalNanos atomic.Int64
	Loads           atomic.Int64
	LoadedElements  atomic.Int64
	LoadedBytes     atomic.Int64
	Builds          atomic.Int64
	BuildErrors     atomic.Int64
	BuildTotalNanos atomic.Int64
}

// RecordRow implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRow(_ int, defined int, duration time.Duration) {
	b.Rows.Add(1)
	b.DefinedPairs.Add(int64(defined))
	b.RowTotalNanos.Add(duration.Nanoseconds())
}

// RecordSpill implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSpill(elements int, bytes int64, duration time.Duration) {
	b.Spills.Add(1)
	b.SpilledElements.Add(int64(elements))
	b.SpilledBytes.Add(bytes)
	b.SpillTotalNanos.Add(duration.Nanoseconds())
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(elements int, bytes int64, _ time.Duration) {
	b.Loads.Add(1)
	b.LoadedElements.Add(int64(elements))
	b.LoadedBytes.Add(bytes)
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(_ int, duration time.Duration, err error) {
	b.Builds.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		Rows:            b.Rows.Load(),
		DefinedPairs:    b.DefinedPairs.Load(),
		RowAvgNanos:     avg(b.RowTotalNanos.Load(), b.Rows.Load()),
		Spills:          b.Spills.Load(),
		SpilledElements: b.SpilledElements.Load(),
		SpilledBytes:    b.SpilledBytes.Load(),
		SpillAvgNanos:   avg(b.SpillTotalNanos.Load(), b.Spills.Load()),
		Loads:           b.Loads.Load(),
		LoadedElements:  b.LoadedElements.Load(),
		LoadedBytes:     b.LoadedBytes.Load(),
		Builds:          b.Builds.Load(),
		BuildErrors:     b.BuildErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	Rows            int64
	DefinedPairs    int64
	RowAvgNanos     int64
	Spills          int64
	SpilledElements int64
	SpilledBytes    int64
	SpillAvgNanos   int64
	Loads           int64
	LoadedElements  int64
	LoadedBytes     int64
	Builds          int64
	BuildErrors     int64
}
