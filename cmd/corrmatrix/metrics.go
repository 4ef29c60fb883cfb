package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promMetrics implements corrmatrix.MetricsCollector on a private registry
// so a batch run can dump it to a node_exporter textfile.
type promMetrics struct {
	reg *prometheus.Registry

	rows          prometheus.Counter
	definedPairs  prometheus.Counter
	rowDuration   prometheus.Histogram
	spills        prometheus.Counter
	spilledBytes  prometheus.Counter
	spillDuration prometheus.Histogram
	loads         prometheus.Counter
	loadedBytes   prometheus.Counter
	builds        *prometheus.CounterVec
	buildDuration prometheus.Gauge
	users         prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

func newPromMetrics() *promMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &promMetrics{
		reg: reg,
		rows: f.NewCounter(prometheus.CounterOpts{
			Name: "corrmatrix_rows_written_total",
			Help: "Matrix rows written.",
		}),
		definedPairs: f.NewCounter(prometheus.CounterOpts{
			Name: "corrmatrix_defined_pairs_total",
			Help: "User pairs with a defined correlation.",
		}),
		rowDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "corrmatrix_row_duration_seconds",
			Help:    "Time to compute and write one row.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		spills: f.NewCounter(prometheus.CounterOpts{
			Name: "corrmatrix_spills_total",
			Help: "Row segments spilled to disk.",
		}),
		spilledBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "corrmatrix_spilled_bytes_total",
			Help: "Bytes written to spill files.",
		}),
		spillDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "corrmatrix_spill_duration_seconds",
			Help:    "Time to write one spill segment.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		loads: f.NewCounter(prometheus.CounterOpts{
			Name: "corrmatrix_spill_loads_total",
			Help: "Spill files read back.",
		}),
		loadedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "corrmatrix_loaded_bytes_total",
			Help: "Bytes read back from spill files.",
		}),
		builds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corrmatrix_builds_total",
			Help: "Finished builds by status.",
		}, []string{"status"}),
		buildDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "corrmatrix_build_duration_seconds",
			Help: "Duration of the last build.",
		}),
		users: f.NewGauge(prometheus.GaugeOpts{
			Name: "corrmatrix_users",
			Help: "Users in the last build.",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "corrmatrix_last_success_timestamp_seconds",
			Help: "Unix time of the last successful build.",
		}),
	}
}

func (m *promMetrics) RecordRow(_ int, defined int, d time.Duration) {
	m.rows.Inc()
	m.definedPairs.Add(float64(defined))
	m.rowDuration.Observe(d.Seconds())
}

func (m *promMetrics) RecordSpill(_ int, bytes int64, d time.Duration) {
	m.spills.Inc()
	m.spilledBytes.Add(float64(bytes))
	m.spillDuration.Observe(d.Seconds())
}

func (m *promMetrics) RecordLoad(_ int, bytes int64, _ time.Duration) {
	m.loads.Inc()
	m.loadedBytes.Add(float64(bytes))
}

func (m *promMetrics) RecordBuild(users int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		m.lastSuccess.SetToCurrentTime()
	}
	m.builds.WithLabelValues(status).Inc()
	m.buildDuration.Set(d.Seconds())
	m.users.Set(float64(users))
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *promMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
