package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromMetrics(t *testing.T) {
	m := newPromMetrics()

	m.RecordRow(0, 3, time.Millisecond)
	m.RecordRow(1, 2, time.Millisecond)
	m.RecordSpill(10, 20, time.Millisecond)
	m.RecordLoad(10, 20, time.Millisecond)
	m.RecordBuild(2, time.Second, nil)
	m.RecordBuild(2, time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.rows))
	assert.Equal(t, 5.0, promtestutil.ToFloat64(m.definedPairs))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.spills))
	assert.Equal(t, 20.0, promtestutil.ToFloat64(m.spilledBytes))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.loads))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.builds.WithLabelValues("ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.builds.WithLabelValues("error")))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.users))

	path := filepath.Join(t.TempDir(), "corrmatrix.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "corrmatrix_rows_written_total 2")
	assert.Contains(t, string(data), `corrmatrix_builds_total{status="error"} 1`)
}
