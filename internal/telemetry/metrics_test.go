package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetricsTextfile(t *testing.T) {
	m := NewRunMetrics()
	m.RecordsFetched.Add(12)
	m.RecordsMerged.WithLabelValues("added").Add(3)
	m.RecordsDelivered.WithLabelValues("alert").Add(2)
	m.ObserveRun("ingest", time.Now().Add(-time.Second), nil)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.RecordsFetched))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsMerged.WithLabelValues("added")))

	path := filepath.Join(t.TempDir(), "euvd.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "euvd_records_fetched_total 12")
	assert.Contains(t, out, `euvd_records_delivered_total{channel="alert"} 2`)
	assert.Contains(t, out, `euvd_run_last_success_timestamp_seconds{run="ingest"}`)
}

func TestObserveRunFailure(t *testing.T) {
	m := NewRunMetrics()
	m.ObserveRun("notify", time.Now(), errors.New("boom"))

	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))
	assert.Equal(t, 0, testutil.CollectAndCount(m.LastSuccess))
}

func TestWriteTextfileDisabled(t *testing.T) {
	var m *RunMetrics
	assert.NoError(t, m.WriteTextfile("/nonexistent/metrics.prom"))
	assert.NoError(t, NewRunMetrics().WriteTextfile(""))
}

func TestRegistriesAreIndependent(t *testing.T) {
	// A second run in the same process must not panic on duplicate registration.
	assert.NotPanics(t, func() {
		NewRunMetrics()
		NewRunMetrics()
	})
}
