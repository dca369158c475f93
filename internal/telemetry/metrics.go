package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics collects the counters of one ingestion or notification run.
// Each run owns its registry; the result is written once, as a node-exporter textfile.
type RunMetrics struct {
	Registry *prometheus.Registry

	RecordsFetched   prometheus.Counter
	RecordsStored    prometheus.Gauge
	RecordsMerged    *prometheus.CounterVec
	IDsEvicted       *prometheus.CounterVec
	RecordsMatched   *prometheus.CounterVec
	RecordsDelivered *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec
	RunDuration      *prometheus.GaugeVec
	LastSuccess      *prometheus.GaugeVec
}

// NewRunMetrics creates and registers the run metrics on a fresh registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{Registry: prometheus.NewRegistry()}

	m.RecordsFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "euvd_records_fetched_total",
			Help: "Records received from the feed",
		},
	)

	m.RecordsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "euvd_records_stored",
			Help: "Records in the store after the run",
		},
	)

	m.RecordsMerged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "euvd_records_merged_total",
			Help: "Records added, updated, purged or discarded by reconciliation",
		},
		[]string{"outcome"},
	)

	m.IDsEvicted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "euvd_notified_ids_evicted_total",
			Help: "Notified ids removed because their record changed or was purged",
		},
		[]string{"channel"},
	)

	m.RecordsMatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "euvd_records_matched_total",
			Help: "New records matching the keyword rules",
		},
		[]string{"channel"},
	)

	m.RecordsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "euvd_records_delivered_total",
			Help: "Records included in a successful delivery",
		},
		[]string{"channel"},
	)

	m.DeliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "euvd_delivery_failures_total",
			Help: "Failed deliveries",
		},
		[]string{"channel"},
	)

	m.RunDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "euvd_run_duration_seconds",
			Help: "Duration of the last run in seconds",
		},
		[]string{"run"},
	)

	m.LastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "euvd_run_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		},
		[]string{"run"},
	)

	m.Registry.MustRegister(
		m.RecordsFetched,
		m.RecordsStored,
		m.RecordsMerged,
		m.IDsEvicted,
		m.RecordsMatched,
		m.RecordsDelivered,
		m.DeliveryFailures,
		m.RunDuration,
		m.LastSuccess,
	)

	return m
}

// ObserveRun records the duration of a run started at start and, if it succeeded,
// its completion time.
func (m *RunMetrics) ObserveRun(run string, start time.Time, err error) {
	now := time.Now()
	m.RunDuration.WithLabelValues(run).Set(now.Sub(start).Seconds())
	if err == nil {
		m.LastSuccess.WithLabelValues(run).Set(float64(now.Unix()))
	}
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// An empty path is a no-op.
func (m *RunMetrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
