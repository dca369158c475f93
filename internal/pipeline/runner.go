// Package pipeline runs the ingestion and notification flows under the process lock.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"euvdalert/internal/config"
	"euvdalert/internal/ledger"
	"euvdalert/internal/lock"
	"euvdalert/internal/notify"
	"euvdalert/internal/record"
	"euvdalert/internal/state"
	"euvdalert/internal/telemetry"
)

// Fetcher supplies the records updated in a date window.
type Fetcher interface {
	Fetch(ctx context.Context, from, to time.Time) ([]record.Record, error)
}

// Deliverer hands a message to the notification providers.
type Deliverer interface {
	Deliver(ctx context.Context, msg notify.Message) error
}

// Scorer looks up EPSS probabilities by CVE id.
type Scorer interface {
	Lookup(ctx context.Context, cves []string) (map[string]float64, error)
}

// Runner holds the collaborators of a run. Ledger and Scorer may be nil.
type Runner struct {
	Config    *config.Config
	Fetcher   Fetcher
	Deliverer Deliverer
	Ledger    ledger.Store
	Scorer    Scorer
	Metrics   *telemetry.RunMetrics
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewRunner returns a Runner with fresh metrics and the default logger when logger is nil.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Config:  cfg,
		Metrics: telemetry.NewRunMetrics(),
		Logger:  logger,
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) metrics() *telemetry.RunMetrics {
	if r.Metrics == nil {
		r.Metrics = telemetry.NewRunMetrics()
	}
	return r.Metrics
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) tracker() *state.Tracker {
	return state.NewTracker(map[state.Channel]string{
		state.Daily: r.Config.State.Daily,
		state.Alert: r.Config.State.Alert,
	}, r.logger())
}

// finish records the run outcome and writes the metrics textfile. A textfile failure
// is logged only. A run that lost the lock leaves the textfile to the run holding it.
func (r *Runner) finish(run string, start time.Time, err error) {
	if errors.Is(err, lock.ErrContention) {
		r.logger().Debug("Metrics textfile left untouched", "run", run)
		return
	}
	m := r.metrics()
	m.ObserveRun(run, start, err)
	if werr := m.WriteTextfile(r.Config.MetricsTextfile); werr != nil {
		r.logger().Warn("Failed to write metrics textfile", "path", r.Config.MetricsTextfile, "error", werr)
	}
}
