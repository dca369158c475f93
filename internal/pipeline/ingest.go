package pipeline

import (
	"context"
	"fmt"
	"time"

	"euvdalert/internal/feed"
	"euvdalert/internal/lock"
	"euvdalert/internal/merge"
	"euvdalert/internal/record"
)

// Ingest fetches the feed window, reconciles it into the record store, evicts the
// changed and purged ids from every channel state and saves the store.
// A fetch failure aborts before anything is written.
func (r *Runner) Ingest(ctx context.Context) (res merge.Result, err error) {
	start := time.Now()
	defer func() { r.finish("ingest", start, err) }()

	cfg := r.Config
	log := r.logger()
	m := r.metrics()

	err = lock.With(cfg.LockFile, func() error {
		existing := record.LoadStore(cfg.VulnFile, log)

		from, to := feed.Window(r.now(), cfg.Feed.WindowDays)
		incoming, err := r.Fetcher.Fetch(ctx, from, to)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		m.RecordsFetched.Add(float64(len(incoming)))

		engine := &merge.Engine{Logger: log, Now: r.Now}
		res = engine.Reconcile(existing, incoming, cfg.RetentionDays)
		m.RecordsMerged.WithLabelValues("added").Add(float64(len(res.Added)))
		m.RecordsMerged.WithLabelValues("updated").Add(float64(len(res.Updated)))
		m.RecordsMerged.WithLabelValues("purged").Add(float64(len(res.Purged)))
		m.RecordsMerged.WithLabelValues("discarded").Add(float64(len(res.Discarded)))

		// State goes first: if the store write fails the same ids are evicted again next run.
		evicted, err := r.tracker().EvictAll(res.Stale())
		for c, n := range evicted {
			m.IDsEvicted.WithLabelValues(string(c)).Add(float64(n))
		}
		if err != nil {
			return fmt.Errorf("failed to evict notification state: %w", err)
		}

		if err := record.SaveStore(cfg.VulnFile, res.Store); err != nil {
			return fmt.Errorf("failed to save record store: %w", err)
		}
		m.RecordsStored.Set(float64(len(res.Store)))

		log.Info("Ingestion complete",
			"fetched", len(incoming),
			"added", len(res.Added),
			"updated", len(res.Updated),
			"purged", len(res.Purged),
			"discarded", len(res.Discarded),
			"stored", len(res.Store),
		)
		return nil
	})
	return res, err
}
