package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"euvdalert/internal/keyword"
	"euvdalert/internal/ledger"
	"euvdalert/internal/lock"
	"euvdalert/internal/notify"
	"euvdalert/internal/record"
	"euvdalert/internal/report"
	"euvdalert/internal/state"
)

// NotifyOptions selects the channels of a notification run.
type NotifyOptions struct {
	Daily   bool
	Alert   bool
	Monthly bool
	// DryRun delivers without persisting any notification state.
	DryRun bool
}

// Channels returns the selected channels in run order. With none selected the run
// sends alerts only.
func (o NotifyOptions) Channels() []state.Channel {
	var out []state.Channel
	if o.Daily {
		out = append(out, state.Daily)
	}
	if o.Alert {
		out = append(out, state.Alert)
	}
	if o.Monthly {
		out = append(out, state.Monthly)
	}
	if len(out) == 0 {
		out = []state.Channel{state.Alert}
	}
	return out
}

// notifyRun is the context shared by the channels of one notification run.
type notifyRun struct {
	*Runner
	opts    NotifyOptions
	records []record.Record
	rules   *keyword.RuleSet
	tracker *state.Tracker
	builder *report.Builder
}

// Notify filters the record store with the keyword rules and delivers the selected
// channels. Each channel runs even when an earlier one failed; the failures are
// returned together.
func (r *Runner) Notify(ctx context.Context, opts NotifyOptions) (err error) {
	start := time.Now()
	defer func() { r.finish("notify", start, err) }()

	cfg := r.Config
	log := r.logger()

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return lock.With(cfg.LockFile, func() error {
		store := record.LoadStore(cfg.VulnFile, log)

		raw, err := keyword.LoadRules(cfg.KeywordsFile, log)
		if err != nil {
			log.Warn("Failed to load keywords", "path", cfg.KeywordsFile, "error", err)
		}
		rules := keyword.Compile(raw, log)

		if len(store) == 0 || rules.Empty() {
			log.Info("Nothing to process", "records", len(store), "rules", len(raw))
			return nil
		}

		run := &notifyRun{
			Runner:  r,
			opts:    opts,
			records: store.Records(),
			rules:   rules,
			tracker: r.tracker(),
			builder: &report.Builder{RecordURL: cfg.Notify.RecordURL, Location: loc, Now: r.Now},
		}

		var errs []error
		for _, c := range opts.Channels() {
			if ctx.Err() != nil {
				errs = append(errs, ctx.Err())
				break
			}
			var err error
			switch c {
			case state.Daily:
				err = run.daily(ctx)
			case state.Alert:
				err = run.alert(ctx)
			case state.Monthly:
				err = run.monthly(ctx)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c, err))
			}
		}
		return errors.Join(errs...)
	})
}

func (n *notifyRun) daily(ctx context.Context) error {
	matched := n.rules.Filter(n.records, nil)
	sent := n.tracker.Load(state.Daily)
	fresh := state.Unsent(matched, sent)
	n.metrics().RecordsMatched.WithLabelValues(string(state.Daily)).Add(float64(len(fresh)))

	if len(fresh) == 0 {
		if !n.Config.NoVuln {
			n.logger().Info("No new vulnerabilities", "channel", state.Daily, "matched", len(matched))
			return nil
		}
		return n.deliver(ctx, state.Daily, n.builder.NoVuln(n.rules.VendorLine()), nil, false)
	}

	rep := n.scored(ctx, fresh).Daily(fresh, n.rules.VendorLine())
	return n.deliverAndMark(ctx, state.Daily, rep, fresh, sent, false)
}

func (n *notifyRun) alert(ctx context.Context) error {
	threshold := n.Config.AlertThreshold
	matched := n.rules.Filter(n.records, &threshold)
	sent := n.tracker.Load(state.Alert)
	fresh := state.Unsent(matched, sent)
	n.metrics().RecordsMatched.WithLabelValues(string(state.Alert)).Add(float64(len(fresh)))

	if len(fresh) == 0 {
		n.logger().Info("No new vulnerabilities above threshold", "channel", state.Alert, "threshold", threshold)
		return nil
	}

	rep := n.scored(ctx, fresh).Alert(fresh, n.rules.VendorLine(), threshold)
	return n.deliverAndMark(ctx, state.Alert, rep, fresh, sent, true)
}

func (n *notifyRun) monthly(ctx context.Context) error {
	start, end := report.LastMonth(n.now().In(n.builder.Location))
	records := report.UpdatedBetween(n.rules.Filter(n.records, nil), start, end)
	n.metrics().RecordsMatched.WithLabelValues(string(state.Monthly)).Add(float64(len(records)))
	n.logger().Info("Monthly window", "from", start.Format(time.DateOnly), "to", end.Format(time.DateOnly), "records", len(records))

	rep := n.builder.Monthly(records, n.rules.Vendors(), start)
	return n.deliver(ctx, state.Monthly, rep, records, false)
}

// scored returns the report builder carrying the EPSS probabilities of the records'
// CVEs. Without a Scorer, or when the lookup fails, entries show the feed's data only.
func (n *notifyRun) scored(ctx context.Context, records []record.Record) *report.Builder {
	if n.Scorer == nil {
		return n.builder
	}
	var cves []string
	for _, rec := range records {
		if cve := rec.CVE(); cve != "" {
			cves = append(cves, cve)
		}
	}
	if len(cves) == 0 {
		return n.builder
	}

	scores, err := n.Scorer.Lookup(ctx, cves)
	if err != nil {
		n.logger().Warn("EPSS lookup failed", "cves", len(cves), "error", err)
		return n.builder
	}
	b := *n.builder
	b.EPSS = scores
	return &b
}

// deliverAndMark delivers the records and, unless this is a dry run, adds their ids
// to the channel state.
func (n *notifyRun) deliverAndMark(ctx context.Context, c state.Channel, rep report.Report, records []record.Record, sent state.IDSet, high bool) error {
	if err := n.deliver(ctx, c, rep, records, high); err != nil {
		return err
	}
	if n.opts.DryRun {
		n.logger().Info("Dry run, notification state not updated", "channel", c, "records", len(records))
		return nil
	}

	updated := sent.Clone()
	for _, rec := range records {
		updated.Add(rec.ID)
	}
	return n.tracker.Save(c, updated)
}

func (n *notifyRun) deliver(ctx context.Context, c state.Channel, rep report.Report, records []record.Record, high bool) error {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}

	msg := notify.Message{
		Channel:      string(c),
		Title:        rep.Title,
		Body:         rep.Body,
		HighPriority: high,
		RecordIDs:    ids,
	}
	if err := n.Deliverer.Deliver(ctx, msg); err != nil {
		n.metrics().DeliveryFailures.WithLabelValues(string(c)).Inc()
		return fmt.Errorf("delivery failed: %w", err)
	}
	n.metrics().RecordsDelivered.WithLabelValues(string(c)).Add(float64(len(ids)))
	n.logger().Info("Notification delivered", "channel", c, "records", len(ids), "dry_run", n.opts.DryRun)

	n.recordDelivery(ctx, ledger.Delivery{
		Channel:   string(c),
		Title:     rep.Title,
		RecordIDs: ids,
		Count:     len(ids),
		DryRun:    n.opts.DryRun,
		SentAt:    n.now(),
	})
	return nil
}

func (n *notifyRun) recordDelivery(ctx context.Context, d ledger.Delivery) {
	if n.Ledger == nil {
		return
	}
	if err := n.Ledger.Record(ctx, d); err != nil {
		n.logger().Warn("Failed to record delivery in ledger", "channel", d.Channel, "error", err)
	}
}
