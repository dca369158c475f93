package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"euvdalert/internal/config"
	"euvdalert/internal/notify"
	"euvdalert/internal/record"
	"euvdalert/internal/telemetry"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	records []record.Record
	err     error
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, _, _ time.Time) ([]record.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeDeliverer struct {
	mu   sync.Mutex
	msgs []notify.Message
	errs map[string]error
}

func (f *fakeDeliverer) Deliver(_ context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[msg.Channel]; err != nil {
		return err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		VulnFile:       filepath.Join(dir, "euvd_data.json"),
		KeywordsFile:   filepath.Join(dir, "keywords.json"),
		LockFile:       filepath.Join(dir, "euvd.lock"),
		RetentionDays:  90,
		AlertThreshold: 8.0,
		Timezone:       "UTC",
		State: config.StateConfig{
			Daily: filepath.Join(dir, "sent_ids_daily.json"),
			Alert: filepath.Join(dir, "sent_ids_alert.json"),
		},
		Feed:   config.FeedConfig{WindowDays: 3},
		Notify: config.NotifyConfig{RecordURL: "https://euvd.example/vulnerability/"},
	}
}

func newTestRunner(cfg *config.Config, f *fakeFetcher, d *fakeDeliverer) *Runner {
	return &Runner{
		Config:    cfg,
		Fetcher:   f,
		Deliverer: d,
		Metrics:   telemetry.NewRunMetrics(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       func() time.Time { return now },
	}
}

func vuln(id string, updated time.Time, score float64, vendor, product string) record.Record {
	r := record.Record{
		ID:          id,
		Description: "Issue in " + id,
		DateUpdated: record.FormatTimestamp(updated),
		BaseScore:   record.ScoreOf(score),
	}
	if vendor != "" {
		r.Vendors = []record.VendorRef{{Vendor: record.Named{Name: vendor}}}
	}
	if product != "" {
		r.Products = []record.ProductRef{{Product: record.Named{Name: product}}}
	}
	return r
}

func daysAgo(d int) time.Time {
	return now.AddDate(0, 0, -d)
}

func writeStore(t *testing.T, cfg *config.Config, records ...record.Record) {
	t.Helper()
	require.NoError(t, record.SaveStore(cfg.VulnFile, record.NewStore(records)))
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func readIDs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal(data, &ids))
	return ids
}
