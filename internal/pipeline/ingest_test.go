package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"euvdalert/internal/lock"
	"euvdalert/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngest_MergesAndEvicts(t *testing.T) {
	cfg := testConfig(t)
	writeStore(t, cfg,
		vuln("EUVD-1", daysAgo(10), 5, "Acme", ""),
		vuln("EUVD-2", daysAgo(5), 5, "Acme", ""),
		vuln("EUVD-OLD", daysAgo(200), 5, "Acme", ""),
	)
	writeJSON(t, cfg.State.Daily, []string{"EUVD-1", "EUVD-2", "EUVD-OLD"})

	f := &fakeFetcher{records: []record.Record{
		vuln("EUVD-1", daysAgo(1), 9.8, "Acme", ""),
		vuln("EUVD-3", daysAgo(1), 4, "Other", ""),
	}}
	r := newTestRunner(cfg, f, &fakeDeliverer{})

	res, err := r.Ingest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"EUVD-3"}, res.Added)
	assert.Equal(t, []string{"EUVD-1"}, res.Updated)
	assert.Equal(t, []string{"EUVD-OLD"}, res.Purged)

	store, err := record.ReadStore(cfg.VulnFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"EUVD-1", "EUVD-2", "EUVD-3"}, store.IDs())
	assert.Equal(t, "9.8", store["EUVD-1"].BaseScore.String())

	assert.Equal(t, []string{"EUVD-2"}, readIDs(t, cfg.State.Daily))
	assert.NoFileExists(t, cfg.State.Alert, "missing state files are not created")
}

func TestIngest_FetchFailureLeavesStateUntouched(t *testing.T) {
	cfg := testConfig(t)
	writeStore(t, cfg, vuln("EUVD-1", daysAgo(200), 5, "Acme", ""))
	writeJSON(t, cfg.State.Daily, []string{"EUVD-1"})

	before, err := os.ReadFile(cfg.VulnFile)
	require.NoError(t, err)

	r := newTestRunner(cfg, &fakeFetcher{err: errors.New("feed down")}, &fakeDeliverer{})
	_, err = r.Ingest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed down")

	after, err := os.ReadFile(cfg.VulnFile)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"EUVD-1"}, readIDs(t, cfg.State.Daily))
}

func TestIngest_LockContention(t *testing.T) {
	cfg := testConfig(t)
	g, err := lock.Acquire(cfg.LockFile)
	require.NoError(t, err)
	defer g.Release()

	f := &fakeFetcher{}
	r := newTestRunner(cfg, f, &fakeDeliverer{})
	_, err = r.Ingest(context.Background())

	assert.True(t, errors.Is(err, lock.ErrContention))
	assert.Zero(t, f.calls)
	assert.NoFileExists(t, cfg.VulnFile)
}

func TestIngest_CorruptStoreStartsEmpty(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.VulnFile, []byte("not json"), 0644))

	r := newTestRunner(cfg, &fakeFetcher{records: []record.Record{vuln("EUVD-9", daysAgo(1), 7, "Acme", "")}}, &fakeDeliverer{})
	res, err := r.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"EUVD-9"}, res.Added)

	store, err := record.ReadStore(cfg.VulnFile)
	require.NoError(t, err)
	assert.Len(t, store, 1)
}

func TestIngest_WritesMetricsTextfile(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsTextfile = cfg.VulnFile + ".prom"

	f := &fakeFetcher{records: []record.Record{
		vuln("EUVD-1", daysAgo(1), 5, "Acme", ""),
		vuln("EUVD-2", daysAgo(1), 5, "Acme", ""),
	}}
	r := newTestRunner(cfg, f, &fakeDeliverer{})
	_, err := r.Ingest(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "euvd_records_fetched_total 2")
	assert.Contains(t, string(data), `euvd_records_merged_total{outcome="added"} 2`)
	assert.Contains(t, string(data), "euvd_records_stored 2")
}

func TestIngest_LockContentionKeepsMetricsTextfile(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsTextfile = cfg.VulnFile + ".prom"

	f := &fakeFetcher{records: []record.Record{vuln("EUVD-1", daysAgo(1), 5, "Acme", "")}}
	_, err := newTestRunner(cfg, f, &fakeDeliverer{}).Ingest(context.Background())
	require.NoError(t, err)

	before, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	require.Contains(t, string(before), "euvd_run_last_success_timestamp_seconds")
	require.Contains(t, string(before), "euvd_records_stored 1")

	g, err := lock.Acquire(cfg.LockFile)
	require.NoError(t, err)
	defer g.Release()

	_, err = newTestRunner(cfg, f, &fakeDeliverer{}).Ingest(context.Background())
	require.True(t, errors.Is(err, lock.ErrContention))

	after, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}
