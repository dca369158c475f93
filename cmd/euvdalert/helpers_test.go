package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"euvdalert/internal/notify"
	"euvdalert/internal/record"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// executeCommand executes a cobra command and returns its output.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	resetFlags(root)
	oldExit := exit
	exit = func(code int) {
		if code != 0 {
			panic(fmt.Sprintf("exit-%d", code))
		}
	}
	defer func() { exit = oldExit }()
	defer func() {
		if r := recover(); r != nil {
			if s, ok := r.(string); ok && strings.HasPrefix(s, "exit-") {
				return
			}
			panic(r)
		}
	}()
	root.SetArgs(args)
	b := new(bytes.Buffer)
	root.SetOut(b)
	root.SetErr(b)
	err := root.Execute()
	return b.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

type testEnv struct {
	dir        string
	configPath string
	vulnFile   string
	keywords   string
	lockFile   string
	daily      string
	alert      string
	ledgerDSN  string
}

// newTestEnv writes a config file pointing every path into a temp directory.
func newTestEnv(t *testing.T, withLedger bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	e := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		vulnFile:   filepath.Join(dir, "euvd.json"),
		keywords:   filepath.Join(dir, "keywords.json"),
		lockFile:   filepath.Join(dir, "euvd.lock"),
		daily:      filepath.Join(dir, "sent_ids_daily.json"),
		alert:      filepath.Join(dir, "sent_ids_alert.json"),
	}
	if withLedger {
		e.ledgerDSN = filepath.Join(dir, "ledger.db")
	}

	yaml := fmt.Sprintf(`vuln_file: %q
keywords_file: %q
lock_file: %q
timezone: UTC
state:
  daily: %q
  alert: %q
ledger:
  type: sqlite
  dsn: %q
`, e.vulnFile, e.keywords, e.lockFile, e.daily, e.alert, e.ledgerDSN)
	if err := os.WriteFile(e.configPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return e
}

func (e *testEnv) run(args ...string) (string, error) {
	return executeCommand(rootCmd, append(args, "--config", e.configPath)...)
}

func vuln(id string, score float64, vendor string) record.Record {
	return record.Record{
		ID:          id,
		Description: "Issue in " + id,
		DateUpdated: record.FormatTimestamp(time.Now().UTC().Add(-24 * time.Hour)),
		BaseScore:   record.ScoreOf(score),
		Vendors:     []record.VendorRef{{Vendor: record.Named{Name: vendor}}},
	}
}

type fakeFetcher struct {
	records []record.Record
	err     error
}

func (f *fakeFetcher) Fetch(context.Context, time.Time, time.Time) ([]record.Record, error) {
	return f.records, f.err
}

type fakeDeliverer struct {
	mu     sync.Mutex
	dryRun bool
	msgs   []notify.Message
	err    error
}

func (f *fakeDeliverer) Deliver(_ context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}
