package main

import (
	"errors"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"euvdalert/internal/config"
	"euvdalert/internal/epss"
	"euvdalert/internal/ledger"
	"euvdalert/internal/notify"
	"euvdalert/internal/pipeline"

	"github.com/spf13/cobra"
)

// delivererFactory builds the notification fan-out. Tests replace it.
var delivererFactory = func(c *config.Config, dryRun bool, out io.Writer, l *slog.Logger) pipeline.Deliverer {
	m := notify.NewManager(c.Notify, dryRun, l)
	m.SetConsole(&notify.ConsoleNotifier{Out: out, Style: "auto"})
	return m
}

// scorerFactory builds the EPSS client used when first_epss is set. Tests replace it.
var scorerFactory = func(c *config.Config, l *slog.Logger) pipeline.Scorer {
	return epss.NewClient(epss.Options{
		URL:        c.EPSS.URL,
		MaxRetries: c.EPSS.MaxRetries,
		Timeout:    c.EPSS.Timeout,
		Logger:     l,
	})
}

// openLedger opens the delivery ledger. A disabled ledger yields nil; an unreachable
// one is logged and skipped.
func openLedger(c *config.Config, l *slog.Logger) ledger.Store {
	store, err := ledger.New(c.Ledger)
	if err != nil {
		if !errors.Is(err, ledger.ErrDisabled) {
			l.Warn("Delivery ledger unavailable", "type", c.Ledger.Type, "error", err)
		}
		return nil
	}
	return store
}

func initNotifyCmd(rootCmd *cobra.Command) {
	var opts pipeline.NotifyOptions

	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Send the reports for new matching vulnerabilities",
		Long: `Filters the record store with the keyword rules and sends the selected reports.
Without a channel flag only the urgent alert is sent. Records are remembered per
channel once delivered, so a report never repeats a record unless it was updated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := pipeline.NewRunner(cfg, logger)
			r.Deliverer = delivererFactory(cfg, opts.DryRun, cmd.OutOrStdout(), logger)
			if cfg.FirstEPSS {
				r.Scorer = scorerFactory(cfg, logger)
			}
			if store := openLedger(cfg, logger); store != nil {
				defer store.Close()
				r.Ledger = store
			}
			return r.Notify(ctx, opts)
		},
	}

	notifyCmd.Flags().BoolVarP(&opts.Daily, "daily", "D", false, "Send the daily digest")
	notifyCmd.Flags().BoolVarP(&opts.Alert, "alert", "A", false, "Send the urgent alert (default)")
	notifyCmd.Flags().BoolVarP(&opts.Monthly, "monthly", "M", false, "Send last month's summary")
	notifyCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Render the reports to the terminal without sending or saving state")

	rootCmd.AddCommand(notifyCmd)
}
