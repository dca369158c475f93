package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"euvdalert/internal/config"
	"euvdalert/internal/feed"
	"euvdalert/internal/pipeline"

	"github.com/spf13/cobra"
)

// fetcherFactory builds the feed client. Tests replace it.
var fetcherFactory = func(c *config.Config, l *slog.Logger) pipeline.Fetcher {
	return feed.NewClient(feed.Options{
		URL:          c.Feed.URL,
		PageSize:     c.Feed.PageSize,
		MaxRetries:   c.Feed.MaxRetries,
		Timeout:      c.Feed.Timeout,
		DeriveScores: c.Feed.DeriveScores,
		Logger:       l,
	})
}

func initFetchCmd(rootCmd *cobra.Command) {
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the feed window and update the local record store",
		Long: `Fetches the records updated during the last feed.window_days days, merges them
into the record store, purges records older than retention_days and makes changed
records eligible for notification again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := pipeline.NewRunner(cfg, logger)
			r.Fetcher = fetcherFactory(cfg, logger)

			res, err := r.Ingest(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d, updated %d, purged %d, stored %d\n",
				len(res.Added), len(res.Updated), len(res.Purged), len(res.Store))
			return nil
		},
	}
	rootCmd.AddCommand(fetchCmd)
}
