package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"euvdalert/internal/ledger"
	"euvdalert/internal/state"
	"euvdalert/internal/ui"
	"euvdalert/internal/utils"

	"github.com/spf13/cobra"
)

func initHistoryCmd(rootCmd *cobra.Command) {
	var (
		limit   int
		channel string
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show the latest deliveries recorded in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var only state.Channel
			if channel != "" {
				c, err := state.ParseChannel(channel)
				if err != nil {
					return err
				}
				only = c
			}

			store, err := ledger.New(cfg.Ledger)
			if errors.Is(err, ledger.ErrDisabled) {
				cmd.Println("The delivery ledger is disabled; set ledger.dsn to enable it.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to open ledger: %w", err)
			}
			defer store.Close()

			var deliveries []ledger.Delivery
			if only != "" {
				deliveries, err = store.RecentForChannel(cmd.Context(), string(only), limit)
			} else {
				deliveries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return fmt.Errorf("failed to read ledger: %w", err)
			}
			if len(deliveries) == 0 {
				cmd.Println("No deliveries recorded.")
				return nil
			}

			now := time.Now()
			rows := make([][]string, 0, len(deliveries))
			for _, d := range deliveries {
				mode := ""
				if d.DryRun {
					mode = ui.WarnStyle.Render("dry-run")
				}
				rows = append(rows, []string{
					d.SentAt.Local().Format("2006-01-02 15:04"),
					utils.FormatAge(d.SentAt, now),
					d.Channel,
					strconv.Itoa(d.Count),
					mode,
					utils.Truncate(d.Title, 60),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.Table([]string{"SENT", "AGE", "CHANNEL", "RECORDS", "MODE", "TITLE"}, rows))
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of deliveries to show")
	historyCmd.Flags().StringVarP(&channel, "channel", "c", "", "Only show deliveries of this channel (daily, alert or monthly)")

	rootCmd.AddCommand(historyCmd)
}
