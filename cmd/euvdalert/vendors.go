package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"euvdalert/internal/record"
	"euvdalert/internal/report"
	"euvdalert/internal/severity"
	"euvdalert/internal/ui"

	"github.com/spf13/cobra"
)

// vendorRow is the per-vendor line of the vendors listing.
type vendorRow struct {
	records int
	worst   severity.Level
}

func initVendorsCmd(rootCmd *cobra.Command) {
	vendorsCmd := &cobra.Command{
		Use:   "vendors",
		Short: "List the vendors present in the record store",
		Long: `Lists every vendor named in the record store, sorted, with its record count and
the highest severity among them, to help writing keyword rules.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := record.LoadStore(cfg.VulnFile, logger)
			vendors := report.UniqueVendors(store)

			stats := make(map[string]*vendorRow, len(vendors))
			for _, v := range vendors {
				stats[v] = &vendorRow{worst: severity.Unknown}
			}
			for _, r := range store {
				level := r.BaseScore.Severity()
				for _, name := range r.VendorNames() {
					row, ok := stats[strings.TrimSpace(name)]
					if !ok {
						continue
					}
					row.records++
					if slices.Index(severity.Levels, level) < slices.Index(severity.Levels, row.worst) {
						row.worst = level
					}
				}
			}

			rows := make([][]string, 0, len(vendors))
			for _, v := range vendors {
				row := stats[v]
				rows = append(rows, []string{
					ui.ValueStyle.Render(v),
					strconv.Itoa(row.records),
					ui.SeverityStyle(row.worst).Render(row.worst.Icon() + " " + row.worst.String()),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.TitleStyle.Render("Vendors in "+cfg.VulnFile))
			fmt.Fprint(out, ui.Table([]string{"VENDOR", "RECORDS", "HIGHEST"}, rows))
			fmt.Fprintln(out, ui.MutedStyle.Render(fmt.Sprintf("%d vendors, %d records", len(vendors), len(store))))
			return nil
		},
	}
	rootCmd.AddCommand(vendorsCmd)
}
