package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igengage/pkg/stats"
	"igengage/pkg/ui"
)

var (
	// Stats command flags
	statsJSON    bool
	statsCSV     bool
	statsAccount string
	statsDays    int
)

// statsCmd reports on the recorded action history
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show engagement statistics",
	Long: `Show aggregated statistics over the recorded action history: overall
totals, per-account and per-action breakdowns, and a recent daily timeline.

Use --json or --csv to export the report instead of printing it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Stats.Enabled {
			return fmt.Errorf("statistics are disabled in the configuration")
		}

		store, err := stats.Open(cfg.Stats.DataDir, log)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		if statsAccount != "" && !statsJSON && !statsCSV {
			rows, err := store.ByAccount(ctx, statsAccount)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				ui.PrintWarning(fmt.Sprintf("No recorded actions for %s", statsAccount))
				return nil
			}
			for _, row := range rows {
				ui.PrintInfo(row.Account, fmt.Sprintf("%d actions, %d successful (%.1f%%)",
					row.Total, row.Successful, row.Rate*100))
			}
			return nil
		}

		report, err := store.BuildReport(ctx, statsDays)
		if err != nil {
			return err
		}

		switch {
		case statsJSON:
			return report.ExportJSON(os.Stdout)
		case statsCSV:
			return report.ExportCSV(os.Stdout)
		}

		ui.PrintInfo("Total actions", fmt.Sprintf("%d", report.Overall.TotalActions))
		ui.PrintInfo("Successful", fmt.Sprintf("%d (%.1f%%)",
			report.Overall.SuccessfulActions, report.Overall.SuccessRate*100))
		ui.PrintInfo("Accounts seen", fmt.Sprintf("%d", report.Overall.AccountsSeen))
		ui.PrintInfo("Targets seen", fmt.Sprintf("%d", report.Overall.TargetsSeen))

		if len(report.ByKind) > 0 {
			fmt.Println()
			for _, row := range report.ByKind {
				ui.PrintInfo(row.ActionType, fmt.Sprintf("%d/%d", row.Successful, row.Total))
			}
		}

		if len(report.ByDay) > 0 {
			fmt.Println()
			for _, day := range report.ByDay {
				ui.PrintInfo(day.Day, fmt.Sprintf("%d actions, %d successful", day.Total, day.Successful))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "export the full report as JSON")
	statsCmd.Flags().BoolVar(&statsCSV, "csv", false, "export the per-account breakdown as CSV")
	statsCmd.Flags().StringVarP(&statsAccount, "account", "a", "", "show one account only")
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "days of daily breakdown to include")
}
