package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"igengage/pkg/account"
	"igengage/pkg/ui"
)

// resetCmd zeroes daily quotas and releases error-breaker trips
var resetCmd = &cobra.Command{
	Use:   "reset-daily",
	Short: "Reset daily action quotas for all accounts",
	Long: `Reset the daily action counter of every account and reactivate
accounts parked by the error breaker. Banned, suspended and shadowbanned
accounts stay blocked.

The run command performs this reset automatically when a new day starts;
use this to force it, for example after moving the store between machines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		store := account.NewStore(cfg.Store.AccountsFile, log)
		if err := store.ResetDailyQuotas(); err != nil {
			return err
		}

		ui.PrintSuccess(fmt.Sprintf("Reset daily quotas for %d account(s)", store.Len()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
