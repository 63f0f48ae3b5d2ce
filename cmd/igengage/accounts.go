package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"igengage/pkg/account"
	"igengage/pkg/auth"
	"igengage/pkg/proxy"
	"igengage/pkg/ui"
)

// accountsCmd groups account pool management subcommands
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage the acting account pool",
}

var accountsAddProxy string

var accountsAddCmd = &cobra.Command{
	Use:   "add <username> <password>",
	Short: "Add a single account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		store := account.NewStore(cfg.Store.AccountsFile, log)
		store.SetDefaultDailyLimit(cfg.Limits.DailyActionLimit)
		if err := store.Add(args[0], args[1], accountsAddProxy); err != nil {
			return err
		}

		// Mirror the password into the system keychain when one is available
		if vault, err := auth.NewVault(); err == nil {
			if err := vault.Store(args[0], args[1]); err != nil {
				log.WithError(err).Warn("failed to store password in keychain")
			}
		}

		ui.PrintSuccess(fmt.Sprintf("Added account %s", args[0]))
		return nil
	},
}

var accountsImportProxies string

var accountsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import accounts from a username:password[:proxy] file",
	Long: `Import accounts from a text file with one account per line in the form

    username:password
    username:password:proxy

Blank lines and lines starting with # are ignored. Lines with an invalid
username are skipped; an invalid proxy drops the proxy but keeps the account.

With --proxies, accounts that carry no proxy of their own are assigned one
from the given pool file in round-robin order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		store := account.NewStore(cfg.Store.AccountsFile, log)
		store.SetDefaultDailyLimit(cfg.Limits.DailyActionLimit)

		poolFile := accountsImportProxies
		if poolFile == "" {
			poolFile = cfg.Store.ProxiesFile
		}
		if poolFile != "" {
			pool, rejected, err := proxy.LoadFile(poolFile)
			if err != nil {
				return err
			}
			if len(rejected) > 0 {
				ui.PrintWarning(fmt.Sprintf("Skipped %d invalid proxies in %s", len(rejected), poolFile))
			}
			store.SetProxyPool(pool)
		}

		result, err := store.ImportFile(args[0])
		if err != nil {
			return err
		}

		ui.PrintSuccess(fmt.Sprintf("Imported %d account(s), skipped %d line(s)", result.Added, result.Skipped))
		return nil
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		store := account.NewStore(cfg.Store.AccountsFile, log)
		removed, err := store.Remove(args[0])
		if err != nil {
			return err
		}
		if !removed {
			ui.PrintWarning(fmt.Sprintf("Account %s not found", args[0]))
			return nil
		}

		if vault, err := auth.NewVault(); err == nil {
			_ = vault.Delete(args[0])
		}

		ui.PrintSuccess(fmt.Sprintf("Removed account %s", args[0]))
		return nil
	},
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts with their availability state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		store := account.NewStore(cfg.Store.AccountsFile, log)
		if store.Len() == 0 {
			ui.PrintWarning("No accounts stored")
			return nil
		}

		vault, _ := auth.NewVault()

		now := time.Now()
		fmt.Fprintf(os.Stdout, "%-32s %-12s %-10s %-9s %s\n", "USERNAME", "STATUS", "TODAY", "KEYCHAIN", "AVAILABILITY")
		for _, username := range store.Usernames() {
			record, ok := store.Get(username)
			if !ok {
				continue
			}
			availability := "available"
			if reason := account.UnavailableReason(record, now, cfg.Limits.CooldownAfterError); reason != "" {
				availability = "blocked: " + reason
			}
			keychain := "-"
			if vault != nil && vault.Exists(username) {
				keychain = "yes"
			}
			fmt.Fprintf(os.Stdout, "%-32s %-12s %3d/%-6d %-9s %s\n",
				record.Username, record.Status, record.ActionsCount, record.DailyLimit, keychain, availability)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsAddCmd.Flags().StringVar(&accountsAddProxy, "proxy", "", "proxy for this account (host:port or host:port:user:pass)")
	accountsImportCmd.Flags().StringVar(&accountsImportProxies, "proxies", "", "proxy pool file for accounts imported without one")
	accountsCmd.AddCommand(accountsAddCmd)
	accountsCmd.AddCommand(accountsImportCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
	accountsCmd.AddCommand(accountsListCmd)
}
