package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igengage/pkg/target"
	"igengage/pkg/ui"
)

// targetsCmd groups target list management subcommands
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage the engagement target list",
}

var targetsAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a single target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		list := target.NewList(cfg.Store.TargetsFile, log)
		if err := list.Add(args[0]); err != nil {
			return err
		}

		ui.PrintSuccess(fmt.Sprintf("Added target %s", args[0]))
		return nil
	},
}

var targetsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import targets from a file, one username per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		list := target.NewList(cfg.Store.TargetsFile, log)
		added, err := list.ImportFile(args[0])
		if err != nil {
			return err
		}

		ui.PrintSuccess(fmt.Sprintf("Imported %d new target(s), %d total", added, list.Len()))
		return nil
	},
}

var targetsRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		list := target.NewList(cfg.Store.TargetsFile, log)
		if err := list.Remove(args[0]); err != nil {
			return err
		}

		ui.PrintSuccess(fmt.Sprintf("Removed target %s", args[0]))
		return nil
	},
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		list := target.NewList(cfg.Store.TargetsFile, log)
		targets := list.Targets()
		if len(targets) == 0 {
			ui.PrintWarning("No targets stored")
			return nil
		}
		for _, name := range targets {
			fmt.Fprintln(os.Stdout, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
	targetsCmd.AddCommand(targetsAddCmd)
	targetsCmd.AddCommand(targetsImportCmd)
	targetsCmd.AddCommand(targetsRemoveCmd)
	targetsCmd.AddCommand(targetsListCmd)
}
