package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"igengage/pkg/config"
	"igengage/pkg/logger"
	"igengage/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile   string
	logLevel     string
	quiet        bool
	accountsFile string
	targetsFile  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igengage",
	Short: "Multi-account Instagram engagement automation",
	Long: `igengage drives engagement actions (post likes, story likes, story
replies, direct messages) across a pool of Instagram accounts while keeping
every account inside its daily and hourly action budgets.

Each account carries its own availability state: quota counters, an error
breaker, rate-limit penalties and health status. The dispatch loop consults
that state before every action and backs off automatically when Instagram
pushes back.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.Quiet = true
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .igengage.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().StringVar(&accountsFile, "accounts-file", "", "path to the accounts store (default is accounts.json)")
	rootCmd.PersistentFlags().StringVar(&targetsFile, "targets-file", "", "path to the targets list (default is targets.json)")

	rootCmd.SetVersionTemplate(`igengage {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration and initializes the global logger
func loadConfig() (*config.Config, logger.Logger, error) {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if accountsFile != "" {
		flags["accounts-file"] = accountsFile
	}
	if targetsFile != "" {
		flags["targets-file"] = targetsFile
	}

	cfg, warnings, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	for _, warning := range warnings {
		log.Warn(warning)
	}

	return cfg, log, nil
}
