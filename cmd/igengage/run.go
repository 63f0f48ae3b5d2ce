package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"igengage/pkg/account"
	"igengage/pkg/auth"
	"igengage/pkg/automation"
	"igengage/pkg/instagram"
	"igengage/pkg/proxy"
	"igengage/pkg/stats"
	"igengage/pkg/target"
	"igengage/pkg/ui"
)

var (
	// Run command flags
	runLikePosts    bool
	runLikeStories  bool
	runReplyStories bool
	runSendDM       bool
	runAccounts     []string
	runTargets      []string
	runLikeCount    int
	runDMIfNoStory  bool
	runRandomize    bool
	runDailyLimit   int
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an engagement automation session",
	Long: `Run one automation session over the stored accounts and targets.

Enable at least one action kind. For every available account the driver
walks the target list and dispatches the enabled actions with randomized
human-like pauses, skipping accounts that are over quota, rate limited,
cooling down after errors or flagged unhealthy.`,
	Example: `  # Like 2 recent posts of every target with every account
  igengage run --like-posts

  # Stories-first session with a subset of accounts
  igengage run --like-stories --reply-stories --accounts alice,bob

  # DM targets without active stories
  igengage run --send-dm --dm-only-if-no-stories`,
	RunE: runAutomation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runLikePosts, "like-posts", false, "like recent posts of each target")
	runCmd.Flags().BoolVar(&runLikeStories, "like-stories", false, "like current stories of each target")
	runCmd.Flags().BoolVar(&runReplyStories, "reply-stories", false, "reply to current stories of each target")
	runCmd.Flags().BoolVar(&runSendDM, "send-dm", false, "send a direct message to each target")
	runCmd.Flags().StringSliceVar(&runAccounts, "accounts", nil, "accounts to drive (default: all stored)")
	runCmd.Flags().StringSliceVar(&runTargets, "targets", nil, "targets to process (default: stored target list)")
	runCmd.Flags().IntVar(&runLikeCount, "like-count", 2, "recent posts to like per target")
	runCmd.Flags().BoolVar(&runDMIfNoStory, "dm-only-if-no-stories", false, "only DM targets without active stories")
	runCmd.Flags().BoolVar(&runRandomize, "randomize", false, "shuffle account and target order")
	runCmd.Flags().IntVar(&runDailyLimit, "daily-limit", 0, "session cap per account, overriding stored daily limits")
}

func runAutomation(cmd *cobra.Command, args []string) error {
	actions := enabledActions()
	if len(actions) == 0 {
		return fmt.Errorf("no actions enabled: pass at least one of --like-posts, --like-stories, --reply-stories, --send-dm")
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("randomize") {
		cfg.Automation.RandomizeOrder = runRandomize
	}

	store := account.NewStore(cfg.Store.AccountsFile, log)
	if store.Len() == 0 {
		return fmt.Errorf("no accounts stored: add some with 'igengage accounts import'")
	}
	if vault, err := auth.NewVault(); err == nil {
		// Records stored with a blank password resolve it from the keychain
		store.SetPasswordSource(func(username string) (string, bool) {
			password, err := vault.Retrieve(username)
			return password, err == nil
		})
	}

	targets := runTargets
	if len(targets) == 0 {
		list := target.NewList(cfg.Store.TargetsFile, log)
		targets = list.Targets()
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets: add some with 'igengage targets import'")
	}

	actor := instagram.NewClient(&cfg.HTTP, log)
	if cfg.Store.ProxiesFile != "" {
		pool, rejected, err := proxy.LoadFile(cfg.Store.ProxiesFile)
		if err != nil {
			log.WithError(err).Warn("failed to load proxy pool")
		} else {
			if len(rejected) > 0 {
				log.WithField("rejected", len(rejected)).Warn("invalid proxies in pool file")
			}
			store.SetProxyPool(pool)
			actor.SetProxyPool(pool)
		}
	}
	driver := automation.NewDriver(store, actor, cfg, log)

	var statsStore *stats.Store
	if cfg.Stats.Enabled {
		statsStore, err = stats.Open(cfg.Stats.DataDir, log)
		if err != nil {
			log.WithError(err).Warn("statistics disabled for this run")
		} else {
			defer statsStore.Close()
			driver.SetActionSink(statsStore)
		}
	}

	plan := &automation.Plan{
		Accounts:          runAccounts,
		Targets:           targets,
		Actions:           actions,
		DMOnlyIfNoStories: runDMIfNoStory,
		LikeCount:         runLikeCount,
		DailyLimit:        runDailyLimit,
		StoryReplies:      cfg.Messages.StoryReplies,
		DirectMessages:    cfg.Messages.DirectMessages,
	}

	ui.PrintInfo("Accounts", fmt.Sprintf("%d stored", store.Len()))
	ui.PrintInfo("Targets", fmt.Sprintf("%d", len(targets)))
	ui.PrintInfo("Actions", describeActions(actions))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, runErr := driver.Run(ctx, plan)
	if summary != nil {
		if statsStore != nil {
			if err := statsStore.RecordSession(summary); err != nil {
				log.WithError(err).Warn("failed to record session")
			}
			for username, record := range store.All() {
				if err := statsStore.SyncAccount(username, string(record.Status), record.TotalActions); err != nil {
					log.WithError(err).Warn("failed to sync account statistics")
				}
			}
		}
		ui.PrintSummary(summary)
	}
	if runErr != nil {
		if ctx.Err() != nil {
			ui.PrintWarning("Run interrupted")
			return nil
		}
		return runErr
	}
	return nil
}

func enabledActions() []automation.Kind {
	var actions []automation.Kind
	if runLikePosts {
		actions = append(actions, automation.KindLikePosts)
	}
	if runLikeStories {
		actions = append(actions, automation.KindLikeStories)
	}
	if runReplyStories {
		actions = append(actions, automation.KindReplyStory)
	}
	if runSendDM {
		actions = append(actions, automation.KindDirectMessage)
	}
	return actions
}

func describeActions(actions []automation.Kind) string {
	names := make([]string, len(actions))
	for i, kind := range actions {
		names[i] = string(kind)
	}
	return strings.Join(names, ", ")
}
