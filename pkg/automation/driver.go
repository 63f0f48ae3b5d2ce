package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"igengage/pkg/account"
	"igengage/pkg/config"
	errs "igengage/pkg/errors"
	"igengage/pkg/logger"
	"igengage/pkg/ratelimit"
	"igengage/pkg/retry"
)

// KindCount tallies attempts for one action kind
type KindCount struct {
	Total      int
	Successful int
}

// Summary aggregates one automation run
type Summary struct {
	StartedAt       time.Time
	FinishedAt      time.Time
	Total           int
	Successful      int
	SkippedAccounts int
	PerKind         map[Kind]*KindCount
}

// SuccessRate returns the percentage of successful actions
func (s *Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Total) * 100
}

func (s *Summary) count(kind Kind, success bool) {
	s.Total++
	kc := s.PerKind[kind]
	if kc == nil {
		kc = &KindCount{}
		s.PerKind[kind] = kc
	}
	kc.Total++
	if success {
		s.Successful++
		kc.Successful++
	}
}

// Driver iterates accounts, targets and action kinds, consulting the
// availability gate before each unit of work and feeding results back to
// the activity recorder. Accounts are driven sequentially; one run is
// active at a time.
type Driver struct {
	store  *account.Store
	actor  Actor
	cfg    *config.Config
	logger logger.Logger
	sink   ActionSink
	rnd    *rand.Rand

	// per-account hourly action windows, lazily created
	hourly map[string]*ratelimit.SlidingWindow
}

// NewDriver creates a dispatch driver
func NewDriver(store *account.Store, actor Actor, cfg *config.Config, log logger.Logger) *Driver {
	if log == nil {
		log = logger.GetLogger()
	}
	store.SetErrorPolicy(cfg.Limits.MaxErrorsPerAccount, cfg.Safety.AutoPauseOnErrors)
	return &Driver{
		store:  store,
		actor:  actor,
		cfg:    cfg,
		logger: log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		hourly: make(map[string]*ratelimit.SlidingWindow),
	}
}

// SetActionSink attaches a statistics sink; every attempted action is
// reported to it
func (d *Driver) SetActionSink(sink ActionSink) {
	d.sink = sink
}

// SetRand overrides the randomness source (deterministic tests)
func (d *Driver) SetRand(rnd *rand.Rand) {
	d.rnd = rnd
}

// Run executes the plan. It returns a summary together with ctx.Err() when
// the run was canceled; action failures never surface as errors, they are
// recorded against the account and counted in the summary.
func (d *Driver) Run(ctx context.Context, plan *Plan) (*Summary, error) {
	summary := &Summary{
		StartedAt: time.Now(),
		PerKind:   make(map[Kind]*KindCount),
	}
	defer func() { summary.FinishedAt = time.Now() }()

	// Catch up on a missed day boundary so yesterday's quota does not wedge
	// every account out of today's run.
	if d.store.NeedsDailyReset(time.Now()) {
		d.logger.Info("day boundary passed, resetting daily quotas")
		if err := d.store.ResetDailyQuotas(); err != nil {
			d.logger.WithError(err).Warn("failed to persist daily reset")
		}
	}

	accounts := plan.Accounts
	if len(accounts) == 0 {
		accounts = d.store.Usernames()
	}
	targets := plan.Targets

	if d.cfg.Automation.RandomizeOrder {
		accounts = shuffled(accounts, d.rnd)
		targets = shuffled(targets, d.rnd)
	}

	d.logger.InfoWithFields("starting automation run", map[string]interface{}{
		"accounts": len(accounts),
		"targets":  len(targets),
		"actions":  len(plan.Actions),
	})

	for i, username := range accounts {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		record, ok := d.store.Get(username)
		if !ok {
			d.logger.WithField("username", username).Warn("account not in store, skipping")
			summary.SkippedAccounts++
			continue
		}
		applyLimitOverride(record, plan)

		if reason := account.UnavailableReason(record, time.Now(), d.cfg.Limits.CooldownAfterError); reason != "" {
			d.logger.WarnWithFields("account unavailable, skipping", map[string]interface{}{
				"username": username,
				"reason":   reason,
			})
			summary.SkippedAccounts++
			continue
		}

		d.logger.WithField("username", username).Info("working with account")

		if err := d.runAccount(ctx, record, targets, plan, summary); err != nil {
			return summary, err
		}

		// Delay between accounts, skipped after the last one
		if i < len(accounts)-1 {
			if err := d.pause(ctx, d.cfg.Delays.BetweenAccounts, "between accounts"); err != nil {
				return summary, err
			}
		}
	}

	d.logger.InfoWithFields("automation run finished", map[string]interface{}{
		"total":        summary.Total,
		"successful":   summary.Successful,
		"success_rate": fmt.Sprintf("%.1f%%", summary.SuccessRate()),
	})

	return summary, nil
}

// runAccount processes every target for one account. Returns an error only
// on cancellation.
func (d *Driver) runAccount(ctx context.Context, record *account.Record, targets []string, plan *Plan, summary *Summary) error {
	username := record.Username
	sessionActions := 0

	for ti, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Re-read the record: the quota boundary is enforced here, not by the store
		record, _ = d.store.Get(username)
		if record == nil {
			// Operator removed the account mid-run
			d.logger.WithField("username", username).Warn("account removed mid-run")
			return nil
		}
		applyLimitOverride(record, plan)
		if record.ActionsCount >= record.DailyLimit {
			d.logger.WithField("username", username).Warn("daily limit reached")
			return nil
		}
		if max := d.cfg.Automation.MaxActionsPerSession; max > 0 && sessionActions >= max {
			d.logger.WithField("username", username).Info("session action cap reached")
			return nil
		}

		d.logger.WithFields(map[string]interface{}{
			"username": username,
			"target":   target,
		}).Info("processing target")

		for _, kind := range plan.Actions {
			if err := ctx.Err(); err != nil {
				return err
			}

			if !d.allowHourly(username) {
				d.logger.WithField("username", username).Warn("hourly action cap reached")
				return nil
			}

			// Per-kind pacing delay
			if r, ok := d.cfg.Delays.Actions[string(kind)]; ok {
				if err := sleep(ctx, jitter(r, d.rnd)); err != nil {
					return err
				}
			}

			dispatchErr := d.dispatch(ctx, kind, record, target, plan)
			if errors.Is(dispatchErr, ErrSkipped) {
				d.logger.WithFields(map[string]interface{}{
					"username": username,
					"target":   target,
					"action":   string(kind),
				}).Debug("action skipped")
				continue
			}
			if err := ctx.Err(); err != nil {
				// Half-finished actions are never recorded on cancellation
				return err
			}

			sessionActions++
			success := dispatchErr == nil
			d.record(username, target, kind, success, dispatchErr)
			summary.count(kind, success)

			if !success {
				d.handleActionError(username, dispatchErr)
				record, _ = d.store.Get(username)
				if record == nil || record.Status.Blocked() {
					d.logger.WithField("username", username).Warn("account blocked, moving on")
					return nil
				}
				if record.RateLimitReset != nil && time.Now().Before(*record.RateLimitReset) {
					d.logger.WithField("username", username).Warn("account rate limited, moving on")
					return nil
				}
			}

			if err := d.pause(ctx, d.cfg.Delays.BetweenActions, "between actions"); err != nil {
				return err
			}
		}

		if ti < len(targets)-1 {
			if err := d.pause(ctx, d.cfg.Delays.BetweenTargets, "between targets"); err != nil {
				return err
			}
		}
	}

	return nil
}

// dispatch invokes the actor for one action kind, with the configured retry
// policy applied to retryable failures
func (d *Driver) dispatch(ctx context.Context, kind Kind, record *account.Record, target string, plan *Plan) error {
	op := func() error {
		switch kind {
		case KindLikePosts:
			count := plan.LikeCount
			if count <= 0 {
				count = 2
			}
			return d.actor.LikePosts(ctx, record, target, count)
		case KindLikeStories:
			return d.actor.LikeStories(ctx, record, target)
		case KindReplyStory:
			return d.actor.ReplyStory(ctx, record, target, pick(plan.StoryReplies, d.rnd))
		case KindDirectMessage:
			if plan.DMOnlyIfNoStories {
				has, err := d.actor.HasStories(ctx, record, target)
				if err != nil {
					return err
				}
				if has {
					return ErrSkipped
				}
			}
			return d.actor.SendDirectMessage(ctx, record, target, pick(plan.DirectMessages, d.rnd))
		default:
			return fmt.Errorf("unknown action kind: %s", kind)
		}
	}

	if d.cfg.Automation.RetryCount <= 0 {
		return op()
	}

	return retry.Do(op, &retry.Config{
		MaxAttempts: d.cfg.Automation.RetryCount + 1,
		Backoff: &retry.RangeBackoff{
			Min: time.Duration(d.cfg.Automation.RetryDelay.Min * float64(time.Second)),
			Max: time.Duration(d.cfg.Automation.RetryDelay.Max * float64(time.Second)),
		},
		RetryIf: func(err error) bool {
			if errors.Is(err, ErrSkipped) {
				return false
			}
			return retry.DefaultRetryIf(err)
		},
		Context: ctx,
		Logger:  d.logger,
	})
}

// record feeds the result to the activity recorder and the statistics sink
func (d *Driver) record(username, target string, kind Kind, success bool, actionErr error) {
	if err := d.store.RecordActivity(username, string(kind), success); err != nil {
		d.logger.WithError(err).Error("failed to persist account activity")
	}
	if d.sink != nil {
		details := ""
		if actionErr != nil {
			details = actionErr.Error()
		}
		if err := d.sink.LogAction(username, target, string(kind), success, details); err != nil {
			d.logger.WithError(err).Warn("failed to log action statistics")
		}
	}
}

// handleActionError applies account-level consequences of a typed failure
func (d *Driver) handleActionError(username string, actionErr error) {
	d.logger.WithError(actionErr).WithField("username", username).Error("action failed")

	var typed *errs.Error
	if !errors.As(actionErr, &typed) {
		return
	}

	switch typed.Type {
	case errs.ErrorTypeRateLimit:
		if d.cfg.Safety.RespectRateLimits {
			if err := d.store.SetRateLimit(username, d.cfg.Limits.RateLimitPenalty); err != nil {
				d.logger.WithError(err).Warn("failed to persist rate limit")
			}
		}
	case errs.ErrorTypeRestricted:
		if d.cfg.Safety.CheckAccountHealth {
			if err := d.store.SetStatus(username, account.StatusRestricted); err != nil {
				d.logger.WithError(err).Warn("failed to persist account status")
			}
		}
	case errs.ErrorTypeShadowban:
		if d.cfg.Safety.CheckAccountHealth {
			if err := d.store.SetStatus(username, account.StatusShadowban); err != nil {
				d.logger.WithError(err).Warn("failed to persist account status")
			}
		}
	}
}

// applyLimitOverride caps a record copy at the plan's session daily limit.
// The store keeps a copy of its own, so the stored limit is untouched.
func applyLimitOverride(record *account.Record, plan *Plan) {
	if plan.DailyLimit > 0 {
		record.DailyLimit = plan.DailyLimit
	}
}

// allowHourly consults the per-account sliding window
func (d *Driver) allowHourly(username string) bool {
	limit := d.cfg.Limits.HourlyActionLimit
	if limit <= 0 {
		return true
	}
	window, ok := d.hourly[username]
	if !ok {
		window = ratelimit.NewSlidingWindow(limit, time.Hour)
		d.hourly[username] = window
	}
	return window.Allow()
}

// pause sleeps a jittered interval, logging the wait
func (d *Driver) pause(ctx context.Context, r config.Range, what string) error {
	delay := jitter(r, d.rnd)
	if delay <= 0 {
		return ctx.Err()
	}
	d.logger.DebugWithFields("pausing", map[string]interface{}{
		"for":   what,
		"delay": delay,
	})
	return sleep(ctx, delay)
}

// pick returns a random element, or "" for an empty pool
func pick(pool []string, rnd *rand.Rand) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rnd.Intn(len(pool))]
}

// shuffled returns a shuffled copy
func shuffled(in []string, rnd *rand.Rand) []string {
	out := make([]string, len(in))
	copy(out, in)
	rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
