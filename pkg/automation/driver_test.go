package automation

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igengage/pkg/account"
	"igengage/pkg/config"
	errs "igengage/pkg/errors"
	"igengage/pkg/logger"
)

// fakeActor records every call and fails on demand
type fakeActor struct {
	mu      sync.Mutex
	calls   []actorCall
	stories bool

	// failuresLeft[kind] fails that many leading calls with failErr
	failuresLeft map[Kind]int
	failErr      error
}

type actorCall struct {
	account string
	target  string
	kind    Kind
}

func (f *fakeActor) act(acct *account.Record, target string, kind Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, actorCall{account: acct.Username, target: target, kind: kind})
	if f.failuresLeft[kind] > 0 {
		f.failuresLeft[kind]--
		return f.failErr
	}
	return nil
}

func (f *fakeActor) LikePosts(ctx context.Context, acct *account.Record, target string, count int) error {
	return f.act(acct, target, KindLikePosts)
}

func (f *fakeActor) LikeStories(ctx context.Context, acct *account.Record, target string) error {
	return f.act(acct, target, KindLikeStories)
}

func (f *fakeActor) ReplyStory(ctx context.Context, acct *account.Record, target, message string) error {
	return f.act(acct, target, KindReplyStory)
}

func (f *fakeActor) SendDirectMessage(ctx context.Context, acct *account.Record, target, message string) error {
	return f.act(acct, target, KindDirectMessage)
}

func (f *fakeActor) HasStories(ctx context.Context, acct *account.Record, target string) (bool, error) {
	return f.stories, nil
}

func (f *fakeActor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// testConfig returns a config with all pauses zeroed so tests run instantly
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Delays.Actions = map[string]config.Range{}
	cfg.Delays.BetweenActions = config.Range{}
	cfg.Delays.BetweenTargets = config.Range{}
	cfg.Delays.BetweenAccounts = config.Range{}
	cfg.Automation.RetryCount = 0
	return cfg
}

func testStore(t *testing.T, usernames ...string) *account.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	store := account.NewStore(path, logger.NewTestLogger())
	for _, name := range usernames {
		require.NoError(t, store.Add(name, "pw", ""))
	}
	// Mark today's reset as done so Run does not zero test fixtures
	require.NoError(t, os.WriteFile(path+".reset", []byte(time.Now().Format("2006-01-02")), 0644))
	return store
}

func newTestDriver(store *account.Store, actor Actor, cfg *config.Config) *Driver {
	d := NewDriver(store, actor, cfg, logger.NewTestLogger())
	d.SetRand(rand.New(rand.NewSource(1)))
	return d
}

func TestDriverSkipsUnavailableAccounts(t *testing.T) {
	store := testStore(t, "alice", "bob")
	require.NoError(t, store.SetStatus("alice", account.StatusBanned))

	actor := &fakeActor{}
	driver := newTestDriver(store, actor, testConfig())

	summary, err := driver.Run(context.Background(), &Plan{
		Targets: []string{"t1", "t2"},
		Actions: []Kind{KindLikePosts},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SkippedAccounts)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Successful)
	for _, call := range actor.calls {
		assert.Equal(t, "bob", call.account)
	}

	bob, _ := store.Get("bob")
	assert.Equal(t, 2, bob.ActionsCount)
	alice, _ := store.Get("alice")
	assert.Equal(t, 0, alice.ActionsCount)
}

func TestDriverRateLimitParksAccount(t *testing.T) {
	store := testStore(t, "alice")
	actor := &fakeActor{
		failuresLeft: map[Kind]int{KindLikePosts: 10},
		failErr:      errs.New(errs.ErrorTypeRateLimit, 429, "rate limited"),
	}
	driver := newTestDriver(store, actor, testConfig())

	summary, err := driver.Run(context.Background(), &Plan{
		Targets: []string{"t1", "t2", "t3"},
		Actions: []Kind{KindLikePosts},
	})
	require.NoError(t, err)

	// The first failure rate-limits the account; remaining targets are dropped
	assert.Equal(t, 1, actor.callCount())
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 0, summary.Successful)

	record, _ := store.Get("alice")
	require.NotNil(t, record.RateLimitReset)
	assert.True(t, time.Now().Before(*record.RateLimitReset))
}

func TestDriverBreakerStopsAccount(t *testing.T) {
	store := testStore(t, "alice")
	actor := &fakeActor{
		failuresLeft: map[Kind]int{KindLikePosts: 10},
		failErr:      errs.New(errs.ErrorTypeNetwork, 0, "connection refused"),
	}
	cfg := testConfig()
	driver := newTestDriver(store, actor, cfg)

	summary, err := driver.Run(context.Background(), &Plan{
		Targets: []string{"t1", "t2", "t3", "t4", "t5"},
		Actions: []Kind{KindLikePosts},
	})
	require.NoError(t, err)

	// Third consecutive failure trips the breaker and ends the account
	assert.Equal(t, 3, actor.callCount())
	assert.Equal(t, 3, summary.Total)

	record, _ := store.Get("alice")
	assert.Equal(t, account.StatusErrorLimit, record.Status)
}

func TestDriverBreakerUsesConfiguredThreshold(t *testing.T) {
	store := testStore(t, "alice")
	actor := &fakeActor{
		failuresLeft: map[Kind]int{KindLikePosts: 10},
		failErr:      errs.New(errs.ErrorTypeNetwork, 0, "connection refused"),
	}
	cfg := testConfig()
	cfg.Limits.MaxErrorsPerAccount = 5
	driver := newTestDriver(store, actor, cfg)

	summary, err := driver.Run(context.Background(), &Plan{
		Targets: []string{"t1", "t2", "t3", "t4", "t5", "t6"},
		Actions: []Kind{KindLikePosts},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, actor.callCount())
	assert.Equal(t, 5, summary.Total)

	record, _ := store.Get("alice")
	assert.Equal(t, account.StatusErrorLimit, record.Status)
	assert.Equal(t, 5, record.ErrorsCount)
}

func TestDriverBreakerDisabledBySafetyToggle(t *testing.T) {
	store := testStore(t, "alice")
	actor := &fakeActor{
		failuresLeft: map[Kind]int{KindLikePosts: 10},
		failErr:      errs.New(errs.ErrorTypeNetwork, 0, "connection refused"),
	}
	cfg := testConfig()
	cfg.Safety.AutoPauseOnErrors = false
	driver := newTestDriver(store, actor, cfg)

	summary, err := driver.Run(context.Background(), &Plan{
		Targets: []string{"t1", "t2", "t3", "t4", "t5"},
		Actions: []Kind{KindLikePosts},
	})
	require.NoError(t, err)

	// Failures accumulate but never park the account
	assert.Equal(t, 5, summary.Total)
	record, _ := store.Get("alice")
	assert.Equal(t, account.StatusActive, record.Status)
	assert.Equal(t, 5, record.ErrorsCount)
}

func TestDriverShadowbanDetection(t *testing.T) {
	store := testStore(t, "alice")
	actor := &fakeActor{
		failuresLeft: map[Kind]int{KindLikePosts: 1},
		failErr:      errs.New(errs.ErrorTypeShadowban, 0, "feedback_required"),
	}
	driver := newTestDriver(store, actor, testConfig())

	_, err := driver.Run(context.Background(), &Plan{
		Targets: []string{"t1", "t2"},
		Actions: []Kind{KindLikePosts},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, actor.callCount())
	record, _ := store.Get("alice")
	assert.Equal(t, account.StatusShadowban, record.Status)
}

func TestDriverDMGatedOnStories(t *testing.T) {
	store := testStore(t, "alice")
	actor := &fakeActor{stories: true}
	driver := newTestDriver(store, actor, testConfig())

	summary, err := driver.Run(context.Background(), &Plan{
		Targets:           []string{"t1", "t2"},
		Actions:           []Kind{KindDirectMessage},
		DMOnlyIfNoStories: true,
		DirectMessages:    []string{"hi"},
	})
	require.NoError(t, err)

	// Skipped actions are neither recorded nor counted
	assert.Equal(t, 0, summary.Total)
	record, _ := store.Get("alice")
	assert.Equal(t, 0, record.ActionsCount)
	assert.Equal(t, 0, record.ErrorsCount)

	actor.stories = false
	summary, err = driver.Run(context.Background(), &Plan{
		Targets:           []string{"t1"},
		Actions:           []Kind{KindDirectMessage},
		DMOnlyIfNoStories: true,
		DirectMessages:    []string{"hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Successful)
}

func TestDriverCancellation(t *testing.T) {
	store := testStore(t, "alice")
	actor := &fakeActor{}
	driver := newTestDriver(store, actor, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := driver.Run(ctx, &Plan{
		Targets: []string{"t1"},
		Actions: []Kind{KindLikePosts},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, actor.callCount())
}

func TestDriverRetriesNetworkErrors(t *testing.T) {
	store := testStore(t, "alice")
	actor := &fakeActor{
		failuresLeft: map[Kind]int{KindLikePosts: 2},
		failErr:      errs.New(errs.ErrorTypeNetwork, 0, "timeout"),
	}
	cfg := testConfig()
	cfg.Automation.RetryCount = 2
	cfg.Automation.RetryDelay = config.Range{}
	driver := newTestDriver(store, actor, cfg)

	summary, err := driver.Run(context.Background(), &Plan{
		Targets: []string{"t1"},
		Actions: []Kind{KindLikePosts},
	})
	require.NoError(t, err)

	// Two failures retried away, third attempt lands
	assert.Equal(t, 3, actor.callCount())
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Successful)

	record, _ := store.Get("alice")
	assert.Equal(t, 0, record.ErrorsCount)
}

func TestDriverQuotaBoundary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.json")

	record := account.NewRecord("alice", "pw", "")
	record.ActionsCount = record.DailyLimit - 1
	data, err := json.MarshalIndent(map[string]*account.Record{"alice": record}, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
	require.NoError(t, os.WriteFile(path+".reset", []byte(time.Now().Format("2006-01-02")), 0644))

	store := account.NewStore(path, logger.NewTestLogger())
	actor := &fakeActor{}
	driver := newTestDriver(store, actor, testConfig())

	summary, err := driver.Run(context.Background(), &Plan{
		Targets: []string{"t1", "t2", "t3"},
		Actions: []Kind{KindLikePosts},
	})
	require.NoError(t, err)

	// One action left in the budget; the rest of the targets are dropped
	assert.Equal(t, 1, summary.Total)
	reloaded, _ := store.Get("alice")
	assert.Equal(t, reloaded.DailyLimit, reloaded.ActionsCount)
}

func TestDriverSessionDailyLimitOverride(t *testing.T) {
	store := testStore(t, "alice")
	actor := &fakeActor{}
	driver := newTestDriver(store, actor, testConfig())

	summary, err := driver.Run(context.Background(), &Plan{
		Targets:    []string{"t1", "t2", "t3", "t4"},
		Actions:    []Kind{KindLikePosts},
		DailyLimit: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)

	// The stored per-account limit is untouched by the override
	record, _ := store.Get("alice")
	assert.Equal(t, 2, record.ActionsCount)
	assert.Equal(t, account.DefaultDailyLimit, record.DailyLimit)
}

func TestDriverHourlyCapDefersAccount(t *testing.T) {
	store := testStore(t, "alice")
	actor := &fakeActor{}
	cfg := testConfig()
	cfg.Limits.HourlyActionLimit = 2
	driver := newTestDriver(store, actor, cfg)

	summary, err := driver.Run(context.Background(), &Plan{
		Targets: []string{"t1", "t2", "t3", "t4", "t5"},
		Actions: []Kind{KindLikePosts},
	})
	require.NoError(t, err)

	// The window fills after two actions; the rest of the targets are deferred
	assert.Equal(t, 2, actor.callCount())
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Successful)

	record, _ := store.Get("alice")
	assert.Equal(t, 2, record.ActionsCount)
	assert.Equal(t, account.StatusActive, record.Status)
}

func TestDriverRandomizeIsDeterministicPerSeed(t *testing.T) {
	run := func(seed int64) []actorCall {
		store := testStore(t, "a1", "a2", "a3")
		actor := &fakeActor{}
		cfg := testConfig()
		cfg.Automation.RandomizeOrder = true
		driver := NewDriver(store, actor, cfg, logger.NewTestLogger())
		driver.SetRand(rand.New(rand.NewSource(seed)))
		_, err := driver.Run(context.Background(), &Plan{
			Targets: []string{"t1", "t2", "t3"},
			Actions: []Kind{KindLikePosts},
		})
		require.NoError(t, err)
		return actor.calls
	}

	first := run(42)
	second := run(42)
	assert.Equal(t, first, second)
	assert.Len(t, first, 9)
}
