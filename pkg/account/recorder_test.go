package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igengage/pkg/logger"
)

func TestRecordActivitySuccess(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Add("alice", "pw", ""))

	require.NoError(t, store.RecordActivity("alice", "like_posts", true))
	require.NoError(t, store.RecordActivity("alice", "like_stories", true))

	record, _ := store.Get("alice")
	assert.Equal(t, 2, record.ActionsCount)
	assert.Equal(t, 2, record.TotalActions)
	assert.Equal(t, 0, record.ErrorsCount)
	assert.Nil(t, record.LastError)
	require.NotNil(t, record.LastActivity)
	assert.WithinDuration(t, time.Now(), *record.LastActivity, 5*time.Second)
}

func TestRecordActivityFailure(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Add("alice", "pw", ""))

	require.NoError(t, store.RecordActivity("alice", "reply_story", false))

	record, _ := store.Get("alice")
	assert.Equal(t, 0, record.ActionsCount, "failures do not consume quota")
	assert.Equal(t, 0, record.TotalActions)
	assert.Equal(t, 1, record.ErrorsCount)
	require.NotNil(t, record.LastError)
	assert.Equal(t, "reply_story", record.LastError.ActionType)
	assert.Equal(t, StatusActive, record.Status)
}

func TestErrorBreakerTripsAtThreshold(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Add("alice", "pw", ""))

	for i := 0; i < MaxConsecutiveErrors-1; i++ {
		require.NoError(t, store.RecordActivity("alice", "like_posts", false))
		record, _ := store.Get("alice")
		assert.Equal(t, StatusActive, record.Status)
	}

	require.NoError(t, store.RecordActivity("alice", "like_posts", false))
	record, _ := store.Get("alice")
	assert.Equal(t, StatusErrorLimit, record.Status)
	assert.Equal(t, MaxConsecutiveErrors, record.ErrorsCount)

	// Further failures keep the account parked
	require.NoError(t, store.RecordActivity("alice", "like_posts", false))
	record, _ = store.Get("alice")
	assert.Equal(t, StatusErrorLimit, record.Status)
}

func TestErrorPolicyThreshold(t *testing.T) {
	store, _ := newTestStore(t)
	store.SetErrorPolicy(5, true)
	require.NoError(t, store.Add("alice", "pw", ""))

	for i := 0; i < 4; i++ {
		require.NoError(t, store.RecordActivity("alice", "like_posts", false))
	}
	record, _ := store.Get("alice")
	assert.Equal(t, StatusActive, record.Status, "below the configured threshold")

	require.NoError(t, store.RecordActivity("alice", "like_posts", false))
	record, _ = store.Get("alice")
	assert.Equal(t, StatusErrorLimit, record.Status)
	assert.Equal(t, 5, record.ErrorsCount)
}

func TestErrorPolicyBreakerDisabled(t *testing.T) {
	store, _ := newTestStore(t)
	store.SetErrorPolicy(3, false)
	require.NoError(t, store.Add("alice", "pw", ""))

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordActivity("alice", "like_posts", false))
	}
	record, _ := store.Get("alice")
	assert.Equal(t, StatusActive, record.Status)
	assert.Equal(t, 5, record.ErrorsCount)
}

func TestSuccessResetsErrorStreak(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Add("alice", "pw", ""))

	require.NoError(t, store.RecordActivity("alice", "like_posts", false))
	require.NoError(t, store.RecordActivity("alice", "like_posts", false))
	require.NoError(t, store.RecordActivity("alice", "like_posts", true))

	record, _ := store.Get("alice")
	assert.Equal(t, 0, record.ErrorsCount)
	assert.Nil(t, record.LastError)
	assert.Equal(t, StatusActive, record.Status)

	// The streak starts over; two more failures do not trip the breaker
	require.NoError(t, store.RecordActivity("alice", "like_posts", false))
	require.NoError(t, store.RecordActivity("alice", "like_posts", false))
	record, _ = store.Get("alice")
	assert.Equal(t, StatusActive, record.Status)
}

func TestSetRateLimit(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Add("alice", "pw", ""))

	require.NoError(t, store.SetRateLimit("alice", 2*time.Hour))

	record, _ := store.Get("alice")
	require.NotNil(t, record.RateLimitReset)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), *record.RateLimitReset, 5*time.Second)
	assert.Equal(t, ReasonRateLimit, UnavailableReason(record, time.Now(), ErrorCooldown))
}

func TestRecordActivityUnknownAccount(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.RecordActivity("ghost", "like_posts", true))
	assert.Equal(t, 0, store.Len())
}

func TestSaveAndReadSession(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, store.Add("alice", "pw", ""))

	cookies := []Cookie{
		{Name: "sessionid", Value: "abc123", Domain: ".instagram.com"},
		{Name: "csrftoken", Value: "tok", Domain: ".instagram.com"},
	}
	require.NoError(t, store.SaveSession("alice", cookies, "TestAgent/1.0"))

	reloaded := NewStore(path, logger.NewTestLogger())
	got, agent := reloaded.Session("alice")
	assert.Len(t, got, 2)
	assert.Equal(t, "sessionid", got[0].Name)
	assert.Equal(t, "TestAgent/1.0", agent)
}
