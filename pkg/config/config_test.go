package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 80, cfg.Limits.DailyActionLimit)
	assert.Equal(t, 15, cfg.Limits.HourlyActionLimit)
	assert.Equal(t, 3, cfg.Limits.MaxErrorsPerAccount)
	assert.Equal(t, 30*time.Minute, cfg.Limits.CooldownAfterError)
	assert.Equal(t, 2*time.Hour, cfg.Limits.RateLimitPenalty)

	assert.Equal(t, Range{Min: 8, Max: 15}, cfg.Delays.BetweenActions)
	assert.Equal(t, Range{Min: 15, Max: 45}, cfg.Delays.BetweenTargets)
	assert.Equal(t, Range{Min: 120, Max: 300}, cfg.Delays.BetweenAccounts)
	assert.Contains(t, cfg.Delays.Actions, KindLikePosts)
	assert.Contains(t, cfg.Delays.Actions, KindDirectMessage)

	assert.True(t, cfg.Safety.RespectRateLimits)
	assert.True(t, cfg.Safety.CheckAccountHealth)
	assert.NotEmpty(t, cfg.Messages.StoryReplies)
	assert.NotEmpty(t, cfg.Messages.DirectMessages)
	assert.True(t, cfg.Stats.Enabled)
}

func TestRangeUnmarshalYAML(t *testing.T) {
	var r Range
	require.NoError(t, yaml.Unmarshal([]byte("[2, 5.5]"), &r))
	assert.Equal(t, Range{Min: 2, Max: 5.5}, r)

	assert.Error(t, yaml.Unmarshal([]byte("[2]"), &r), "one element")
	assert.Error(t, yaml.Unmarshal([]byte("[1, 2, 3]"), &r), "three elements")
	assert.Error(t, yaml.Unmarshal([]byte(`"fast"`), &r), "not a sequence")
}

func TestRangeValid(t *testing.T) {
	assert.True(t, Range{Min: 1, Max: 2}.Valid())
	assert.True(t, Range{Min: 0, Max: 0}.Valid())
	assert.False(t, Range{Min: 2, Max: 1}.Valid())
	assert.False(t, Range{Min: -1, Max: 2}.Valid())
}

func TestSanitizeDegradesInvalidSections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.DailyActionLimit = -5
	cfg.Delays.BetweenActions = Range{Min: 10, Max: 2}
	cfg.Logging.Level = "loud"

	warnings := cfg.Sanitize()

	assert.Len(t, warnings, 3)
	assert.Equal(t, 80, cfg.Limits.DailyActionLimit)
	assert.Equal(t, Range{Min: 8, Max: 15}, cfg.Delays.BetweenActions)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestSanitizeKeepsValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.DailyActionLimit = 50

	warnings := cfg.Sanitize()

	assert.Empty(t, warnings)
	assert.Equal(t, 50, cfg.Limits.DailyActionLimit)
}

func TestLoadFromFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
limits:
  daily_action_limit: 40
  hourly_action_limit: 10
delays:
  between_actions: [3, 7]
automation:
  randomize_order: true
messages:
  story_replies: ["nice"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, warnings, err := Load(path, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, 40, cfg.Limits.DailyActionLimit)
	assert.Equal(t, 10, cfg.Limits.HourlyActionLimit)
	assert.Equal(t, Range{Min: 3, Max: 7}, cfg.Delays.BetweenActions)
	assert.True(t, cfg.Automation.RandomizeOrder)
	assert.Equal(t, []string{"nice"}, cfg.Messages.StoryReplies)

	// Untouched sections keep their defaults
	assert.Equal(t, 3, cfg.Limits.MaxErrorsPerAccount)
	assert.Equal(t, Range{Min: 15, Max: 45}, cfg.Delays.BetweenTargets)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadExplicitCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits: ["), 0600))

	_, _, err := Load(path, nil)
	assert.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
limits:
  daily_action_limit: 40
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	// Environment beats the file
	t.Setenv("IGENGAGE_DAILY_LIMIT", "60")

	// Flags beat everything
	cfg, _, err := Load(path, map[string]interface{}{"log-level": "debug"})
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Limits.DailyActionLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"accounts-file": "alt/accounts.json",
		"targets-file":  "alt/targets.txt",
		"log-level":     "debug",
	})

	assert.Equal(t, "alt/accounts.json", cfg.Store.AccountsFile)
	assert.Equal(t, "alt/targets.txt", cfg.Store.TargetsFile)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Absent and empty keys leave the config untouched
	before := cfg.Store
	cfg.MergeCommandLineFlags(map[string]interface{}{"accounts-file": ""})
	assert.Equal(t, before, cfg.Store)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Limits.DailyActionLimit = 42
	require.NoError(t, cfg.Save(path))

	loaded, warnings, err := Load(path, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 42, loaded.Limits.DailyActionLimit)
	assert.Equal(t, cfg.Delays, loaded.Delays)
}
