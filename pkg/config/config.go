package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Action kinds recognized in delay tables and dispatch plans.
const (
	KindLikePosts     = "like_posts"
	KindLikeStories   = "like_stories"
	KindReplyStory    = "reply_story"
	KindDirectMessage = "direct_message"
)

// Config holds all configuration options for the engagement automation
type Config struct {
	// Account safety limits
	Limits LimitsConfig `yaml:"limits" json:"limits"`

	// Delay ranges between actions, targets and accounts
	Delays DelaysConfig `yaml:"delays" json:"delays"`

	// Dispatch loop behavior
	Automation AutomationConfig `yaml:"automation" json:"automation"`

	// Safety toggles
	Safety SafetyConfig `yaml:"safety_settings" json:"safety_settings"`

	// Message pools for story replies and direct messages
	Messages MessagesConfig `yaml:"messages" json:"messages"`

	// HTTP client settings
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Persistent state locations
	Store StoreConfig `yaml:"store" json:"store"`

	// Statistics database
	Stats StatsConfig `yaml:"stats" json:"stats"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LimitsConfig holds per-account quota and breaker settings
type LimitsConfig struct {
	DailyActionLimit    int           `yaml:"daily_action_limit" json:"daily_action_limit"`
	HourlyActionLimit   int           `yaml:"hourly_action_limit" json:"hourly_action_limit"`
	MaxErrorsPerAccount int           `yaml:"max_errors_per_account" json:"max_errors_per_account"`
	CooldownAfterError  time.Duration `yaml:"cooldown_after_error" json:"cooldown_after_error"`
	RateLimitPenalty    time.Duration `yaml:"rate_limit_penalty" json:"rate_limit_penalty"`
}

// Range is an inclusive [Min, Max] interval in seconds
type Range struct {
	Min float64
	Max float64
}

// UnmarshalYAML decodes a two-element sequence like [2, 5]
func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	var pair []float64
	if err := value.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("delay range must have exactly two elements, got %d", len(pair))
	}
	r.Min = pair[0]
	r.Max = pair[1]
	return nil
}

// MarshalYAML encodes the range back to a two-element sequence
func (r Range) MarshalYAML() (interface{}, error) {
	return []float64{r.Min, r.Max}, nil
}

// Valid reports whether the range is non-negative and ordered
func (r Range) Valid() bool {
	return r.Min >= 0 && r.Min <= r.Max
}

// DelaysConfig holds jittered delay ranges, in seconds
type DelaysConfig struct {
	Actions         map[string]Range `yaml:"action_delays" json:"action_delays"`
	BetweenActions  Range            `yaml:"between_actions" json:"between_actions"`
	BetweenTargets  Range            `yaml:"between_targets" json:"between_targets"`
	BetweenAccounts Range            `yaml:"between_accounts" json:"between_accounts"`
}

// AutomationConfig holds dispatch loop behavior
type AutomationConfig struct {
	RandomizeOrder       bool  `yaml:"randomize_order" json:"randomize_order"`
	RetryCount           int   `yaml:"retry_count" json:"retry_count"`
	RetryDelay           Range `yaml:"retry_delay" json:"retry_delay"`
	MaxActionsPerSession int   `yaml:"max_actions_per_session" json:"max_actions_per_session"`
}

// SafetyConfig holds safety toggles
type SafetyConfig struct {
	CheckAccountHealth bool `yaml:"check_account_health" json:"check_account_health"`
	AutoPauseOnErrors  bool `yaml:"auto_pause_on_errors" json:"auto_pause_on_errors"`
	RespectRateLimits  bool `yaml:"respect_rate_limits" json:"respect_rate_limits"`
}

// MessagesConfig holds outgoing message pools
type MessagesConfig struct {
	StoryReplies   []string `yaml:"story_replies" json:"story_replies"`
	DirectMessages []string `yaml:"direct_messages" json:"direct_messages"`
}

// HTTPConfig holds HTTP client settings
type HTTPConfig struct {
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
}

// StoreConfig holds persistent state locations
type StoreConfig struct {
	AccountsFile string `yaml:"accounts_file" json:"accounts_file"`
	TargetsFile  string `yaml:"targets_file" json:"targets_file"`
	ProxiesFile  string `yaml:"proxies_file" json:"proxies_file"`
}

// StatsConfig holds the statistics database settings
type StatsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			DailyActionLimit:    80,
			HourlyActionLimit:   15,
			MaxErrorsPerAccount: 3,
			CooldownAfterError:  30 * time.Minute,
			RateLimitPenalty:    2 * time.Hour,
		},
		Delays: DelaysConfig{
			Actions: map[string]Range{
				KindLikePosts:     {Min: 2, Max: 5},
				KindLikeStories:   {Min: 1, Max: 3},
				KindReplyStory:    {Min: 2, Max: 6},
				KindDirectMessage: {Min: 5, Max: 12},
			},
			BetweenActions:  Range{Min: 8, Max: 15},
			BetweenTargets:  Range{Min: 15, Max: 45},
			BetweenAccounts: Range{Min: 120, Max: 300},
		},
		Automation: AutomationConfig{
			RandomizeOrder:       false,
			RetryCount:           0,
			RetryDelay:           Range{Min: 300, Max: 600},
			MaxActionsPerSession: 50,
		},
		Safety: SafetyConfig{
			CheckAccountHealth: true,
			AutoPauseOnErrors:  true,
			RespectRateLimits:  true,
		},
		Messages: MessagesConfig{
			StoryReplies:   []string{"🔥🔥🔥", "❤️", "👍", "💯", "🙌", "👏", "😍", "✨", "🚀"},
			DirectMessages: []string{"Hey! Really like your content 👍", "Hi! Great profile ✨", "Hello! Thanks for the inspiration 🙌"},
		},
		HTTP: HTTPConfig{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			RequestsPerMinute: 30,
			Timeout:           30 * time.Second,
		},
		Store: StoreConfig{
			AccountsFile: filepath.Join("data", "accounts.json"),
			TargetsFile:  filepath.Join("data", "targets.txt"),
		},
		Stats: StatsConfig{
			Enabled: true,
			DataDir: "data",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration overrides from environment variables
func (c *Config) LoadFromEnv() {
	if ua := os.Getenv("IGENGAGE_USER_AGENT"); ua != "" {
		c.HTTP.UserAgent = ua
	}
	if rpm := os.Getenv("IGENGAGE_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.HTTP.RequestsPerMinute = val
		}
	}
	if limit := os.Getenv("IGENGAGE_DAILY_LIMIT"); limit != "" {
		var val int
		fmt.Sscanf(limit, "%d", &val)
		if val > 0 {
			c.Limits.DailyActionLimit = val
		}
	}
	if accountsFile := os.Getenv("IGENGAGE_ACCOUNTS_FILE"); accountsFile != "" {
		c.Store.AccountsFile = accountsFile
	}
	if dataDir := os.Getenv("IGENGAGE_DATA_DIR"); dataDir != "" {
		c.Stats.DataDir = dataDir
	}
	if logLevel := os.Getenv("IGENGAGE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igengage.yaml",
		".igengage.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igengage", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igengage", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".igengage.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Sanitize validates the configuration section by section. Invalid sections
// fall back to their defaults; every fallback produces a warning for the
// caller to log once the logger is up. Sanitize never fails the load.
func (c *Config) Sanitize() []string {
	var warnings []string
	defaults := DefaultConfig()

	if c.Limits.DailyActionLimit <= 0 || c.Limits.MaxErrorsPerAccount <= 0 ||
		c.Limits.CooldownAfterError < 0 || c.Limits.RateLimitPenalty < 0 ||
		c.Limits.HourlyActionLimit < 0 {
		warnings = append(warnings, "invalid limits section, using defaults")
		c.Limits = defaults.Limits
	}

	delaysOK := true
	if !c.Delays.BetweenActions.Valid() || !c.Delays.BetweenTargets.Valid() ||
		!c.Delays.BetweenAccounts.Valid() {
		warnings = append(warnings, "invalid delays section, using defaults")
		delaysOK = false
	}
	for kind, r := range c.Delays.Actions {
		if !r.Valid() {
			warnings = append(warnings, fmt.Sprintf("invalid delay range for %s, using defaults", kind))
			delaysOK = false
		}
	}
	if !delaysOK {
		c.Delays = defaults.Delays
	}
	if len(c.Delays.Actions) == 0 {
		c.Delays.Actions = defaults.Delays.Actions
	}

	if c.Automation.RetryCount < 0 || !c.Automation.RetryDelay.Valid() ||
		c.Automation.MaxActionsPerSession < 0 {
		warnings = append(warnings, "invalid automation section, using defaults")
		c.Automation = defaults.Automation
	}

	if len(c.Messages.StoryReplies) == 0 {
		c.Messages.StoryReplies = defaults.Messages.StoryReplies
	}
	if len(c.Messages.DirectMessages) == 0 {
		c.Messages.DirectMessages = defaults.Messages.DirectMessages
	}

	if c.HTTP.UserAgent == "" || c.HTTP.RequestsPerMinute <= 0 || c.HTTP.Timeout <= 0 {
		warnings = append(warnings, "invalid http section, using defaults")
		c.HTTP = defaults.HTTP
	}

	if c.Store.AccountsFile == "" {
		c.Store.AccountsFile = defaults.Store.AccountsFile
	}
	if c.Store.TargetsFile == "" {
		c.Store.TargetsFile = defaults.Store.TargetsFile
	}
	if c.Stats.DataDir == "" {
		c.Stats.DataDir = defaults.Stats.DataDir
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		warnings = append(warnings, fmt.Sprintf("invalid log level %q, using %q", c.Logging.Level, defaults.Logging.Level))
		c.Logging.Level = defaults.Logging.Level
	}

	return warnings
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if accountsFile, ok := flags["accounts-file"].(string); ok && accountsFile != "" {
		c.Store.AccountsFile = accountsFile
	}
	if targetsFile, ok := flags["targets-file"].(string); ok && targetsFile != "" {
		c.Store.TargetsFile = targetsFile
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults.
// Returned warnings describe sections that failed validation and were reset
// to defaults; they should be logged once the logger is initialized.
func Load(configPath string, flags map[string]interface{}) (*Config, []string, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igengage.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		// A missing or corrupt config file degrades to defaults (plus a warning)
		// rather than failing the run. Only an explicitly requested path that
		// cannot be read is a hard error.
		if configPath != "" {
			return nil, nil, fmt.Errorf("failed to load config file: %w", err)
		}
		fresh := DefaultConfig()
		*config = *fresh
	}

	config.LoadFromEnv()
	config.MergeCommandLineFlags(flags)

	warnings := config.Sanitize()

	return config, warnings, nil
}
