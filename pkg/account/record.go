package account

import (
	"regexp"
	"time"
)

// Status represents the lifecycle state of a managed account
type Status string

const (
	StatusActive     Status = "active"
	StatusErrorLimit Status = "error_limit"
	StatusRestricted Status = "restricted"
	StatusShadowban  Status = "shadowban"
	StatusSuspended  Status = "suspended"
	StatusBanned     Status = "banned"
)

// blockedStatuses are the states that make an account ineligible for dispatch
var blockedStatuses = map[Status]bool{
	StatusBanned:     true,
	StatusShadowban:  true,
	StatusSuspended:  true,
	StatusErrorLimit: true,
}

// Blocked reports whether the status excludes the account from dispatch
func (s Status) Blocked() bool {
	return blockedStatuses[s]
}

// DefaultDailyLimit is the per-account daily action ceiling for new accounts
const DefaultDailyLimit = 80

// MaxConsecutiveErrors is the default breaker threshold: this many failures
// in a row transition the account to error_limit. Stores can override it
// via SetErrorPolicy.
const MaxConsecutiveErrors = 3

// ErrorCooldown is the window after any failed action during which the
// account stays ineligible, independent of the breaker
const ErrorCooldown = 30 * time.Minute

// ActionError records the most recent failed action
type ActionError struct {
	Timestamp  time.Time `json:"timestamp"`
	ActionType string    `json:"action_type"`
}

// Cookie is one restored session cookie
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain,omitempty"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// Record is the persisted state of one managed account.
// The JSON field names form the on-disk store contract.
type Record struct {
	Username       string       `json:"-"`
	Password       string       `json:"password"`
	Proxy          string       `json:"proxy,omitempty"`
	Status         Status       `json:"status"`
	ActionsCount   int          `json:"actions_count"`
	TotalActions   int          `json:"total_actions"`
	DailyLimit     int          `json:"daily_limit"`
	ErrorsCount    int          `json:"errors_count"`
	LastError      *ActionError `json:"last_error"`
	LastActivity   *time.Time   `json:"last_activity"`
	RateLimitReset *time.Time   `json:"rate_limit_reset"`
	SessionCookies []Cookie     `json:"session_cookies"`
	UserAgent      string       `json:"user_agent,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// NewRecord creates a fresh active record with default quotas
func NewRecord(username, password, proxy string) *Record {
	return &Record{
		Username:   username,
		Password:   password,
		Proxy:      proxy,
		Status:     StatusActive,
		DailyLimit: DefaultDailyLimit,
		CreatedAt:  time.Now(),
	}
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	out := *r
	if r.LastError != nil {
		le := *r.LastError
		out.LastError = &le
	}
	if r.LastActivity != nil {
		la := *r.LastActivity
		out.LastActivity = &la
	}
	if r.RateLimitReset != nil {
		rr := *r.RateLimitReset
		out.RateLimitReset = &rr
	}
	if r.SessionCookies != nil {
		out.SessionCookies = make([]Cookie, len(r.SessionCookies))
		copy(out.SessionCookies, r.SessionCookies)
	}
	return &out
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)

// ValidUsername reports whether the string is a plausible Instagram username
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}
