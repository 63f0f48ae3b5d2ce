package account

import "time"

// Unavailability reasons reported by the gate.
const (
	ReasonStatus    = "status"
	ReasonQuota     = "quota"
	ReasonRateLimit = "rate_limit"
	ReasonCooldown  = "cooldown"
)

// Available reports whether the account may perform another action at
// the given time, using the default post-error cooldown.
func Available(r *Record, now time.Time) bool {
	return AvailableAt(r, now, ErrorCooldown)
}

// AvailableAt is Available with an explicit post-error cooldown window.
func AvailableAt(r *Record, now time.Time, cooldown time.Duration) bool {
	return UnavailableReason(r, now, cooldown) == ""
}

// UnavailableReason returns why the account cannot act right now, or ""
// when it is available. The gates are layered and independently clocked:
// a punitive rate limit and a post-error cooldown can coexist without
// one clearing the other.
//
// The function is pure; it may be called speculatively with no side effects.
func UnavailableReason(r *Record, now time.Time, cooldown time.Duration) string {
	if r == nil {
		return ReasonStatus
	}

	if r.Status.Blocked() {
		return ReasonStatus
	}

	if r.ActionsCount >= r.DailyLimit {
		return ReasonQuota
	}

	if r.RateLimitReset != nil && now.Before(*r.RateLimitReset) {
		return ReasonRateLimit
	}

	if r.LastError != nil && now.Sub(r.LastError.Timestamp) < cooldown {
		return ReasonCooldown
	}

	return ""
}
