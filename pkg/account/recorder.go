package account

import "time"

// RecordActivity updates the record after an attempted action and persists.
//
// A success resets the consecutive-error counter: only an unbroken run of
// failures trips the breaker, so an account that fails occasionally is
// never penalized.
func (s *Store) RecordActivity(username, actionType string, success bool) error {
	return s.update(username, func(r *Record) {
		now := time.Now()
		r.LastActivity = &now

		if success {
			r.ActionsCount++
			r.TotalActions++
			r.ErrorsCount = 0
			r.LastError = nil
			return
		}

		r.ErrorsCount++
		r.LastError = &ActionError{
			Timestamp:  now,
			ActionType: actionType,
		}
		if s.autoPause && r.ErrorsCount >= s.maxErrors {
			if r.Status != StatusErrorLimit {
				s.logger.WarnWithFields("account breaker tripped", map[string]interface{}{
					"username": username,
					"errors":   r.ErrorsCount,
				})
			}
			r.Status = StatusErrorLimit
		}
	})
}

// SetRateLimit makes the account unavailable until now + duration
func (s *Store) SetRateLimit(username string, duration time.Duration) error {
	return s.update(username, func(r *Record) {
		reset := time.Now().Add(duration)
		r.RateLimitReset = &reset
	})
}

// SetStatus overrides the account status (health monitoring outcome)
func (s *Store) SetStatus(username string, status Status) error {
	return s.update(username, func(r *Record) {
		r.Status = status
	})
}

// SaveSession stores the session-restore blob for the account
func (s *Store) SaveSession(username string, cookies []Cookie, userAgent string) error {
	return s.update(username, func(r *Record) {
		r.SessionCookies = cookies
		r.UserAgent = userAgent
	})
}

// Session returns the saved session-restore blob, if any
func (s *Store) Session(username string) ([]Cookie, string) {
	record, ok := s.Get(username)
	if !ok {
		return nil, ""
	}
	return record.SessionCookies, record.UserAgent
}
