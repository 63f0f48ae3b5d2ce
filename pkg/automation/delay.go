package automation

import (
	"context"
	"math/rand"
	"time"

	"igengage/pkg/config"
)

// jitter picks a random duration from the [min, max] second range
func jitter(r config.Range, rnd *rand.Rand) time.Duration {
	if r.Max <= 0 {
		return 0
	}
	span := r.Max - r.Min
	if span <= 0 {
		return time.Duration(r.Min * float64(time.Second))
	}
	seconds := r.Min + rnd.Float64()*span
	return time.Duration(seconds * float64(time.Second))
}

// sleep waits for d or until ctx is done. The rate-limiting delays between
// actions run into minutes, so every one of them must be interruptible for
// "stop" to take effect within a single interval.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
