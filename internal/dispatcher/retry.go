package dispatcher

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/allylab/notify/internal/domain"
)

// jitterFraction spreads computed delays by ±10% to avoid synchronized
// retry storms.
const jitterFraction = 0.1

// NextDelay computes the backoff before retry number retryIndex+1.
// retryIndex starts at 0 for the first retry: base·mult^0, base·mult^1, ...
// capped at MaxDelay, then jittered. The initial attempt is never delayed.
func NextDelay(retryIndex int, cfg domain.RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.BackoffMultiplier, float64(retryIndex))
	if capped := float64(cfg.MaxDelay); delay > capped {
		delay = capped
	}
	jitter := 1 - jitterFraction + 2*jitterFraction*rand.Float64()
	return time.Duration(delay * jitter)
}

// Sleeper suspends the retry loop between attempts. Abstracted so tests can
// fast-forward virtual time instead of waiting on wall-clock timers.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
