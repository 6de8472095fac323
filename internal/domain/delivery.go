package domain

import "time"

// DeliveryAttempt records one HTTP POST to a destination for one triggered
// event. It is transient; attempts are surfaced through metrics and logs,
// not persisted.
type DeliveryAttempt struct {
	ID            string
	DestinationID string
	Attempt       int

	StatusCode int
	Error      string

	StartedAt  time.Time
	FinishedAt time.Time
}

// RetryConfig tunes the delivery retry state machine.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	BaseDelay time.Duration
	MaxDelay  time.Duration

	// BackoffMultiplier grows the delay between consecutive retries.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the standard tuning: up to 6 total attempts,
// delays of 1s, 2s, 4s, ... capped at 60s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        5,
		BaseDelay:         time.Second,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2,
	}
}
