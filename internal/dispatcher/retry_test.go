package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/allylab/notify/internal/domain"
)

func TestNextDelay_WithinJitterBounds(t *testing.T) {
	cfg := domain.DefaultRetryConfig()

	for retryIndex := 0; retryIndex < 10; retryIndex++ {
		base := 1000.0
		for i := 0; i < retryIndex; i++ {
			base *= 2
		}
		if base > 60000 {
			base = 60000
		}
		lo := time.Duration(0.9 * base * float64(time.Millisecond))
		hi := time.Duration(1.1 * base * float64(time.Millisecond))

		// Jitter is random; sample repeatedly.
		for i := 0; i < 100; i++ {
			got := NextDelay(retryIndex, cfg)
			if got < lo || got > hi {
				t.Fatalf("NextDelay(%d) = %s, want within [%s, %s]", retryIndex, got, lo, hi)
			}
		}
	}
}

func TestNextDelay_CapsAtMaxDelay(t *testing.T) {
	cfg := domain.DefaultRetryConfig()

	// 1000 * 2^10 = ~17 minutes uncapped; must be held at 60s ±10%.
	capf := float64(60 * time.Second)
	got := NextDelay(10, cfg)
	if got > time.Duration(1.1*capf) {
		t.Errorf("NextDelay(10) = %s, want <= 66s", got)
	}
	if got < time.Duration(0.9*capf) {
		t.Errorf("NextDelay(10) = %s, want >= 54s", got)
	}
}

func TestResult_Classification(t *testing.T) {
	tests := []struct {
		name      string
		result    Result
		success   bool
		retryable bool
	}{
		{"ok", Result{StatusCode: 200}, true, false},
		{"no content", Result{StatusCode: 204}, true, false},
		{"rate limited", Result{StatusCode: 429}, false, true},
		{"server error", Result{StatusCode: 500}, false, true},
		{"bad gateway", Result{StatusCode: 503}, false, true},
		{"bad request", Result{StatusCode: 400}, false, false},
		{"not found", Result{StatusCode: 404}, false, false},
		{"unauthorized", Result{StatusCode: 401}, false, false},
		{"transport error", Result{Error: context.DeadlineExceeded}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
			if got := tt.result.IsRetryable(); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestTimerSleeper_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var s timerSleeper
	if err := s.Sleep(ctx, time.Minute); err != context.Canceled {
		t.Errorf("Sleep on cancelled context = %v, want context.Canceled", err)
	}
}
