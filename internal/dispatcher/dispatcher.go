// Package dispatcher fans triggered events out to registered destinations
// and drives each delivery through its retry state machine.
package dispatcher

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allylab/notify/internal/domain"
	"github.com/allylab/notify/internal/format"
	"github.com/allylab/notify/internal/metrics"
)

// DestinationStore is the registry surface the dispatcher needs.
type DestinationStore interface {
	Get(id string) (domain.Destination, error)
	List() []domain.Destination
	RecordDeliveryStatus(id string, status domain.DeliveryStatus, at time.Time) error
}

// MetricsSink records dispatcher metrics. All methods must be non-blocking
// and fire-and-forget.
type MetricsSink interface {
	DeliveryAttemptCompleted(attempt int, statusClass string, duration time.Duration)
	DeliveryOutcome(outcome string)
	RetryAttempt(retryable bool)
	EventsInFlightIncr()
	EventsInFlightDecr()
}

// AnalyticsSink records per-destination delivery outcomes. Best-effort: the
// sink handles its own errors and never affects dispatch correctness.
type AnalyticsSink interface {
	Record(ctx context.Context, destinationID string, outcome string, at time.Time)
}

// Breaker skips deliveries to destinations that keep failing.
type Breaker interface {
	Allow(id string) error
	RecordSuccess(id string)
	RecordFailure(id string)
}

// Limiter throttles deliveries per destination.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

type Dispatcher struct {
	store     DestinationStore
	sender    Sender
	metrics   MetricsSink   // optional, nil = disabled
	analytics AnalyticsSink // optional, nil = disabled
	breaker   Breaker       // optional, nil = disabled
	limiter   Limiter       // optional, nil = disabled

	retry        domain.RetryConfig
	timeout      time.Duration
	drainTimeout time.Duration
	sleeper      Sleeper
	now          func() time.Time
}

// DrainTimeout is the default maximum time to wait for buffered events
// during shutdown.
const DrainTimeout = 30 * time.Second

func New(store DestinationStore, sender Sender) *Dispatcher {
	return &Dispatcher{
		store:        store,
		sender:       sender,
		retry:        domain.DefaultRetryConfig(),
		timeout:      DefaultRequestTimeout,
		drainTimeout: DrainTimeout,
		sleeper:      timerSleeper{},
		now:          time.Now,
	}
}

func (d *Dispatcher) WithMetrics(sink MetricsSink) *Dispatcher {
	d.metrics = sink
	return d
}

func (d *Dispatcher) WithAnalytics(sink AnalyticsSink) *Dispatcher {
	d.analytics = sink
	return d
}

func (d *Dispatcher) WithBreaker(b Breaker) *Dispatcher {
	d.breaker = b
	return d
}

func (d *Dispatcher) WithLimiter(l Limiter) *Dispatcher {
	d.limiter = l
	return d
}

func (d *Dispatcher) WithRetryConfig(cfg domain.RetryConfig) *Dispatcher {
	d.retry = cfg
	return d
}

func (d *Dispatcher) WithRequestTimeout(t time.Duration) *Dispatcher {
	d.timeout = t
	return d
}

func (d *Dispatcher) WithDrainTimeout(t time.Duration) *Dispatcher {
	d.drainTimeout = t
	return d
}

// WithSleeper overrides the backoff delay mechanism, for deterministic tests.
func (d *Dispatcher) WithSleeper(s Sleeper) *Dispatcher {
	d.sleeper = s
	return d
}

// WithClock overrides the time source, for deterministic tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Outcome is the terminal result of one destination's delivery.
type Outcome struct {
	DestinationID string
	Status        domain.DeliveryStatus
	Attempts      int
	StatusCode    int
	Error         string
	// AttemptLog records every HTTP call made for this delivery, in order.
	AttemptLog []domain.DeliveryAttempt
	// Skipped is set when the circuit breaker short-circuited the delivery
	// before any HTTP call; the destination's status is left untouched.
	Skipped bool
}

// Dispatch is the join handle for one triggered event's fan-out. Callers
// that need completion (tests, the run loop) call Wait; fire-and-forget
// callers just drop it.
type Dispatch struct {
	wg sync.WaitGroup

	mu       sync.Mutex
	outcomes []Outcome
}

// Wait blocks until every destination's delivery reached a terminal state
// and returns the collected outcomes.
func (dp *Dispatch) Wait() []Outcome {
	dp.wg.Wait()
	dp.mu.Lock()
	defer dp.mu.Unlock()
	out := make([]Outcome, len(dp.outcomes))
	copy(out, dp.outcomes)
	return out
}

func (dp *Dispatch) add(o Outcome) {
	dp.mu.Lock()
	dp.outcomes = append(dp.outcomes, o)
	dp.mu.Unlock()
}

// Trigger fans the event out to every enabled destination subscribed to it.
// Each destination is delivered independently and concurrently; one
// destination's backoff never delays another's. Delivery failures are
// recorded on the destination, not surfaced as errors.
func (d *Dispatcher) Trigger(ctx context.Context, event domain.Event, data domain.EventData) *Dispatch {
	dp := &Dispatch{}

	for _, dest := range d.store.List() {
		if !dest.Enabled || !dest.SubscribedTo(event) {
			continue
		}

		dp.wg.Add(1)
		go func(dest domain.Destination) {
			defer dp.wg.Done()
			if d.metrics != nil {
				d.metrics.EventsInFlightIncr()
				defer d.metrics.EventsInFlightDecr()
			}
			dp.add(d.deliver(ctx, dest, event, data))
		}(dest)
	}

	return dp
}

// deliver runs the retry state machine for one destination to completion:
// Pending -> Attempting -> {Success | Retrying | Exhausted}. Terminal states
// update the destination's lastTriggered/lastStatus exactly once.
func (d *Dispatcher) deliver(ctx context.Context, dest domain.Destination, event domain.Event, data domain.EventData) Outcome {
	if d.breaker != nil {
		if err := d.breaker.Allow(dest.ID); err != nil {
			log.Printf("dispatcher: destination=%s circuit open, skipping", dest.ID)
			if d.metrics != nil {
				d.metrics.DeliveryOutcome("abandoned")
			}
			return Outcome{DestinationID: dest.ID, Skipped: true, Error: err.Error()}
		}
	}

	body, err := format.Payload(dest.Type, event, data, d.now())
	if err != nil {
		log.Printf("dispatcher: destination=%s format: %v", dest.ID, err)
		return d.finalize(ctx, dest, Outcome{
			DestinationID: dest.ID,
			Status:        domain.DeliveryFailed,
			Error:         err.Error(),
		})
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, dest.ID); err != nil {
			return d.finalize(ctx, dest, Outcome{
				DestinationID: dest.ID,
				Status:        domain.DeliveryFailed,
				Error:         err.Error(),
			})
		}
	}

	secret := ""
	if dest.Type == domain.TypeGeneric {
		secret = dest.Secret
	}

	var last Result
	var attemptLog []domain.DeliveryAttempt
	attempts := 0
	maxAttempts := d.retry.MaxRetries + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if d.metrics != nil {
				d.metrics.RetryAttempt(true)
			}
			delay := NextDelay(attempt-1, d.retry)
			log.Printf("dispatcher: destination=%s attempt=%d backoff=%s", dest.ID, attempt+1, delay)
			if err := d.sleeper.Sleep(ctx, delay); err != nil {
				break
			}
		}

		req := Request{
			URL:        dest.URL,
			Body:       body,
			Event:      event,
			DeliveryID: uuid.NewString(),
			Secret:     secret,
			Timeout:    d.timeout,
		}

		startedAt := d.now()
		last = d.sender.Send(ctx, req)
		attempts++

		record := domain.DeliveryAttempt{
			ID:            req.DeliveryID,
			DestinationID: dest.ID,
			Attempt:       attempts,
			StatusCode:    last.StatusCode,
			StartedAt:     startedAt,
			FinishedAt:    d.now(),
		}
		if last.Error != nil {
			record.Error = last.Error.Error()
		}
		attemptLog = append(attemptLog, record)

		if d.metrics != nil {
			d.metrics.DeliveryAttemptCompleted(attempts, metrics.ClassifyStatus(last.StatusCode, last.Error), last.Duration)
		}

		if last.IsSuccess() {
			log.Printf("dispatcher: destination=%s delivered attempt=%d", dest.ID, attempts)
			return d.finalize(ctx, dest, Outcome{
				DestinationID: dest.ID,
				Status:        domain.DeliverySuccess,
				Attempts:      attempts,
				StatusCode:    last.StatusCode,
				AttemptLog:    attemptLog,
			})
		}

		if !last.IsRetryable() {
			log.Printf("dispatcher: destination=%s non-retryable status=%d", dest.ID, last.StatusCode)
			break
		}

		log.Printf("dispatcher: destination=%s attempt=%d failed status=%d err=%v", dest.ID, attempts, last.StatusCode, last.Error)
	}

	out := Outcome{
		DestinationID: dest.ID,
		Status:        domain.DeliveryFailed,
		Attempts:      attempts,
		StatusCode:    last.StatusCode,
		AttemptLog:    attemptLog,
	}
	if last.Error != nil {
		out.Error = last.Error.Error()
	}

	log.Printf("dispatcher: destination=%s failed after %d attempts status=%d err=%v", dest.ID, attempts, last.StatusCode, last.Error)
	return d.finalize(ctx, dest, out)
}

// finalize records the terminal state on the destination and side channels.
func (d *Dispatcher) finalize(ctx context.Context, dest domain.Destination, out Outcome) Outcome {
	now := d.now()

	if err := d.store.RecordDeliveryStatus(dest.ID, out.Status, now); err != nil {
		// Destination may have been deleted mid-delivery; nothing to record.
		log.Printf("dispatcher: destination=%s record status: %v", dest.ID, err)
	}

	if d.breaker != nil {
		if out.Status == domain.DeliverySuccess {
			d.breaker.RecordSuccess(dest.ID)
		} else {
			d.breaker.RecordFailure(dest.ID)
		}
	}

	if d.metrics != nil {
		d.metrics.DeliveryOutcome(string(out.Status))
	}
	if d.analytics != nil {
		d.analytics.Record(ctx, dest.ID, string(out.Status), now)
	}

	return out
}
