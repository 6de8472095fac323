// Package circuitbreaker stops hammering destinations that keep failing.
// Each destination gets its own breaker state; a destination that exhausts
// its deliveries repeatedly is skipped until a cooldown elapses, then a
// single half-open probe decides whether to close the circuit again.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

type destState struct {
	state               state
	consecutiveFailures int
	openedAt            time.Time
}

type Breaker struct {
	mu        sync.Mutex
	states    map[string]*destState
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

type Option func(*Breaker)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

func New(threshold int, cooldown time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		states:    make(map[string]*destState),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a delivery to the destination may proceed. An open
// circuit past its cooldown transitions to half-open and admits exactly one
// probe.
func (b *Breaker) Allow(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[id]
	if !ok {
		return nil
	}

	switch s.state {
	case stateOpen:
		if b.now().Sub(s.openedAt) >= b.cooldown {
			s.state = stateHalfOpen
			return nil
		}
		return ErrCircuitOpen
	case stateHalfOpen:
		return ErrCircuitOpen
	default:
		return nil
	}
}

// RecordSuccess closes the circuit.
func (b *Breaker) RecordSuccess(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[id]
	if !ok {
		return
	}
	s.state = stateClosed
	s.consecutiveFailures = 0
}

// RecordFailure counts a terminal delivery failure; at the threshold the
// circuit opens.
func (b *Breaker) RecordFailure(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[id]
	if !ok {
		s = &destState{}
		b.states[id] = s
	}

	s.consecutiveFailures++
	if s.consecutiveFailures >= b.threshold {
		s.state = stateOpen
		s.openedAt = b.now()
	}
}

// Forget drops the breaker state for a deleted destination.
func (b *Breaker) Forget(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, id)
}
