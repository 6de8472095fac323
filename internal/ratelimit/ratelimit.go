// Package ratelimit throttles webhook deliveries per destination so a chatty
// scan pipeline cannot flood a single receiver.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// PerKey hands out one token-bucket limiter per key. All limiters share the
// same rate and burst; keys are independent.
type PerKey struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewPerKey(perSecond float64, burst int) *PerKey {
	if burst < 1 {
		burst = 1
	}
	return &PerKey{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (p *PerKey) limiter(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[key] = l
	}
	return l
}

// Wait blocks until the key's limiter grants a token or the context ends.
func (p *PerKey) Wait(ctx context.Context, key string) error {
	return p.limiter(key).Wait(ctx)
}

// Forget drops the limiter for a deleted key.
func (p *PerKey) Forget(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.limiters, key)
}
