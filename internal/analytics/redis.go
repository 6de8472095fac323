// Package analytics records per-destination delivery outcomes in Redis as
// time-bucketed counters. Best-effort: a Redis outage never affects
// delivery.
package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRetention is how long outcome counters are kept.
const DefaultRetention = 7 * 24 * time.Hour

type RedisSink struct {
	client    *redis.Client
	retention time.Duration
}

type Option func(*RedisSink)

func WithRetention(d time.Duration) Option {
	return func(s *RedisSink) { s.retention = d }
}

func NewRedisSink(client *redis.Client, opts ...Option) *RedisSink {
	s := &RedisSink{client: client, retention: DefaultRetention}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record increments the hourly outcome counter for the destination. Errors
// are logged, not propagated; the dispatcher treats analytics as
// fire-and-forget.
func (s *RedisSink) Record(ctx context.Context, destinationID string, outcome string, at time.Time) {
	key := buildKey(destinationID, outcome, at)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("analytics: record %s: %v", key, err)
	}
}

func buildKey(destinationID, outcome string, at time.Time) string {
	return fmt.Sprintf("dest:%s:%s:%s", destinationID, outcome, at.UTC().Format("2006010215"))
}
