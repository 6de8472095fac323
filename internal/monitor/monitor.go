// Package monitor periodically probes enabled destinations with a
// single-shot test delivery, so broken endpoints surface before a real
// event needs them.
package monitor

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/allylab/notify/internal/dispatcher"
	"github.com/allylab/notify/internal/domain"
)

// Tester runs the single-shot diagnostic delivery.
type Tester interface {
	TestDestination(ctx context.Context, id string) dispatcher.TestResult
}

// Store lists the registered destinations.
type Store interface {
	List() []domain.Destination
}

// MetricsSink records probe outcomes. nil = disabled.
type MetricsSink interface {
	ProbeCompleted(success bool)
}

// DefaultProbeTimeout bounds one full probe sweep.
const DefaultProbeTimeout = 2 * time.Minute

type Monitor struct {
	schedule string
	store    Store
	tester   Tester
	metrics  MetricsSink
	timeout  time.Duration
	cron     *cron.Cron
}

type Option func(*Monitor)

func WithMetrics(sink MetricsSink) Option {
	return func(m *Monitor) { m.metrics = sink }
}

func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.timeout = d }
}

// New creates a monitor that probes on the given cron schedule
// (standard five-field expression, e.g. "*/15 * * * *").
func New(schedule string, store Store, tester Tester, opts ...Option) *Monitor {
	m := &Monitor{
		schedule: schedule,
		store:    store,
		tester:   tester,
		timeout:  DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start schedules the probe. Returns an error for an unparseable schedule.
func (m *Monitor) Start() error {
	m.cron = cron.New()
	if _, err := m.cron.AddFunc(m.schedule, m.Probe); err != nil {
		return err
	}
	m.cron.Start()
	log.Printf("monitor: destination probing scheduled (%s)", m.schedule)
	return nil
}

// Stop halts the schedule and waits for a running probe to finish.
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

// Probe tests every enabled destination once. Exported so a sweep can also
// be invoked on demand.
func (m *Monitor) Probe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	for _, dest := range m.store.List() {
		if !dest.Enabled {
			continue
		}

		result := m.tester.TestDestination(ctx, dest.ID)
		if m.metrics != nil {
			m.metrics.ProbeCompleted(result.Success)
		}
		if !result.Success {
			log.Printf("monitor: destination=%s name=%q probe failed status=%d err=%s",
				dest.ID, dest.Name, result.StatusCode, result.Error)
		}
	}
}
