package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/allylab/notify/internal/dispatcher"
	"github.com/allylab/notify/internal/domain"
)

type fakeTester struct {
	mu      sync.Mutex
	probed  []string
	results map[string]dispatcher.TestResult
}

func (f *fakeTester) TestDestination(ctx context.Context, id string) dispatcher.TestResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, id)
	if res, ok := f.results[id]; ok {
		return res
	}
	return dispatcher.TestResult{Success: true, StatusCode: 200}
}

type fakeStore struct {
	destinations []domain.Destination
}

func (f *fakeStore) List() []domain.Destination { return f.destinations }

type fakeMetrics struct {
	mu        sync.Mutex
	successes int
	failures  int
}

func (f *fakeMetrics) ProbeCompleted(success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if success {
		f.successes++
	} else {
		f.failures++
	}
}

func TestMonitor_Probe_SkipsDisabled(t *testing.T) {
	store := &fakeStore{destinations: []domain.Destination{
		{ID: "a", Enabled: true, Events: []domain.Event{domain.EventScanCompleted}},
		{ID: "b", Enabled: false, Events: []domain.Event{domain.EventScanCompleted}},
		{ID: "c", Enabled: true, Events: []domain.Event{domain.EventScanFailed}},
	}}
	tester := &fakeTester{}

	m := New("*/15 * * * *", store, tester)
	m.Probe()

	tester.mu.Lock()
	defer tester.mu.Unlock()
	if len(tester.probed) != 2 {
		t.Fatalf("probed %v, want exactly the 2 enabled destinations", tester.probed)
	}
	for _, id := range tester.probed {
		if id == "b" {
			t.Error("disabled destination must not be probed")
		}
	}
}

func TestMonitor_Probe_RecordsMetrics(t *testing.T) {
	store := &fakeStore{destinations: []domain.Destination{
		{ID: "ok", Enabled: true},
		{ID: "broken", Enabled: true},
	}}
	tester := &fakeTester{results: map[string]dispatcher.TestResult{
		"broken": {Success: false, StatusCode: 500, Error: "unexpected status 500"},
	}}
	metrics := &fakeMetrics{}

	m := New("*/15 * * * *", store, tester, WithMetrics(metrics), WithProbeTimeout(time.Second))
	m.Probe()

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.successes != 1 || metrics.failures != 1 {
		t.Errorf("successes=%d failures=%d, want 1 and 1", metrics.successes, metrics.failures)
	}
}

func TestMonitor_Start_RejectsBadSchedule(t *testing.T) {
	m := New("not a schedule", &fakeStore{}, &fakeTester{})
	if err := m.Start(); err == nil {
		t.Error("expected an error for an invalid cron expression")
	}
}

func TestMonitor_StartStop(t *testing.T) {
	m := New("*/15 * * * *", &fakeStore{}, &fakeTester{})
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.Stop()
}
