package circuitbreaker

import (
	"testing"
	"time"

	"github.com/allylab/notify/internal/testutil"
)

func TestAllow_UnknownDestination_Allowed(t *testing.T) {
	b := New(3, 5*time.Second)
	if err := b.Allow("dest-1"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAllow_BelowThreshold_Allowed(t *testing.T) {
	b := New(3, 5*time.Second)
	b.RecordFailure("dest-1")
	b.RecordFailure("dest-1")
	if err := b.Allow("dest-1"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAllow_AtThreshold_Open(t *testing.T) {
	b := New(3, 5*time.Second)
	for i := 0; i < 3; i++ {
		b.RecordFailure("dest-1")
	}
	if err := b.Allow("dest-1"); err == nil {
		t.Fatal("expected ErrCircuitOpen, got nil")
	}
}

func TestAllow_OpenAfterCooldown_HalfOpen(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	b := New(3, 10*time.Second, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		b.RecordFailure("dest-1")
	}
	clock.Advance(11 * time.Second)

	if err := b.Allow("dest-1"); err != nil {
		t.Fatalf("expected nil (probe allowed), got %v", err)
	}
	if err := b.Allow("dest-1"); err == nil {
		t.Fatal("expected ErrCircuitOpen while half-open probe in flight")
	}
}

func TestRecordSuccess_ClosesCircuit(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	b := New(3, 10*time.Second, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		b.RecordFailure("dest-1")
	}
	clock.Advance(11 * time.Second)
	b.Allow("dest-1")
	b.RecordSuccess("dest-1")

	if err := b.Allow("dest-1"); err != nil {
		t.Fatalf("expected nil after close, got %v", err)
	}
}

func TestRecordFailure_HalfOpenReOpens(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	b := New(3, 10*time.Second, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		b.RecordFailure("dest-1")
	}
	clock.Advance(11 * time.Second)
	b.Allow("dest-1")
	b.RecordFailure("dest-1")

	if err := b.Allow("dest-1"); err == nil {
		t.Fatal("expected ErrCircuitOpen after probe failure re-open")
	}
}

func TestIndependentDestinations(t *testing.T) {
	b := New(2, 5*time.Second)
	b.RecordFailure("dest-1")
	b.RecordFailure("dest-1")

	if err := b.Allow("dest-1"); err == nil {
		t.Fatal("expected dest-1 open")
	}
	if err := b.Allow("dest-2"); err != nil {
		t.Fatalf("expected dest-2 allowed, got %v", err)
	}
}

func TestForget_ClearsState(t *testing.T) {
	b := New(1, 5*time.Second)
	b.RecordFailure("dest-1")
	if err := b.Allow("dest-1"); err == nil {
		t.Fatal("expected dest-1 open")
	}

	b.Forget("dest-1")
	if err := b.Allow("dest-1"); err != nil {
		t.Fatalf("expected nil after Forget, got %v", err)
	}
}
