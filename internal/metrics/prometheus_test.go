package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusSink_RecordsWithoutPanic(t *testing.T) {
	sink := NewPrometheusSink(prometheus.NewRegistry())

	sink.DeliveryAttemptCompleted(1, StatusClass2xx, 25*time.Millisecond)
	sink.DeliveryAttemptCompleted(3, StatusClass5xx, 2*time.Second)
	sink.DeliveryOutcome(OutcomeSuccess)
	sink.DeliveryOutcome(OutcomeFailed)
	sink.RetryAttempt(true)
	sink.EventsInFlightIncr()
	sink.EventsInFlightDecr()
	sink.BufferCapacitySet(100)
	sink.BufferSizeUpdate(5)
	sink.BufferSaturationUpdate(0.05)
	sink.EmitError()
	sink.ProbeCompleted(true)
	sink.ProbeCompleted(false)
}

func TestPrometheusSink_DoubleRegistrationDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusSink(reg)
	// Second sink against the same registry logs registration failures but
	// must stay usable.
	sink := NewPrometheusSink(reg)
	sink.DeliveryOutcome(OutcomeSuccess)
}

func TestPrometheusSink_NilRegisterer(t *testing.T) {
	sink := NewPrometheusSink(nil)
	sink.DeliveryOutcome(OutcomeSuccess)
}
