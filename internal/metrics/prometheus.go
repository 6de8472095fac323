package metrics

import (
	"log"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	deliveryAttemptsTotal *prometheus.CounterVec
	deliveryOutcomesTotal *prometheus.CounterVec
	webhookDuration       prometheus.Histogram
	retryAttemptsTotal    *prometheus.CounterVec
	eventsInFlight        prometheus.Gauge

	bufferSize       prometheus.Gauge
	bufferCapacity   prometheus.Gauge
	bufferSaturation prometheus.Gauge
	emitErrorsTotal  prometheus.Counter

	probesTotal *prometheus.CounterVec
}

// NewPrometheusSink creates a new Prometheus metrics sink. Metrics that fail
// to register keep working locally; only the registration is skipped.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}

	s.deliveryAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allylab_notify_delivery_attempts_total",
		Help: "Total number of webhook delivery attempts.",
	}, []string{"attempt", "status_class"})
	s.deliveryOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allylab_notify_delivery_outcomes_total",
		Help: "Terminal delivery outcomes (success, failed, abandoned).",
	}, []string{"outcome"})
	s.webhookDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "allylab_notify_webhook_duration_seconds",
		Help:    "Duration of individual webhook requests in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})
	s.retryAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allylab_notify_retry_attempts_total",
		Help: "Total number of delivery retries.",
	}, []string{"retryable"})
	s.eventsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "allylab_notify_deliveries_in_flight",
		Help: "Number of deliveries currently in progress.",
	})

	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "allylab_notify_eventbus_buffer_size",
		Help: "Current number of events buffered in the event bus.",
	})
	s.bufferCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "allylab_notify_eventbus_buffer_capacity",
		Help: "Capacity of the event bus buffer.",
	})
	s.bufferSaturation = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "allylab_notify_eventbus_buffer_saturation",
		Help: "Event bus buffer fill ratio (0.0-1.0).",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allylab_notify_eventbus_emit_errors_total",
		Help: "Total number of failed event bus emits.",
	})

	s.probesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allylab_notify_destination_probes_total",
		Help: "Total number of destination health probes.",
	}, []string{"result"})

	s.register(reg, s.deliveryAttemptsTotal, "allylab_notify_delivery_attempts_total")
	s.register(reg, s.deliveryOutcomesTotal, "allylab_notify_delivery_outcomes_total")
	s.register(reg, s.webhookDuration, "allylab_notify_webhook_duration_seconds")
	s.register(reg, s.retryAttemptsTotal, "allylab_notify_retry_attempts_total")
	s.register(reg, s.eventsInFlight, "allylab_notify_deliveries_in_flight")
	s.register(reg, s.bufferSize, "allylab_notify_eventbus_buffer_size")
	s.register(reg, s.bufferCapacity, "allylab_notify_eventbus_buffer_capacity")
	s.register(reg, s.bufferSaturation, "allylab_notify_eventbus_buffer_saturation")
	s.register(reg, s.emitErrorsTotal, "allylab_notify_eventbus_emit_errors_total")
	s.register(reg, s.probesTotal, "allylab_notify_destination_probes_total")

	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

func (s *PrometheusSink) DeliveryAttemptCompleted(attempt int, statusClass string, duration time.Duration) {
	s.deliveryAttemptsTotal.WithLabelValues(strconv.Itoa(attempt), statusClass).Inc()
	s.webhookDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) DeliveryOutcome(outcome string) {
	s.deliveryOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) RetryAttempt(retryable bool) {
	s.retryAttemptsTotal.WithLabelValues(strconv.FormatBool(retryable)).Inc()
}

func (s *PrometheusSink) EventsInFlightIncr() { s.eventsInFlight.Inc() }
func (s *PrometheusSink) EventsInFlightDecr() { s.eventsInFlight.Dec() }

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) BufferCapacitySet(capacity int) {
	s.bufferCapacity.Set(float64(capacity))
}

func (s *PrometheusSink) BufferSaturationUpdate(saturation float64) {
	s.bufferSaturation.Set(saturation)
}

func (s *PrometheusSink) EmitError() { s.emitErrorsTotal.Inc() }

func (s *PrometheusSink) ProbeCompleted(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	s.probesTotal.WithLabelValues(result).Inc()
}
