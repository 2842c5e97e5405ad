package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the process-wide observable state for the booking engine.
// It is injected into the services rather than accessed as package globals,
// so tests can pass a Noop and servers can own the registry lifecycle.
type Collector interface {
	IncAdmission(outcome string)
	IncCancellation(result string)
	IncPromotionNotified(n int)
	IncLockAcquire(result string)
	ObserveAdmissionDuration(seconds float64)
}

// Admission outcomes and lock results used as label values.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeRejected   = "rejected"
	OutcomeWaitlisted = "waitlisted"
	OutcomeBusy       = "busy"
	OutcomeError      = "error"
	LockAcquired      = "acquired"
	LockBusy          = "busy"
	ResultOK          = "ok"
	ResultInvalid     = "invalid"
)

// PrometheusCollector implements Collector on a caller-owned registry.
type PrometheusCollector struct {
	admissions        *prometheus.CounterVec
	cancellations     *prometheus.CounterVec
	promotionNotified prometheus.Counter
	lockAcquires      *prometheus.CounterVec
	admissionDuration prometheus.Histogram
}

// NewPrometheusCollector creates and registers the engine metrics on reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ticketly",
				Name:      "admissions_total",
				Help:      "Admission attempts by outcome.",
			},
			[]string{"outcome"},
		),
		cancellations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ticketly",
				Name:      "cancellations_total",
				Help:      "Cancellation attempts by result.",
			},
			[]string{"result"},
		),
		promotionNotified: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ticketly",
				Name:      "waitlist_promotions_notified_total",
				Help:      "Waitlist entries notified by promotion scans.",
			},
		),
		lockAcquires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ticketly",
				Name:      "lock_acquires_total",
				Help:      "Distributed lock acquisition attempts by result.",
			},
			[]string{"result"},
		),
		admissionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "ticketly",
				Name:      "admission_duration_seconds",
				Help:      "Wall time of admission attempts.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(
		c.admissions,
		c.cancellations,
		c.promotionNotified,
		c.lockAcquires,
		c.admissionDuration,
	)

	return c
}

func (c *PrometheusCollector) IncAdmission(outcome string) {
	c.admissions.WithLabelValues(outcome).Inc()
}

func (c *PrometheusCollector) IncCancellation(result string) {
	c.cancellations.WithLabelValues(result).Inc()
}

func (c *PrometheusCollector) IncPromotionNotified(n int) {
	c.promotionNotified.Add(float64(n))
}

func (c *PrometheusCollector) IncLockAcquire(result string) {
	c.lockAcquires.WithLabelValues(result).Inc()
}

func (c *PrometheusCollector) ObserveAdmissionDuration(seconds float64) {
	c.admissionDuration.Observe(seconds)
}

// Reset zeroes all counters. Intended for test and restart lifecycles.
func (c *PrometheusCollector) Reset() {
	c.admissions.Reset()
	c.cancellations.Reset()
	c.lockAcquires.Reset()
}

// Noop is a Collector that records nothing.
type Noop struct{}

func (Noop) IncAdmission(string)              {}
func (Noop) IncCancellation(string)           {}
func (Noop) IncPromotionNotified(int)         {}
func (Noop) IncLockAcquire(string)            {}
func (Noop) ObserveAdmissionDuration(float64) {}
