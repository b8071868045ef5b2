// Package metrics provides prometheus instrumentation for the orchestration
// pipeline.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Collector holds the orchestration metrics.
type Collector struct {
	advanceTotal    *prometheus.CounterVec
	advanceDuration *prometheus.HistogramVec
	auditDecisions  *prometheus.CounterVec
	reviseRetries   prometheus.Histogram
	storeFailures   *prometheus.CounterVec
	retrievalErrors prometheus.Counter
	hintsEmitted    *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates and registers the collectors on the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use a private
// registry so parallel tests do not collide.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := func(c prometheus.Collector) {
		reg.MustRegister(c)
	}

	col := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	col.advanceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "advance_total",
		Help:      "Total advance calls by outcome",
	}, []string{"outcome"})
	factory(col.advanceTotal)

	col.advanceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "advance_duration_seconds",
		Help:      "Advance call duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	factory(col.advanceDuration)

	col.auditDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_decisions_total",
		Help:      "Director audit decisions by kind",
	}, []string{"decision"})
	factory(col.auditDecisions)

	col.reviseRetries = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "revise_retries",
		Help:      "Regeneration attempts consumed per advance call",
		Buckets:   []float64{0, 1, 2},
	})
	factory(col.reviseRetries)

	col.storeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_failures_total",
		Help:      "Conversation store failures by operation",
	}, []string{"op"})
	factory(col.storeFailures)

	col.retrievalErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrieval_errors_total",
		Help:      "Degraded turns caused by retrieval gateway failures",
	})
	factory(col.retrievalErrors)

	col.hintsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hints_emitted_total",
		Help:      "Coaching hints emitted by severity",
	}, []string{"severity"})
	factory(col.hintsEmitted)

	return col
}

// ObserveAdvance records one completed advance call. Nil-safe.
func (c *Collector) ObserveAdvance(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.advanceTotal.WithLabelValues(outcome).Inc()
	c.advanceDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveAuditDecision records one Director decision. Nil-safe.
func (c *Collector) ObserveAuditDecision(decision string) {
	if c == nil {
		return
	}
	c.auditDecisions.WithLabelValues(decision).Inc()
}

// ObserveReviseRetries records the regeneration attempts consumed. Nil-safe.
func (c *Collector) ObserveReviseRetries(n int) {
	if c == nil {
		return
	}
	c.reviseRetries.Observe(float64(n))
}

// ObserveStoreFailure records a store failure for the given operation. Nil-safe.
func (c *Collector) ObserveStoreFailure(op string) {
	if c == nil {
		return
	}
	c.storeFailures.WithLabelValues(op).Inc()
}

// ObserveRetrievalError records a degraded-context turn. Nil-safe.
func (c *Collector) ObserveRetrievalError() {
	if c == nil {
		return
	}
	c.retrievalErrors.Inc()
}

// ObserveHint records an emitted hint. Nil-safe.
func (c *Collector) ObserveHint(severity string) {
	if c == nil {
		return
	}
	c.hintsEmitted.WithLabelValues(severity).Inc()
}
