// Package telemetry exposes Prometheus collectors for the session engine.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/mohammad-safakhou/floatchat/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Attempt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeBackend   = "backend_error"
	OutcomeMalformed = "malformed"
)

// Metrics holds the engine's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	attempts        *prometheus.CounterVec
	acquisitions    *prometheus.CounterVec
	attemptsPerCall prometheus.Histogram
	backendStatus   *prometheus.GaugeVec
	modeTransitions *prometheus.CounterVec
	complexityScore prometheus.Gauge
	dispatches      *prometheus.CounterVec
}

// NewMetrics registers the collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "floatchat"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisition_attempts_total",
			Help:      "Remote query attempts by outcome.",
		}, []string{"outcome"}),
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Completed acquisitions by resulting backend status.",
		}, []string{"status"}),
		attemptsPerCall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "acquisition_attempts_per_call",
			Help:      "Attempts used by each acquisition.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		backendStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_status",
			Help:      "1 for the current backend status, 0 otherwise.",
		}, []string{"status"}),
		modeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_transitions_total",
			Help:      "Session mode transitions.",
		}, []string{"from", "to", "automatic"}),
		complexityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "complexity_score",
			Help:      "Running complexity score of the session.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_actions_total",
			Help:      "Palette actions dispatched.",
		}, []string{"action"}),
	}
	m.registry.MustRegister(
		m.attempts, m.acquisitions, m.attemptsPerCall, m.backendStatus,
		m.modeTransitions, m.complexityScore, m.dispatches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAcquisition(status models.BackendStatus, attempts int) {
	if m == nil {
		return
	}
	m.acquisitions.WithLabelValues(string(status)).Inc()
	m.attemptsPerCall.Observe(float64(attempts))
	for _, s := range []models.BackendStatus{models.StatusOperational, models.StatusDegraded, models.StatusOffline} {
		v := 0.0
		if s == status {
			v = 1
		}
		m.backendStatus.WithLabelValues(string(s)).Set(v)
	}
}

func (m *Metrics) ObserveModeTransition(from, to string, automatic bool) {
	if m == nil {
		return
	}
	m.modeTransitions.WithLabelValues(from, to, strconv.FormatBool(automatic)).Inc()
}

func (m *Metrics) SetComplexityScore(score int) {
	if m == nil {
		return
	}
	m.complexityScore.Set(float64(score))
}

// ObserveDispatch counts an action. Unrecognised identifiers share one label
// value so arbitrary input cannot grow the series count.
func (m *Metrics) ObserveDispatch(action string, recognized bool) {
	if m == nil {
		return
	}
	if !recognized {
		action = "unknown"
	}
	m.dispatches.WithLabelValues(action).Inc()
}
