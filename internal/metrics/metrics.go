// Package metrics exports pipeline counters to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calpal"

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	commands           *prometheus.CounterVec
	classifications    *prometheus.CounterVec
	fallbacks          *prometheus.CounterVec
	resolutionMisses   prometheus.Counter
	calendarErrors     *prometheus.CounterVec
	calendarDuration   *prometheus.HistogramVec
	completionDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Passing nil uses a fresh registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Messages handled, by parsed action and final status.",
		}, []string{"action", "status"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Intent classifications, by source (llm or keyword).",
		}, []string{"source"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_fallbacks_total",
			Help:      "Keyword fallbacks, by reason the language model result was discarded.",
		}, []string{"reason"}),
		resolutionMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_resolution_misses_total",
			Help:      "Update or delete requests whose title matched no event.",
		}),
		calendarErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_errors_total",
			Help:      "Failed calendar calls, by operation.",
		}, []string{"operation"}),
		calendarDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calendar_call_duration_seconds",
			Help:      "Latency of calendar calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		completionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_completion_duration_seconds",
			Help:      "Latency of language model completions, by provider.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}

	collectors := []prometheus.Collector{
		m.commands, m.classifications, m.fallbacks, m.resolutionMisses,
		m.calendarErrors, m.calendarDuration, m.completionDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordCommand(action, status string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(action, status).Inc()
}

func (m *Metrics) RecordClassification(source string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordResolutionMiss() {
	if m == nil {
		return
	}
	m.resolutionMisses.Inc()
}

// RecordCalendarCall observes a calendar call and counts it as an error when err is set.
func (m *Metrics) RecordCalendarCall(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.calendarDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.calendarErrors.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) RecordCompletion(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.completionDuration.WithLabelValues(provider).Observe(d.Seconds())
}
