// Package metrics exposes joingate's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "joingate"

// Metrics holds the collectors. It implements telegram.Observer and
// dispatch.Recorder. All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	updates         *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	apiRequests     *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	webhookDuration prometheus.Histogram
}

// New creates a Metrics instance on its own registry, including the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates received, by kind.",
		}, []string{"kind"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Update handling outcomes.",
		}, []string{"outcome"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_requests_total",
			Help:      "Bot API requests, by method and result.",
		}, []string{"method", "result"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telegram_request_duration_seconds",
			Help:      "Bot API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		webhookDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Time spent handling one webhook request.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.updates,
		m.outcomes,
		m.apiRequests,
		m.apiDuration,
		m.webhookDuration,
	)
	return m
}

// RecordUpdate counts one received update.
func (m *Metrics) RecordUpdate(kind string) {
	m.updates.WithLabelValues(kind).Inc()
}

// RecordOutcome counts one handled update.
func (m *Metrics) RecordOutcome(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one Bot API call.
func (m *Metrics) ObserveRequest(method string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.apiRequests.WithLabelValues(method, result).Inc()
	m.apiDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveWebhook records the handling time of one webhook request.
func (m *Metrics) ObserveWebhook(elapsed time.Duration) {
	m.webhookDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
