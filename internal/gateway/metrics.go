package gateway

import (
	"net/http"
	"time"
)

// WebhookObserver receives the wall time of each webhook request.
type WebhookObserver interface {
	ObserveWebhook(elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveWebhook(time.Duration) {}

// MetricsSource is what the gateway needs from the metrics package: an
// observer for webhook latency and a scrape handler.
type MetricsSource interface {
	WebhookObserver
	Handler() http.Handler
}

// WithMetrics records webhook latency on m and serves m at GET /metrics.
func WithMetrics(m MetricsSource) Option {
	return func(g *Gateway) {
		g.observer = m
		g.metrics = m.Handler()
	}
}
