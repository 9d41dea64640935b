package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", g.handleHealth())
	if g.metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.metrics)
	}

	// Every method is accepted so that nothing but 200 ever reaches Telegram.
	r.HandleFunc(g.config.WebhookPath, g.handleWebhook)

	return r
}
