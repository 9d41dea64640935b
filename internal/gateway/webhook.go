package gateway

import (
	"crypto/subtle"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// SecretTokenHeader carries the secret_token registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// ackBody is the only response the webhook endpoint ever produces. Any
// other status makes Telegram redeliver the update.
const ackBody = "OK"

func (g *Gateway) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("webhook handler panicked", "panic", rec)
		}
		g.observer.ObserveWebhook(time.Since(start))
		acknowledge(w)
	}()

	if r.Method != http.MethodPost {
		g.logger.Debug("webhook: ignoring non-POST request", "method", r.Method)
		return
	}

	if !validSecret(r.Header.Get(SecretTokenHeader), g.config.SecretToken) {
		g.logger.Warn("webhook: secret token mismatch, update dropped", "remote", r.RemoteAddr)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.config.MaxBodyBytes))
	if err != nil {
		g.logger.Warn("webhook: failed to read body", "error", err)
		return
	}

	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := g.tracer.Start(ctx, "gateway.webhook",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.Int("http.request.body.size", len(body))),
	)
	defer span.End()

	if err := g.handler.HandleWebhook(ctx, body); err != nil {
		span.RecordError(err)
		g.logger.Warn("webhook: update rejected", "error", err)
	}
}

func acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ackBody)
}

// validSecret compares in constant time. An empty expected secret disables
// the check.
func validSecret(got, want string) bool {
	if want == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
