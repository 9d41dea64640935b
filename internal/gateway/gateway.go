// Package gateway serves the Telegram webhook endpoint along with health
// and Prometheus routes.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/flemzord/joingate/internal/gateway"

// WebhookHandler processes one raw update body. Its error is logged, never
// returned to the caller.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte) error
}

// Gateway is the HTTP front of joingate. It implements core.Validator,
// core.Starter and core.Stopper.
type Gateway struct {
	config   Config
	handler  WebhookHandler
	logger   *slog.Logger
	observer WebhookObserver
	metrics  http.Handler
	tracer   trace.Tracer

	mu        sync.Mutex
	server    *http.Server
	addr      net.Addr
	startedAt time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// New creates a Gateway that forwards webhook bodies to handler.
func New(cfg Config, handler WebhookHandler, logger *slog.Logger, opts ...Option) *Gateway {
	cfg.defaults()
	g := &Gateway{
		config:    cfg,
		handler:   handler,
		logger:    logger.With("component", "gateway"),
		observer:  noopObserver{},
		tracer:    otel.Tracer(tracerName),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	var errs []error
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		errs = append(errs, fmt.Errorf("gateway: invalid bind address %q", g.config.Bind))
	}
	if !strings.HasPrefix(g.config.WebhookPath, "/") {
		errs = append(errs, fmt.Errorf("gateway: webhook path %q must start with /", g.config.WebhookPath))
	}
	if g.handler == nil {
		errs = append(errs, errors.New("gateway: no webhook handler"))
	}
	return errors.Join(errs...)
}

// Handler returns the routed http.Handler without starting a listener.
func (g *Gateway) Handler() http.Handler {
	return g.buildRouter()
}

// Start implements core.Starter. It binds the listener synchronously and
// serves in the background.
func (g *Gateway) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.server != nil {
		return errors.New("gateway: already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	g.startedAt = time.Now()
	g.addr = ln.Addr()
	g.server = &http.Server{
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	srv := g.server
	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String(), "webhook_path", g.config.WebhookPath)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Addr reports the bound listener address once Start has succeeded.
func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addr
}

// Stop implements core.Stopper. In-flight updates get ShutdownTimeout to
// finish.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	srv := g.server
	g.server = nil
	g.mu.Unlock()

	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return srv.Shutdown(shutdownCtx)
}
