// Package core runs the process lifecycle: validate, start, wait for a
// shutdown signal, stop in reverse order.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultShutdownTimeout bounds the whole stop sequence.
const DefaultShutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of named components.
type App struct {
	logger          *slog.Logger
	components      []component
	shutdownTimeout time.Duration
}

type component struct {
	name    string
	value   any
	started bool
}

// NewApp creates an App that logs under component=core.
func NewApp(logger *slog.Logger) *App {
	return &App{
		logger:          logger.With("component", "core"),
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// SetShutdownTimeout overrides DefaultShutdownTimeout. Non-positive values
// are ignored.
func (a *App) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		a.shutdownTimeout = d
	}
}

// Add registers a component. It takes part in whichever of Validator,
// Starter and Stopper it implements. Components start in the order added.
func (a *App) Add(name string, c any) {
	a.components = append(a.components, component{name: name, value: c})
}

// Validate runs every Validator and joins their errors.
func (a *App) Validate() error {
	var errs []error
	for _, c := range a.components {
		if v, ok := c.value.(Validator); ok {
			if err := v.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Start starts all Starters in order. If one fails, the components already
// started are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.components {
		c := &a.components[i]
		s, ok := c.value.(Starter)
		if !ok {
			c.started = true
			continue
		}
		a.logger.Info("starting component", "component_name", c.name)
		if err := s.Start(); err != nil {
			a.logger.Error("component start failed", "component_name", c.name, "error", err)
			a.Stop()
			return fmt.Errorf("starting %s: %w", c.name, err)
		}
		c.started = true
	}
	a.logger.Info("all components started")
	return nil
}

// Stop stops every started component in reverse order within the shutdown
// timeout. Stop errors are logged, not returned.
func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	for i := len(a.components) - 1; i >= 0; i-- {
		c := &a.components[i]
		if !c.started {
			continue
		}
		c.started = false
		s, ok := c.value.(Stopper)
		if !ok {
			continue
		}
		a.logger.Info("stopping component", "component_name", c.name)
		if err := s.Stop(ctx); err != nil {
			a.logger.Error("component stop error", "component_name", c.name, "error", err)
		}
	}
}

// Run validates and starts all components, then blocks until ctx is
// cancelled or SIGINT/SIGTERM arrives, and stops them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	a.logger.Info("shutdown requested", "cause", context.Cause(ctx))

	a.Stop()
	a.logger.Info("shutdown complete")
	return nil
}
