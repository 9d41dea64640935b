// Package dispatch routes incoming Telegram updates through the membership
// gate and delivers the reply.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/joingate/internal/gate"
	"github.com/flemzord/joingate/internal/idgen"
	"github.com/flemzord/joingate/internal/telegram"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/flemzord/joingate/internal/dispatch"

// Outcome names what happened to one update.
type Outcome string

// Possible outcomes.
const (
	OutcomeAdmitted          Outcome = "admitted"
	OutcomePrompted          Outcome = "prompted"
	OutcomeApologized        Outcome = "apologized"
	OutcomeIgnored           Outcome = "ignored"
	OutcomeMalformed         Outcome = "malformed"
	OutcomeUnhandledCallback Outcome = "unhandled_callback"
	OutcomeSendFailed        Outcome = "send_failed"
	OutcomeInternalError     Outcome = "internal_error"
)

// Evaluator is the membership gate.
type Evaluator interface {
	Evaluate(ctx context.Context, userID, chatID int64) (gate.Decision, error)
	Apology(chatID int64) telegram.SendMessageRequest
}

// Sender delivers replies.
type Sender interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
}

// Recorder counts updates and outcomes.
type Recorder interface {
	RecordUpdate(kind string)
	RecordOutcome(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordUpdate(string)  {}
func (noopRecorder) RecordOutcome(string) {}

// Dispatcher handles one update per call and keeps no state between calls.
type Dispatcher struct {
	gate     Evaluator
	sender   Sender
	recorder Recorder
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// New creates a Dispatcher.
func New(g Evaluator, s Sender, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		gate:     g,
		sender:   s,
		recorder: noopRecorder{},
		logger:   logger.With("component", "dispatch"),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleWebhook parses body and handles the update. The only error returned
// is ErrMalformedUpdate; every other failure is absorbed.
func (d *Dispatcher) HandleWebhook(ctx context.Context, body []byte) error {
	u, err := ParseUpdate(body)
	if err != nil {
		d.recorder.RecordUpdate(KindUnknown.String())
		d.recorder.RecordOutcome(string(OutcomeMalformed))
		d.logger.Debug("malformed update acknowledged", "error", err)
		return err
	}
	d.Handle(ctx, u)
	return nil
}

// Handle runs one update through the gate and returns its outcome.
func (d *Dispatcher) Handle(ctx context.Context, u Update) (outcome Outcome) {
	ref, err := idgen.Generate()
	if err != nil {
		ref = "-"
	}
	logger := d.logger.With("update_ref", ref, "update_id", u.ID, "kind", u.Kind.String())

	ctx, span := d.tracer.Start(ctx, "dispatch.Handle", trace.WithAttributes(
		attribute.String("joingate.update_ref", ref),
		attribute.Int("telegram.update_id", u.ID),
		attribute.String("telegram.update_kind", u.Kind.String()),
	))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("update handling panicked", "panic", fmt.Sprint(r))
			outcome = OutcomeInternalError
		}
		span.SetAttributes(attribute.String("joingate.outcome", string(outcome)))
		span.End()
		d.recorder.RecordOutcome(string(outcome))
		logger.Debug("update handled", "outcome", string(outcome))
	}()

	d.recorder.RecordUpdate(u.Kind.String())

	switch u.Kind {
	case KindMessage:
		return d.handleMessage(ctx, logger, u.Message.ChatID, u.Message.UserID)
	case KindCallback:
		return d.handleCallback(ctx, logger, u.Callback)
	default:
		return OutcomeIgnored
	}
}

// handleMessage evaluates the sender and delivers exactly one reply.
func (d *Dispatcher) handleMessage(ctx context.Context, logger *slog.Logger, chatID, userID int64) Outcome {
	logger = logger.With("chat_id", chatID, "user_id", userID)

	decision, err := d.gate.Evaluate(ctx, userID, chatID)
	if err != nil {
		logger.Error("membership check failed", "error", err)
		return d.apologize(ctx, logger, chatID)
	}

	if _, err := d.sender.SendMessage(ctx, decision.Message); err != nil {
		logger.Error("reply delivery failed", "error", err, "admitted", decision.Admitted)
		return d.apologize(ctx, logger, chatID)
	}

	if decision.Admitted {
		logger.Info("user admitted", "status", string(decision.Status))
		return OutcomeAdmitted
	}
	logger.Info("user prompted to join", "status", string(decision.Status))
	return OutcomePrompted
}

// handleCallback reruns the message flow for the recheck button. The rerun
// is a direct call, so a callback can trigger at most one evaluation.
func (d *Dispatcher) handleCallback(ctx context.Context, logger *slog.Logger, cb *CallbackEvent) Outcome {
	if cb.Data != gate.RecheckToken {
		logger.Debug("unhandled callback", "data", cb.Data)
		return OutcomeUnhandledCallback
	}
	if !cb.HasChat {
		logger.Warn("recheck callback without chat, ignoring", "user_id", cb.UserID)
		return OutcomeMalformed
	}
	logger.Debug("recheck requested", "user_id", cb.UserID)
	return d.handleMessage(ctx, logger, cb.ChatID, cb.UserID)
}

// apologize sends the fallback text, best effort.
func (d *Dispatcher) apologize(ctx context.Context, logger *slog.Logger, chatID int64) Outcome {
	if _, err := d.sender.SendMessage(ctx, d.gate.Apology(chatID)); err != nil {
		logger.Error("apology delivery failed", "error", err)
		return OutcomeSendFailed
	}
	return OutcomeApologized
}

// IsMalformed reports whether err came from a body that could not be parsed.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedUpdate)
}
