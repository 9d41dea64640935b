package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/flemzord/joingate/internal/config"
	"github.com/flemzord/joingate/internal/core"
	"github.com/flemzord/joingate/internal/dispatch"
	"github.com/flemzord/joingate/internal/gate"
	"github.com/flemzord/joingate/internal/gateway"
	"github.com/flemzord/joingate/internal/metrics"
	"github.com/flemzord/joingate/internal/security"
	"github.com/flemzord/joingate/internal/telegram"
	"github.com/flemzord/joingate/internal/telemetry"
	"gopkg.in/yaml.v3"
)

// BuildOptions carries process-level settings that are not part of the
// configuration file.
type BuildOptions struct {
	Version   string
	LogOutput io.Writer
}

// Service is the assembled process. Nothing is listening until App.Start
// or App.Run is called.
type Service struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Client     *telegram.Client
	Gate       *gate.Gate
	Dispatcher *dispatch.Dispatcher
	Gateway    *gateway.Gateway
	App        *core.App
}

// shutdownComponent adapts a telemetry.ShutdownFunc to core.Stopper.
type shutdownComponent telemetry.ShutdownFunc

func (f shutdownComponent) Stop(ctx context.Context) error { return f(ctx) }

// Build wires every component from a validated configuration.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Service, error) {
	logOutput := opts.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}

	logger, err := NewLogger(cfg, logOutput)
	if err != nil {
		return nil, err
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: opts.Version,
	})
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	client := NewClient(cfg, telegram.WithObserver(m))

	g := gate.New(client, gate.Config{
		ChannelID: cfg.Telegram.RequiredChannel,
		JoinURL:   cfg.Telegram.JoinURL,
		Messages:  gateMessages(cfg.Messages),
	})
	if cfg.Telegram.JoinURL == "" && !gate.HasPublicHandle(cfg.Telegram.RequiredChannel) {
		logger.Warn("required channel has no @username; join button will have an empty link, set telegram.join_url",
			"channel", cfg.Telegram.RequiredChannel)
	}

	d := dispatch.New(g, client, logger, dispatch.WithRecorder(m))

	gw := gateway.New(gateway.Config{
		Bind:            cfg.Gateway.Bind,
		WebhookPath:     cfg.Gateway.WebhookPath,
		SecretToken:     cfg.Telegram.WebhookSecret,
		MaxBodyBytes:    cfg.Gateway.MaxBodyBytes,
		ReadTimeout:     cfg.Gateway.ReadTimeout,
		WriteTimeout:    cfg.Gateway.WriteTimeout,
		ShutdownTimeout: cfg.Gateway.ShutdownTimeout,
	}, d, logger, gateway.WithMetrics(m))

	application := core.NewApp(logger)
	application.Add("telemetry", shutdownComponent(shutdownTracing))
	application.Add("gateway", gw)

	return &Service{
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		Client:     client,
		Gate:       g,
		Dispatcher: d,
		Gateway:    gw,
		App:        application,
	}, nil
}

// NewLogger builds the redacting process logger. The bot token and webhook
// secret are registered as literals so they never appear in output.
func NewLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	redactor := security.NewRedactor()
	redactor.AddLiteral(cfg.Telegram.Token)
	redactor.AddLiteral(cfg.Telegram.WebhookSecret)

	return security.NewLogger(w, level, cfg.Log.Format, redactor), nil
}

// NewClient builds a Bot API client from the telegram section.
func NewClient(cfg *config.Config, opts ...telegram.Option) *telegram.Client {
	opts = append([]telegram.Option{telegram.WithTimeout(cfg.Telegram.Timeout)}, opts...)
	return telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIURL, opts...)
}

// RedactedConfig renders cfg as a YAML-ready map with secrets replaced.
func RedactedConfig(cfg *config.Config) (map[string]any, error) {
	raw, err := config.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("app: re-reading config: %w", err)
	}

	redactor := security.NewRedactor()
	redactor.AddLiteral(cfg.Telegram.Token)
	redactor.AddLiteral(cfg.Telegram.WebhookSecret)
	redactor.RedactMap(m)
	return m, nil
}

func gateMessages(m config.MessagesConfig) gate.Messages {
	return gate.Messages{
		Welcome:       m.Welcome,
		JoinPrompt:    m.JoinPrompt,
		JoinButton:    m.JoinButton,
		RecheckButton: m.RecheckButton,
		Apology:       m.Apology,
	}
}
