package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names read by FromEnv.
const (
	EnvBotToken        = "BOT_TOKEN"
	EnvAdminID         = "ADMIN_ID"
	EnvRequiredChannel = "REQUIRED_CHANNEL_ID"
	EnvJoinURL         = "JOIN_URL"
	EnvAPIURL          = "TELEGRAM_API_URL"
	EnvWebhookSecret   = "TELEGRAM_WEBHOOK_SECRET"
	EnvBind            = "JOINGATE_BIND"
	EnvPort            = "PORT"
	EnvWebhookPath     = "JOINGATE_WEBHOOK_PATH"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
	EnvOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure    = "OTEL_EXPORTER_OTLP_INSECURE"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped. With no arguments ".env" is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var present []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: stat %s: %w", p, err)
		}
		present = append(present, p)
	}
	if len(present) == 0 {
		return nil
	}

	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}

// FromEnv builds a Config from environment variables only, for deployments
// without a config file.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Version: CurrentVersion,
		Telegram: TelegramConfig{
			Token:           os.Getenv(EnvBotToken),
			AdminID:         os.Getenv(EnvAdminID),
			RequiredChannel: os.Getenv(EnvRequiredChannel),
			JoinURL:         os.Getenv(EnvJoinURL),
			WebhookSecret:   os.Getenv(EnvWebhookSecret),
			APIURL:          os.Getenv(EnvAPIURL),
		},
		Gateway: GatewayConfig{
			Bind:        os.Getenv(EnvBind),
			WebhookPath: os.Getenv(EnvWebhookPath),
		},
		Log: LogConfig{
			Level:  os.Getenv(EnvLogLevel),
			Format: os.Getenv(EnvLogFormat),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: os.Getenv(EnvOTLPEndpoint),
		},
	}

	if cfg.Gateway.Bind == "" {
		if port := os.Getenv(EnvPort); port != "" {
			cfg.Gateway.Bind = ":" + port
		}
	}

	if v := os.Getenv(EnvOTLPInsecure); v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", EnvOTLPInsecure, err)
		}
		cfg.Telemetry.Insecure = insecure
	}

	cfg.ApplyDefaults()
	return cfg, nil
}
