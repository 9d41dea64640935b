// Package config handles YAML configuration loading, environment variable
// expansion, and validation for joingate.
package config

import "time"

// CurrentVersion is the only supported config format version.
const CurrentVersion = "1"

// Config is the top-level configuration structure. It is read once at
// startup and never mutated afterwards.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Telegram  TelegramConfig  `yaml:"telegram"`
	Messages  MessagesConfig  `yaml:"messages,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// TelegramConfig holds the bot credentials and the gated channel.
type TelegramConfig struct {
	Token string `yaml:"token"`

	// AdminID identifies the bot administrator. Required, not used by the
	// gate itself.
	AdminID string `yaml:"admin_id"`

	// RequiredChannel is "@username" for public channels or a numeric id.
	RequiredChannel string `yaml:"required_channel"`

	// JoinURL replaces the t.me link derived from RequiredChannel.
	JoinURL string `yaml:"join_url,omitempty"`

	// WebhookSecret is sent to setWebhook as secret_token and required on
	// every inbound update when set.
	WebhookSecret string `yaml:"webhook_secret,omitempty"`

	APIURL  string        `yaml:"api_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// MessagesConfig overrides reply texts. Empty fields keep the built-in text.
type MessagesConfig struct {
	Welcome       string `yaml:"welcome,omitempty"`
	JoinPrompt    string `yaml:"join_prompt,omitempty"`
	JoinButton    string `yaml:"join_button,omitempty"`
	RecheckButton string `yaml:"recheck_button,omitempty"`
	Apology       string `yaml:"apology,omitempty"`
}

// GatewayConfig holds HTTP server configuration.
type GatewayConfig struct {
	Bind            string        `yaml:"bind"`
	WebhookPath     string        `yaml:"webhook_path"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes,omitempty"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint,omitempty"`
	Insecure     bool    `yaml:"insecure,omitempty"`
	SampleRatio  float64 `yaml:"sample_ratio,omitempty"`
	ServiceName  string  `yaml:"service_name,omitempty"`
}

// ApplyDefaults fills zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Telegram.Timeout <= 0 {
		c.Telegram.Timeout = 15 * time.Second
	}
	if c.Gateway.Bind == "" {
		c.Gateway.Bind = "127.0.0.1:8080"
	}
	if c.Gateway.WebhookPath == "" {
		c.Gateway.WebhookPath = "/webhook"
	}
	if c.Gateway.MaxBodyBytes <= 0 {
		c.Gateway.MaxBodyBytes = 1 << 20
	}
	if c.Gateway.ReadTimeout <= 0 {
		c.Gateway.ReadTimeout = 10 * time.Second
	}
	if c.Gateway.WriteTimeout <= 0 {
		c.Gateway.WriteTimeout = 30 * time.Second
	}
	if c.Gateway.ShutdownTimeout <= 0 {
		c.Gateway.ShutdownTimeout = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "joingate"
	}
	if c.Telemetry.SampleRatio <= 0 {
		c.Telemetry.SampleRatio = 1
	}
}
