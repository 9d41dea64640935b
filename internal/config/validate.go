package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// tokenPattern matches the Telegram bot token format: <digits>:<alphanum+dash>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// secretPattern matches the characters setWebhook accepts for secret_token.
var secretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

// Validate checks the structural validity of a Config and reports every
// problem at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: %q)", cfg.Version, CurrentVersion))
	}

	errs = append(errs, validateTelegram(cfg.Telegram)...)
	errs = append(errs, validateGateway(cfg.Gateway)...)
	errs = append(errs, validateLog(cfg.Log)...)

	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("config: telemetry.sample_ratio must be within [0, 1], got %v", r))
	}

	return errors.Join(errs...)
}

func validateTelegram(tg TelegramConfig) []error {
	var errs []error

	switch {
	case tg.Token == "":
		errs = append(errs, errors.New("config: telegram.token is required"))
	case !ValidToken(tg.Token):
		errs = append(errs, errors.New("config: telegram.token format invalid (expected <bot_id>:<hash>)"))
	}

	if strings.TrimSpace(tg.AdminID) == "" {
		errs = append(errs, errors.New("config: telegram.admin_id is required"))
	}
	if strings.TrimSpace(tg.RequiredChannel) == "" {
		errs = append(errs, errors.New("config: telegram.required_channel is required"))
	}

	if tg.WebhookSecret != "" && !secretPattern.MatchString(tg.WebhookSecret) {
		errs = append(errs, errors.New("config: telegram.webhook_secret must be 1-256 characters of A-Z, a-z, 0-9, _ and -"))
	}

	if tg.APIURL != "" && !isHTTPURL(tg.APIURL) {
		errs = append(errs, fmt.Errorf("config: telegram.api_url must be a valid http/https URL, got %q", tg.APIURL))
	}
	if tg.JoinURL != "" && !isHTTPURL(tg.JoinURL) {
		errs = append(errs, fmt.Errorf("config: telegram.join_url must be a valid http/https URL, got %q", tg.JoinURL))
	}
	if tg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("config: telegram.timeout must not be negative, got %s", tg.Timeout))
	}

	return errs
}

func validateGateway(gw GatewayConfig) []error {
	var errs []error

	if _, err := net.ResolveTCPAddr("tcp", gw.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: gateway.bind invalid address %q", gw.Bind))
	}
	if !strings.HasPrefix(gw.WebhookPath, "/") {
		errs = append(errs, fmt.Errorf("config: gateway.webhook_path must start with \"/\", got %q", gw.WebhookPath))
	}
	switch gw.WebhookPath {
	case "/health", "/metrics":
		errs = append(errs, fmt.Errorf("config: gateway.webhook_path %q collides with a built-in route", gw.WebhookPath))
	}
	if gw.ReadTimeout < 0 || gw.WriteTimeout < 0 || gw.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("config: gateway timeouts must not be negative"))
	}
	if gw.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("config: gateway.max_body_bytes must not be negative"))
	}

	return errs
}

func validateLog(l LogConfig) []error {
	var errs []error
	if _, err := ParseLevel(l.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format must be \"text\" or \"json\", got %q", l.Format))
	}
	return errs
}

// ValidToken reports whether token has the <bot_id>:<hash> shape.
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
