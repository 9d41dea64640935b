package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flemzord/joingate/internal/config"
	"github.com/flemzord/joingate/internal/telegram/telegramtest"
	"github.com/kardianos/service"
)

const testToken = "123456:cli-test-token" //nolint:gosec // not a real token

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T, apiURL, extra string) string {
	t.Helper()
	content := `version: "1"
telegram:
  token: "` + testToken + `"
  admin_id: "1"
  required_channel: "@mychannel"
  api_url: "` + apiURL + `"
` + extra
	path := filepath.Join(t.TempDir(), "joingate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "joingate dev") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigCheck(t *testing.T) {
	path := writeTestConfig(t, "https://api.telegram.org", "")

	out, err := execute(t, "config", "check", path)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK") {
		t.Errorf("missing OK line: %q", out)
	}
	if strings.Contains(out, testToken) {
		t.Errorf("token leaked: %q", out)
	}
	if !strings.Contains(out, "@mychannel") {
		t.Errorf("channel missing: %q", out)
	}
}

func TestConfigCheck_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("version: \"1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "config", "check", path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestWebhookCommands(t *testing.T) {
	api := telegramtest.NewFakeAPI(nil)
	srv := telegramtest.NewServer(t, testToken, api)
	path := writeTestConfig(t, srv.URL, "  webhook_secret: hook_secret\n")

	out, err := execute(t, "webhook", "set", "https://bot.example.com/webhook", "-c", path, "--drop-pending")
	if err != nil {
		t.Fatalf("webhook set: %v", err)
	}
	if !strings.Contains(out, "Webhook set to https://bot.example.com/webhook") {
		t.Errorf("set output = %q", out)
	}

	hook := api.Webhook()
	if hook.URL != "https://bot.example.com/webhook" {
		t.Errorf("URL = %q", hook.URL)
	}
	if hook.SecretToken != "hook_secret" {
		t.Errorf("SecretToken = %q, want hook_secret", hook.SecretToken)
	}
	if !hook.DropPendingUpdates {
		t.Error("DropPendingUpdates = false, want true")
	}
	if strings.Join(hook.AllowedUpdates, ",") != "message,callback_query" {
		t.Errorf("AllowedUpdates = %v", hook.AllowedUpdates)
	}

	out, err = execute(t, "webhook", "info", "-c", path)
	if err != nil {
		t.Fatalf("webhook info: %v", err)
	}
	if !strings.Contains(out, "@joingate_test_bot") || !strings.Contains(out, "https://bot.example.com/webhook") {
		t.Errorf("info output = %q", out)
	}

	if _, err := execute(t, "webhook", "delete", "-c", path); err != nil {
		t.Fatalf("webhook delete: %v", err)
	}
	if api.Webhook().URL != "" {
		t.Errorf("webhook still set after delete: %+v", api.Webhook())
	}

	out, err = execute(t, "webhook", "info", "-c", path)
	if err != nil {
		t.Fatalf("webhook info: %v", err)
	}
	if !strings.Contains(out, "not set") {
		t.Errorf("info after delete = %q", out)
	}
}

func TestWebhookSet_APIError(t *testing.T) {
	api := telegramtest.NewFakeAPI(nil)
	srv := telegramtest.NewServer(t, testToken, api)
	path := writeTestConfig(t, srv.URL, "")

	_, err := execute(t, "webhook", "set", "", "-c", path)
	if err == nil {
		t.Fatal("expected API error for empty URL")
	}
	if strings.Contains(err.Error(), testToken) {
		t.Errorf("token leaked in error: %v", err)
	}
}

func TestInitAnswersConfig(t *testing.T) {
	tests := []struct {
		name      string
		answers   initAnswers
		wantToken string
	}{
		{
			name:      "token from environment",
			answers:   initAnswers{UseEnvToken: true, Token: "ignored", AdminID: "1", RequiredChannel: "@c"},
			wantToken: "${BOT_TOKEN}",
		},
		{
			name:      "inline token",
			answers:   initAnswers{Token: " 1:abc ", AdminID: "1", RequiredChannel: "@c"},
			wantToken: "1:abc",
		},
		{
			name:      "empty token falls back to environment",
			answers:   initAnswers{AdminID: "1", RequiredChannel: "@c"},
			wantToken: "${BOT_TOKEN}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.answers.config()
			if cfg.Telegram.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", cfg.Telegram.Token, tt.wantToken)
			}
			if cfg.Version != config.CurrentVersion || cfg.Gateway.WebhookPath == "" {
				t.Errorf("defaults not applied: %+v", cfg)
			}
		})
	}
}

func TestWriteConfigFile(t *testing.T) {
	t.Setenv(config.EnvBotToken, testToken)
	path := filepath.Join(t.TempDir(), "sub", "joingate.yaml")

	answers := initAnswers{
		UseEnvToken:     true,
		AdminID:         "7",
		RequiredChannel: "@mychannel",
		Bind:            "0.0.0.0:8443",
		WebhookPath:     "/hook",
		LogFormat:       "json",
	}
	if err := writeConfigFile(path, answers.config(), false); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("written config is invalid: %v", err)
	}
	if cfg.Telegram.Token != testToken {
		t.Errorf("Token = %q, want value from environment", cfg.Telegram.Token)
	}
	if cfg.Gateway.Bind != "0.0.0.0:8443" || cfg.Gateway.WebhookPath != "/hook" || cfg.Log.Format != "json" {
		t.Errorf("answers not persisted: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %v, want 0600", perm)
	}

	if err := writeConfigFile(path, answers.config(), false); err == nil {
		t.Error("expected error when file exists without force")
	}
	if err := writeConfigFile(path, answers.config(), true); err != nil {
		t.Errorf("force overwrite: %v", err)
	}
}

func TestValidateToken(t *testing.T) {
	if err := validateToken("123:abc"); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
	if err := validateToken("nope"); err == nil {
		t.Error("invalid token accepted")
	}
}

func TestServiceConfig(t *testing.T) {
	sc, err := serviceConfig("joingate.yaml")
	if err != nil {
		t.Fatalf("serviceConfig: %v", err)
	}
	if sc.Name != serviceName {
		t.Errorf("Name = %q", sc.Name)
	}
	if len(sc.Arguments) != 4 || sc.Arguments[0] != "service" || sc.Arguments[1] != "run" || sc.Arguments[2] != "--config" {
		t.Fatalf("Arguments = %v", sc.Arguments)
	}
	if !filepath.IsAbs(sc.Arguments[3]) {
		t.Errorf("config path %q should be absolute", sc.Arguments[3])
	}

	sc, err = serviceConfig("")
	if err != nil {
		t.Fatalf("serviceConfig: %v", err)
	}
	if len(sc.Arguments) != 2 {
		t.Errorf("Arguments = %v, want no --config", sc.Arguments)
	}
}

func TestStatusName(t *testing.T) {
	cases := map[service.Status]string{
		service.StatusRunning: "running",
		service.StatusStopped: "stopped",
		service.StatusUnknown: "unknown",
	}
	for st, want := range cases {
		if got := statusName(st); got != want {
			t.Errorf("statusName(%v) = %q, want %q", st, got, want)
		}
	}
}

func TestProgram_StartStop(t *testing.T) {
	path := writeTestConfig(t, "https://api.telegram.org", "gateway:\n  bind: \"127.0.0.1:0\"\nlog:\n  level: error\n")

	p := &program{params: runParams(path)}
	if err := p.Stop(nil); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}
	if err := p.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Stop(nil); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
