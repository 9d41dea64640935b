package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JG_TEST_TOKEN", "123:abc")
	path := writeFile(t, t.TempDir(), "joingate.yaml", `
version: "1"
telegram:
  token: ${JG_TEST_TOKEN}
  admin_id: ${JG_TEST_ADMIN:-42}
  required_channel: "@mychannel"
gateway:
  bind: "0.0.0.0:9090"
  read_timeout: 3s
messages:
  welcome: "hi"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("Token = %q, want expanded value", cfg.Telegram.Token)
	}
	if cfg.Telegram.AdminID != "42" {
		t.Errorf("AdminID = %q, want default 42", cfg.Telegram.AdminID)
	}
	if cfg.Gateway.Bind != "0.0.0.0:9090" {
		t.Errorf("Bind = %q", cfg.Gateway.Bind)
	}
	if cfg.Gateway.ReadTimeout != 3*time.Second {
		t.Errorf("ReadTimeout = %v, want 3s", cfg.Gateway.ReadTimeout)
	}
	if cfg.Gateway.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want default 30s", cfg.Gateway.WriteTimeout)
	}
	if cfg.Gateway.WebhookPath != "/webhook" {
		t.Errorf("WebhookPath = %q, want default", cfg.Gateway.WebhookPath)
	}
	if cfg.Messages.Welcome != "hi" {
		t.Errorf("Welcome = %q", cfg.Messages.Welcome)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "joingate.yaml", `
version: "1"
telegram:
  token: ${JG_TEST_DEFINITELY_UNSET}
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "JG_TEST_DEFINITELY_UNSET") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeFile(t, t.TempDir(), "joingate.yaml", `
version: "1"
telegram:
  tokn: "x"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Version != CurrentVersion || cfg.Gateway.Bind == "" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := validConfig()
	out, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	back, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse() error: %v\n%s", err, out)
	}
	if back.Telegram != cfg.Telegram || back.Gateway != cfg.Gateway {
		t.Errorf("round trip mismatch:\n%+v\n%+v", cfg, back)
	}
}
