// Package app is the shared entry point behind the joingate commands: it
// loads configuration and assembles the running service.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/flemzord/joingate/internal/config"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.Resolve searches the standard locations and falls
	// back to the environment.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// LogOutput receives the process log. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Run loads configuration, starts the gateway, and blocks until a shutdown
// signal is received.
func Run(params RunParams) error {
	return RunContext(context.Background(), params)
}

// RunContext is Run with a caller-controlled context; cancelling ctx
// triggers the same graceful shutdown as SIGTERM.
func RunContext(ctx context.Context, params RunParams) error {
	cfg, source, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	svc, err := Build(ctx, cfg, BuildOptions{
		Version:   params.Version,
		LogOutput: params.LogOutput,
	})
	if err != nil {
		return err
	}

	svc.Logger.Info("joingate starting",
		"version", params.Version,
		"commit", params.Commit,
		"config", source,
		"channel", cfg.Telegram.RequiredChannel,
		"join_url", svc.Gate.JoinURL(),
	)
	return svc.App.Run(ctx)
}

// LoadConfig reads .env, resolves and validates the configuration, and
// reports where it came from.
func LoadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, "", err
	}

	cfg, source, err := config.Resolve(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", fmt.Errorf("invalid configuration (%s): %w", source, err)
	}
	return cfg, source, nil
}
