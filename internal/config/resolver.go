package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the config file name looked up by ResolvePath.
const FileName = "joingate.yaml"

// SearchPaths returns the candidate config locations in lookup order:
// $XDG_CONFIG_HOME/joingate/joingate.yaml (or ~/.config/...) then ./joingate.yaml.
func SearchPaths() []string {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "joingate", FileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "joingate", FileName))
	}

	return append(candidates, FileName)
}

// ResolvePath returns the first existing config file, or "" when none exists.
func ResolvePath() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Resolve loads configuration from path, from the first file found by
// ResolvePath, or from the environment when no file exists. The returned
// source names where the configuration came from.
func Resolve(path string) (cfg *Config, source string, err error) {
	if path == "" {
		path = ResolvePath()
	}
	if path == "" {
		cfg, err = FromEnv()
		return cfg, "environment", err
	}
	cfg, err = Load(path)
	return cfg, path, err
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", name)
	}
}
