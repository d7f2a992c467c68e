package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if !cfg.BroadcastEnabled {
		t.Error("BroadcastEnabled should default to true")
	}
	if cfg.PublishTimeout != 2*time.Second {
		t.Errorf("PublishTimeout = %v, want 2s", cfg.PublishTimeout)
	}
	if cfg.RandomSeed != 0 {
		t.Errorf("RandomSeed = %d, want 0", cfg.RandomSeed)
	}
	if cfg.ContentPath != "data/game.json" {
		t.Errorf("ContentPath = %q", cfg.ContentPath)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("BROADCAST_ENABLED", "false")
	t.Setenv("RANDOM_SEED", "1234")
	t.Setenv("PUBLISH_TIMEOUT", "500ms")
	t.Setenv("RATE_LIMIT_RPS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9090" || cfg.Environment != "production" {
		t.Errorf("got port %q environment %q", cfg.Port, cfg.Environment)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want warn", cfg.LogLevel)
	}
	if cfg.BroadcastEnabled {
		t.Error("BroadcastEnabled should be false")
	}
	if cfg.RandomSeed != 1234 {
		t.Errorf("RandomSeed = %d, want 1234", cfg.RandomSeed)
	}
	if cfg.PublishTimeout != 500*time.Millisecond {
		t.Errorf("PublishTimeout = %v", cfg.PublishTimeout)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad seed", "RANDOM_SEED", "abc", "parse env:"},
		{"bad duration", "PUBLISH_TIMEOUT", "soon", "parse env:"},
		{"zero timeout", "PUBLISH_TIMEOUT", "0s", "PUBLISH_TIMEOUT must be positive"},
		{"negative rate", "RATE_LIMIT_RPS", "-1", "RATE_LIMIT_RPS cannot be negative"},
		{"zero burst", "RATE_LIMIT_BURST", "0", "RATE_LIMIT_BURST must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
