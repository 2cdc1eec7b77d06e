package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
api:
  base_url: https://exports.example.org
  page_size: 10
poll:
  interval: 30s
logging:
  level: debug
`)

	loader := NewLoader()
	loader.SetConfigFile(path)

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://exports.example.org" {
		t.Fatalf("unexpected base url: %q", cfg.API.BaseURL)
	}
	if cfg.API.PageSize != 10 {
		t.Fatalf("expected page size 10, got %d", cfg.API.PageSize)
	}
	if cfg.Poll.Interval != 30*time.Second {
		t.Fatalf("expected 30s interval, got %s", cfg.Poll.Interval)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}

	// Untouched settings keep their defaults.
	if cfg.Auth.TokenRef != "env:EXPORTS_API_TOKEN" {
		t.Fatalf("unexpected token ref: %q", cfg.Auth.TokenRef)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected console format, got %q", cfg.Logging.Format)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
api:
  base_url: https://exports.example.org
  page_size: 10
`)
	t.Setenv("EXPORTCTL_API_PAGE_SIZE", "25")

	loader := NewLoader()
	loader.SetConfigFile(path)

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.API.PageSize != 25 {
		t.Fatalf("expected env override 25, got %d", cfg.API.PageSize)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	loader := NewLoader()
	loader.SetConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := loader.Load(); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestLoadValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `
api:
  base_url: https://exports.example.org
  page_size: -1
`)

	loader := NewLoader()
	loader.SetConfigFile(path)

	if _, err := loader.Load(); err == nil {
		t.Fatal("expected validation to fail on a negative page size")
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	if got := expandTilde("~/state.db"); got != filepath.Join(home, "state.db") {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if got := expandTilde("/abs/state.db"); got != "/abs/state.db" {
		t.Fatalf("expected absolute paths untouched, got %q", got)
	}
	if got := expandTilde(""); got != "" {
		t.Fatalf("expected empty to stay empty, got %q", got)
	}
}
