package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://exports.example.org"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.PageSize != 5 {
		t.Fatalf("expected page size 5, got %d", cfg.API.PageSize)
	}
	if cfg.Poll.Interval != 15*time.Second {
		t.Fatalf("expected 15s poll interval, got %s", cfg.Poll.Interval)
	}
	if cfg.Auth.TokenRef != "env:EXPORTS_API_TOKEN" {
		t.Fatalf("unexpected token ref: %q", cfg.Auth.TokenRef)
	}
	if cfg.Database.Path == "" {
		t.Fatal("expected a default database path")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, "base_url is required"},
		{"relative base url", func(c *Config) { c.API.BaseURL = "exports.example.org" }, "not a valid URL"},
		{"zero page size", func(c *Config) { c.API.PageSize = 0 }, "page_size"},
		{"zero poll interval", func(c *Config) { c.Poll.Interval = 0 }, "poll.interval"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation to fail")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected message containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}
