// Package config handles exportctl configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for exportctl.
type Config struct {
	// API settings for the remote export service.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Auth settings for bearer-token resolution.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// Poll settings for run-status tracking.
	Poll PollConfig `yaml:"poll" mapstructure:"poll"`

	// Database settings for persisted local state.
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// APIConfig contains export-service endpoints.
type APIConfig struct {
	// BaseURL is the root of the export service API.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// LocationsURL is the external taxonomy endpoint for location options.
	LocationsURL string `yaml:"locations_url" mapstructure:"locations_url"`

	// PageSize is the listing page size.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// AuthConfig contains bearer-token settings.
type AuthConfig struct {
	// TokenRef is the credential reference: "env:NAME" or a file path.
	TokenRef string `yaml:"token_ref" mapstructure:"token_ref"`

	// RejectExpired fails requests up front when the token's JWT expiry
	// has passed instead of only warning.
	RejectExpired bool `yaml:"reject_expired" mapstructure:"reject_expired"`
}

// PollConfig contains run-status polling settings.
type PollConfig struct {
	// Interval is the fixed delay between run-status polls.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DatabaseConfig contains local database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		API: APIConfig{
			LocationsURL: "https://data.humdata.org/api/3/action/group_list?all_fields=true",
			PageSize:     5,
		},
		Auth: AuthConfig{
			TokenRef: "env:EXPORTS_API_TOKEN",
		},
		Poll: PollConfig{
			Interval: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "exportctl.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "exportctl")
}

// Validate checks the configuration for coherence.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url %q is not a valid URL", c.API.BaseURL)
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be positive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
