// Package cli provides the exportctl command surface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/osm-exports/exportctl/internal/api"
	"github.com/osm-exports/exportctl/internal/auth"
	"github.com/osm-exports/exportctl/internal/config"
	"github.com/osm-exports/exportctl/internal/db"
	"github.com/osm-exports/exportctl/internal/logging"
)

var (
	flagConfigFile string
	flagLogLevel   string
	flagLogFormat  string
	flagJSON       bool
	flagBaseURL    string

	loadedConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "exportctl",
	Short: "Manage scheduled export regions",
	Long: `exportctl manages scheduled geospatial export regions against a
remote export service: creating and editing region definitions, triggering
runs, and tracking run status.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader()
		if flagConfigFile != "" {
			loader.SetConfigFile(flagConfigFile)
		}

		cfg, err := loader.Load()
		if err != nil {
			return err
		}

		if flagBaseURL != "" {
			cfg.API.BaseURL = flagBaseURL
		}
		if flagLogLevel != "" {
			cfg.Logging.Level = flagLogLevel
		}
		if flagLogFormat != "" {
			cfg.Logging.Format = flagLogFormat
		}

		logging.Init(logging.Config{
			Level:        cfg.Logging.Level,
			Format:       cfg.Logging.Format,
			EnableCaller: cfg.Logging.EnableCaller,
		})

		loadedConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "config file (default is $HOME/.config/exportctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "override logging format (json, console)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "api-url", "", "override export service base URL")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a cancellation context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// IsJSONOutput reports whether --json was requested.
func IsJSONOutput() bool {
	return flagJSON
}

// WriteOutput emits v as indented JSON.
func WriteOutput(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// newClient builds the export-service client from the loaded config.
func newClient() *api.Client {
	cfg := loadedConfig
	tokens := &auth.RefProvider{
		Ref:           cfg.Auth.TokenRef,
		RejectExpired: cfg.Auth.RejectExpired,
	}
	return api.NewClient(cfg.API.BaseURL, tokens,
		api.WithPageSize(cfg.API.PageSize),
		api.WithLocationsURL(cfg.API.LocationsURL),
	)
}

// openDatabase opens the local preferences database.
func openDatabase() (*db.DB, error) {
	path := loadedConfig.Database.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return db.Open(path)
}
