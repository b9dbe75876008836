package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/service/server"
	"github.com/surakshasphere/sentinel/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// settingsFile path where runtime settings are persisted.
	settingsFile string

	// rootCmd represents the base command for running the sentinel server.
	rootCmd = &cobra.Command{
		Use:   "sentinel-server [listen-address]",
		Short: "Run the sentinel server and manage emergency state.",
		Long: `Starts the sentinel server that aggregates detector triggers into an
emergency state and serves it over HTTP.

The server listens on the specified address or uses settings from configuration file.
Only the port from ServerAddress config is used for listening (e.g., :8080).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).
Runtime settings (zones, contacts, toggles) are persisted to JSON across restarts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				SettingsFile:  settingsFile,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the sentinel-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&settingsFile, "settings-file", "s", config.DefaultSettingsFilename, "path to persist runtime settings")
}
