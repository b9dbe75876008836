package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/service/watchdog"
	"github.com/surakshasphere/sentinel/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// pollInterval between health checks.
	pollInterval time.Duration
	// skipProcessScan disables the local process table check.
	skipProcessScan bool

	// rootCmd represents the base command for watching the sentinel server.
	rootCmd = &cobra.Command{
		Use:   "sentinel-watchdog [server-address]",
		Short: "Watch the sentinel server and report emergencies.",
		Long: `Polls the sentinel server, logging its health and every emergency
state transition it observes.

When the API stops answering, the local process table is scanned for the
server executable to tell a crashed server apart from a broken network.
Server address can be provided as argument or loaded from configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use server address argument if provided, otherwise rely on config.
			var serverAddress string
			if len(args) > 0 {
				serverAddress = args[0]
			}

			return watchdog.Run(ctx, &watchdog.Options{
				ConfigPath:      cfgPath,
				ServerAddress:   serverAddress,
				PollInterval:    pollInterval,
				SkipProcessScan: skipProcessScan,
			})
		},
	}
)

// Execute runs the sentinel-watchdog CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		DurationVarP(&pollInterval, "interval", "i", watchdog.DefaultPollInterval, "interval between health checks")
	rootCmd.Flags().
		BoolVar(&skipProcessScan, "skip-process-scan", false, "do not scan the local process table on API errors")
}
