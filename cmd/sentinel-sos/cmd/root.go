package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/service/client"
	"github.com/surakshasphere/sentinel/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// reason records what kind of emergency is being raised.
	reason string

	// rootCmd represents the base command for raising an SOS.
	rootCmd = &cobra.Command{
		Use:   "sentinel-sos [server-address]",
		Short: "Raise an SOS on the sentinel server.",
		Long: `Raises an emergency on the sentinel server.

Sends trigger requests to the server continuously until confirmation is received,
so a flaky connection cannot swallow a distress call.
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

			return client.Run(ctx, &client.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				Activate:      true,
				Reason:        safety.Reason(reason),
			})
		},
	}
)

// Execute runs the sentinel-sos CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVarP(&reason, "reason", "r", string(safety.ReasonManualPanic), "reason recorded with the alert")
}
