package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/service/simulator"
	"github.com/surakshasphere/sentinel/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the config server address.
	serverAddress string

	// rootCmd represents the base command for playing sensor scenarios.
	rootCmd = &cobra.Command{
		Use:   "sentinel-simulator <scenario>",
		Short: "Play a scripted sensor feed against the sentinel server.",
		Long: `Feeds scripted sensor data into a running sentinel server to
exercise the detectors end to end.

Available scenarios: ` + strings.Join(simulator.Scenarios(), ", ") + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return simulator.Run(ctx, &simulator.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				Scenario:      args[0],
			})
		},
	}
)

// Execute runs the sentinel-simulator CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVarP(&serverAddress, "server", "s", "", "server address override")
}
