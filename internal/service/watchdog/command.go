package watchdog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/logger"
	"github.com/surakshasphere/sentinel/internal/service/common"
)

// Options controls the watchdog polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional server address override.
	ServerAddress string
	// PollInterval defines the interval between health checks.
	PollInterval time.Duration
	// ProcessName is the local server executable to look for; empty uses the default.
	ProcessName string
	// SkipProcessScan disables the local process check for remote servers.
	SkipProcessScan bool
}

const (
	// DefaultPollInterval defines the fixed polling interval for health checks.
	DefaultPollInterval = 5 * time.Second

	// defaultProcessName is the server executable watched on the local machine.
	defaultProcessName = "sentinel-server"
)

// ErrServerDown indicates the API is unreachable and no server process is
// running locally. Returned so supervisors see a non-zero exit.
var ErrServerDown = errors.New("server process is not running")

// Run polls server health and emergency state until context cancellation.
// Loads configuration first to get timeout, uses default interval, and logs
// every transition it observes. Exits with ErrServerDown when the API stops
// answering and the local server process has disappeared.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sentinel-watchdog")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Use default polling interval as it's not user-configurable.
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	processName := opts.ProcessName
	if processName == "" {
		processName = defaultProcessName
	}

	// Determine server address: command line argument overrides config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Establish HTTP client with timeout from configuration.
	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Polling server health", "server_address", serverAddress, "interval", opts.PollInterval.String())

	// lastState tracks the previously seen state so transitions stand out.
	var lastState safety.State

	// Setup polling ticker with fixed interval.
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	// Main polling loop until context cancellation.
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			state, err := checkState(ctx, client, lastState)
			if err != nil {
				logger.ErrorKV(ctx, "Check state failed", "error", err)

				// The API being down is only alarming when the local
				// process is gone too.
				if !opts.SkipProcessScan {
					if err := reportProcess(ctx, processName); err != nil {
						return err
					}
				}

				continue
			}

			lastState = state
		}
	}
}

// checkState retrieves and logs the current emergency state from the server.
// Transitions are logged at warn level so they stand out in the stream.
func checkState(ctx context.Context, client *common.Client, lastState safety.State) (safety.State, error) {
	snapshot, err := client.GetState(ctx)
	if err != nil {
		return lastState, err
	}

	if snapshot.State != lastState {
		logger.WarnKV(ctx, "Emergency state changed", "from", lastState, "to", snapshot.State)
	}

	if snapshot.State == safety.StateActive && len(snapshot.Alerts) > 0 {
		newest := snapshot.Alerts[0]
		logger.WarnKV(ctx, "Emergency active",
			"reason", newest.Reason,
			"since", newest.Timestamp.Format(time.RFC3339),
			"siren", snapshot.SirenEmitting,
		)

		return snapshot.State, nil
	}

	logger.Infof(ctx, "Server healthy, state: %s", snapshot.State)

	return snapshot.State, nil
}

// reportProcess scans the local process table for the server executable.
// A missing process is fatal for the watchdog; scan failures and a process
// that is merely unreachable only get logged.
func reportProcess(ctx context.Context, processName string) error {
	pid, err := findProcess(processName)
	if err != nil {
		logger.ErrorKV(ctx, "Process scan failed", "error", err)
		return nil
	}

	if pid == 0 {
		logger.ErrorKV(ctx, "Server process not found", "executable", processName)
		return fmt.Errorf("%w: %s", ErrServerDown, processName)
	}

	logger.InfoKV(ctx, "Server process alive but API unreachable", "executable", processName, "pid", pid)

	return nil
}

// findProcess returns the PID of the first process matching the executable
// name, or 0 when none is running.
func findProcess(processName string) (int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == processName {
			return process.Pid(), nil
		}
	}

	return 0, nil
}
