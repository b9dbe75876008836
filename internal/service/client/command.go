package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/logger"
	"github.com/surakshasphere/sentinel/internal/service/common"
	"github.com/surakshasphere/sentinel/internal/service/core"
)

// Options configures the SOS and all-clear client behavior.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Activate selects between raising an SOS (true) and sending the all-clear (false).
	Activate bool

	// Reason records what kind of emergency is being raised; defaults to manual panic.
	Reason safety.Reason
}

// DefaultPushInterval defines retry delay when pushing the request to the server.
const defaultPushInterval = 1 * time.Second

// Run attempts the state change with retry logic until confirmation or cancellation.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sentinel-sos/allclear")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	reason := opts.Reason
	if reason == "" {
		reason = safety.ReasonManualPanic
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	// Connect to the sentinel server with timeout from config.
	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(
		ctx,
		"Pushing desired emergency state",
		"server_address",
		serverAddress,
		"activate",
		opts.Activate,
		"reason",
		reason,
	)

	// attempt tries once to change the emergency state, returns (completed, error).
	attempt := func() (bool, error) {
		if opts.Activate {
			result, err := client.Trigger(ctx, reason, actor)
			if err != nil {
				// Log error but continue retrying for transient failures.
				logger.ErrorKV(ctx, "Trigger failed", "error", err)
				return false, nil
			}

			if result.State == safety.StateActive {
				logger.Infof(ctx, "Emergency raised: %s", formatResult(result, actor))
				return true, nil
			}

			// Server responded but state mismatch, continue retrying.
			return false, nil
		}

		result, err := client.Cancel(ctx, actor)
		if errors.Is(err, core.ErrNotActive) {
			// Nothing to cancel: the all-clear already holds.
			logger.Info(ctx, "No active emergency, nothing to cancel")
			return true, nil
		}

		if err != nil {
			logger.ErrorKV(ctx, "Cancel failed", "error", err)
			return false, nil
		}

		if result.State == safety.StateIdle {
			logger.Infof(ctx, "All-clear confirmed: %s", formatResult(result, actor))
			return true, nil
		}

		return false, nil
	}

	// Attempt immediately before starting retry loop.
	if done, err := attempt(); err != nil {
		return err
	} else if done {
		return nil
	}

	// Setup retry timer for subsequent attempts.
	ticker := time.NewTicker(defaultPushInterval)
	defer ticker.Stop()

	// Retry loop until success or cancellation.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}
	}
}

// formatResult converts a trigger outcome to a readable log message.
func formatResult(result *common.TriggerResult, actor *safety.Actor) string {
	if result == nil {
		return "<nil result>"
	}

	who := "<unknown>"
	if actor != nil {
		who = actor.String()
	}

	performed := "confirmed by"
	if result.Activated {
		performed = "performed by"
	}

	return fmt.Sprintf("%s %s %s", result.State, performed, who)
}
