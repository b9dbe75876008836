package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/surakshasphere/sentinel/internal/api/rest"
	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/detector/geofence"
	"github.com/surakshasphere/sentinel/internal/detector/shake"
	"github.com/surakshasphere/sentinel/internal/detector/vision"
	"github.com/surakshasphere/sentinel/internal/detector/voice"
	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/logger"
	repository "github.com/surakshasphere/sentinel/internal/repository/settings"
	"github.com/surakshasphere/sentinel/internal/service/core"
	"github.com/surakshasphere/sentinel/internal/siren"
)

// Options controls the sentinel-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the HTTP server.
	ListenAddress string
	// SettingsFile specifies the path to persist runtime settings JSON.
	SettingsFile string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// readHeaderTimeout bounds how long a client may dribble request headers.
const readHeaderTimeout = 5 * time.Second

// Run starts the HTTP server and blocks until context is canceled or server stops.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sentinel-server")

	// Load configuration first to get server settings.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Use SettingsFile from config unless overridden by command line option.
	settingsFile := cfg.SettingsFile
	if opts.SettingsFile != "" {
		settingsFile = opts.SettingsFile
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(cfg.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	// Initialize settings repository for runtime persistence.
	repo := repository.NewFileRepository(settingsFile)

	// Create the trigger aggregator with logging outbox and feedback sinks.
	service, err := core.NewService(ctx, repo, newLogDispatcher(ctx), newLogFeedback(ctx))
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}
	defer service.Close()

	sirenScheduler := siren.NewScheduler(newLogSirenOutput(ctx), siren.DefaultCycle)
	defer sirenScheduler.Close()

	// trigger reports detector escalations to the aggregator.
	trigger := func(reason safety.Reason) {
		if _, err := service.Trigger(ctx, reason, nil); err != nil {
			logger.ErrorKV(ctx, "Trigger rejected", "reason", reason, "error", err)
		}
	}

	shakeDetector := shake.New(shake.Config{}, func() {
		trigger(safety.ReasonViolentShake)
	})
	defer shakeDetector.Close()

	visionDebouncer := vision.New(vision.Config{}, func(label string) {
		trigger(safety.HazardReason(label))
	})
	defer visionDebouncer.Close()

	voiceSpotter := voice.New("", func(transcript string) {
		logger.InfoKV(ctx, "Keyword spotted in transcript", "transcript", transcript)
		trigger(safety.ReasonVoiceSOS)
	})

	geofenceMonitor := geofence.New(
		service.State,
		func() {
			trigger(safety.ReasonSafeZoneBreach)
		},
		func(advisory safety.Advisory) {
			if err := service.RecordAdvisory(ctx, advisory); err != nil {
				logger.ErrorKV(ctx, "Advisory dropped", "zone", advisory.ZoneName, "error", err)
			}
		},
	)

	restServer := rest.NewServer(
		service,
		shakeDetector,
		visionDebouncer,
		voiceSpotter,
		geofenceMonitor,
		sirenScheduler,
	)

	// Every state or settings change refreshes the reactive components.
	service.OnChange(func(state safety.State, settings *config.Settings) {
		sirenScheduler.Update(state, settings.SirenEnabled)
		geofenceMonitor.SetZones(settings.SafeZone, settings.RedZones)
		restServer.ApplySettings(settings)
	})

	service.Start()

	// Push the loaded settings through the same path once before serving.
	settings, err := service.Settings(ctx)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	sirenScheduler.Update(service.State(), settings.SirenEnabled)
	geofenceMonitor.SetZones(settings.SafeZone, settings.RedZones)
	restServer.ApplySettings(settings)

	// Setup TCP listener for the HTTP server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	httpServer := &http.Server{
		Handler:           restServer.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoKV(ctx, "Sentinel server listening", "listen_address", listenAddress, "settings_file", settingsFile)

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "Graceful shutdown failed", "error", err)
		}

		close(done)
	}()

	if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}

// resolveListenAddress determines the listen address for the HTTP server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
