package simulator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/geo"
	"github.com/surakshasphere/sentinel/internal/logger"
	"github.com/surakshasphere/sentinel/internal/service/common"
)

// Options controls the sensor simulator run.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional server address override.
	ServerAddress string
	// Scenario names the scripted feed to play against the server.
	Scenario string
}

// ErrUnknownScenario indicates the requested scenario is not registered.
var ErrUnknownScenario = errors.New("unknown scenario")

// scenario is one scripted sensor feed.
type scenario func(ctx context.Context, client *common.Client) error

// scenarios maps scenario names to their scripts.
var scenarios = map[string]scenario{
	"shake":   playShake,
	"hazard":  playHazard,
	"flicker": playFlicker,
	"voice":   playVoice,
	"walk":    playWalk,
}

// Scenarios returns the registered scenario names, sorted.
func Scenarios() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Run plays one scripted scenario against the server and exits.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sentinel-simulator")

	play, ok := scenarios[strings.ToLower(opts.Scenario)]
	if !ok {
		return fmt.Errorf("%w: %q, pick one of %s", ErrUnknownScenario, opts.Scenario, strings.Join(Scenarios(), ", "))
	}

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Determine server address: command line argument overrides config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Playing scenario", "scenario", opts.Scenario, "server_address", serverAddress)

	if err := play(ctx, client); err != nil {
		return fmt.Errorf("play scenario %s: %w", opts.Scenario, err)
	}

	snapshot, err := client.GetState(ctx)
	if err != nil {
		return fmt.Errorf("read final state: %w", err)
	}

	logger.InfoKV(ctx, "Scenario finished", "state", snapshot.State, "alerts", len(snapshot.Alerts))

	return nil
}

// playShake sends three violent acceleration bursts spaced past the
// detector's refractory period.
func playShake(ctx context.Context, client *common.Client) error {
	for i := 0; i < 3; i++ {
		if err := client.SendMotion(ctx, 18, 14, 12); err != nil {
			return err
		}

		if err := pause(ctx, 400*time.Millisecond); err != nil {
			return err
		}
	}

	return nil
}

// playHazard streams a knife classification long enough to survive the
// confirmation window.
func playHazard(ctx context.Context, client *common.Client) error {
	deadline := time.Now().Add(2500 * time.Millisecond)

	for time.Now().Before(deadline) {
		if err := client.SendHazard(ctx, "knife", 0.87); err != nil {
			return err
		}

		if err := pause(ctx, 200*time.Millisecond); err != nil {
			return err
		}
	}

	return nil
}

// playFlicker shows a hazard briefly and lets it vanish before the
// confirmation window elapses; the server must stay idle.
func playFlicker(ctx context.Context, client *common.Client) error {
	for i := 0; i < 3; i++ {
		if err := client.SendHazard(ctx, "knife", 0.92); err != nil {
			return err
		}

		if err := pause(ctx, 150*time.Millisecond); err != nil {
			return err
		}
	}

	// Nothing qualifying for the rest of the window.
	return pause(ctx, 2*time.Second)
}

// playVoice sends a benign transcript followed by the distress keyword.
func playVoice(ctx context.Context, client *common.Client) error {
	if err := client.SendTranscript(ctx, "walking home now, all fine"); err != nil {
		return err
	}

	if err := pause(ctx, time.Second); err != nil {
		return err
	}

	return client.SendTranscript(ctx, "someone is following me, help")
}

// playWalk reports fixes drifting away from the configured safe zone,
// crossing the breach margin on the last step.
func playWalk(ctx context.Context, client *common.Client) error {
	settings, err := client.GetSettings(ctx)
	if err != nil {
		return err
	}

	center := geo.Coordinate{}
	radius := 100.0

	if settings.SafeZone != nil {
		center = settings.SafeZone.Center
		radius = settings.SafeZone.RadiusMeters
	} else {
		logger.Warn(ctx, "No safe zone configured, walking away from the origin")
	}

	// Degrees of latitude per meter, close enough at city scale.
	const degreesPerMeter = 1.0 / 111195.0

	for _, distance := range []float64{0, radius / 2, radius + 200, radius + 600} {
		fix := &geo.Coordinate{
			Latitude:  center.Latitude + distance*degreesPerMeter,
			Longitude: center.Longitude,
		}

		if err := client.SendPosition(ctx, fix); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Reported fix", "distance_meters", distance)

		if err := pause(ctx, 500*time.Millisecond); err != nil {
			return err
		}
	}

	return nil
}

// pause sleeps while honoring cancellation.
func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
