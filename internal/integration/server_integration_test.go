package integration

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/service/common"
	"github.com/surakshasphere/sentinel/internal/service/core"
	"github.com/surakshasphere/sentinel/internal/service/server"
)

// startServer starts a sentinel server with temporary config and settings file.
// Returns a stop function to gracefully shutdown the server.
func startServer(t *testing.T, addr string, settingsPath string) (stop func()) {
	t.Helper()

	// Create cancellable context for server lifecycle.
	ctx, cancel := context.WithCancel(context.Background())
	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")

	// Create temporary configuration file.
	require.NoError(
		t,
		config.Save(cfgPath, &config.Config{
			ServerAddress: addr,
			Timeout:       5 * time.Second,
		}),
	)

	// Start server in background goroutine.
	go func() {
		options := &server.Options{
			ConfigPath:   cfgPath,
			SettingsFile: settingsPath,
		}

		_ = server.Run(ctx, options)
	}()

	// Wait briefly for server to start listening.
	time.Sleep(150 * time.Millisecond)

	return func() {
		cancel()
		time.Sleep(100 * time.Millisecond)
	}
}

// freeAddr reserves a loopback port for the test server.
func freeAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// TestServer_SOSRoundtrip starts the real server and exercises the trigger
// and cancel path over the wire.
func TestServer_SOSRoundtrip(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	settingsPath := filepath.Join(t.TempDir(), "runtime.json")

	stop := startServer(t, addr, settingsPath)
	defer stop()

	ctx := context.Background()

	c, err := common.Dial(ctx, addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	actor := &safety.Actor{
		Hostname: "test-hostname",
		Username: "test-user",
	}

	// Fresh server starts idle.
	snapshot, err := c.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, safety.StateIdle, snapshot.State)

	// Cancel with nothing active is a conflict.
	_, err = c.Cancel(ctx, actor)
	require.ErrorIs(t, err, core.ErrNotActive)

	// Manual SOS escalates exactly once.
	result, err := c.Trigger(ctx, safety.ReasonManualPanic, actor)
	require.NoError(t, err)
	require.True(t, result.Activated)

	result, err = c.Trigger(ctx, safety.ReasonVoiceSOS, actor)
	require.NoError(t, err)
	require.False(t, result.Activated, "repeat trigger keeps the first emergency")

	snapshot, err = c.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, safety.StateActive, snapshot.State)
	require.Len(t, snapshot.Alerts, 1)
	require.Equal(t, safety.ReasonManualPanic, snapshot.Alerts[0].Reason)
	require.True(t, snapshot.SirenEmitting)
	require.NotNil(t, snapshot.LastPayload)

	// All-clear returns to idle.
	_, err = c.Cancel(ctx, actor)
	require.NoError(t, err)

	snapshot, err = c.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, safety.StateIdle, snapshot.State)
	require.False(t, snapshot.SirenEmitting)
}

// TestServer_SensorIngest drives the detectors and settings over the wire.
func TestServer_SensorIngest(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	settingsPath := filepath.Join(t.TempDir(), "runtime.json")

	stop := startServer(t, addr, settingsPath)
	defer stop()

	ctx := context.Background()

	c, err := common.Dial(ctx, addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	// Position and weak sensor samples never escalate on their own.
	require.NoError(t, c.SendPosition(ctx, nil))
	require.NoError(t, c.SendMotion(ctx, 1, 1, 1))
	require.NoError(t, c.SendHazard(ctx, "cat", 0.99))
	require.NoError(t, c.SendTranscript(ctx, "all quiet here"))

	snapshot, err := c.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, safety.StateIdle, snapshot.State)

	// The voice keyword escalates immediately.
	require.NoError(t, c.SendTranscript(ctx, "somebody help"))

	require.Eventually(t, func() bool {
		snapshot, err = c.GetState(ctx)

		return err == nil && snapshot.State == safety.StateActive
	}, 3*time.Second, 50*time.Millisecond)

	require.Equal(t, safety.ReasonVoiceSOS, snapshot.Alerts[0].Reason)

	// Settings updates are persisted to disk.
	settings := config.DefaultSettings()
	settings.SirenEnabled = false

	applied, err := c.UpdateSettings(ctx, settings)
	require.NoError(t, err)
	require.False(t, applied.SirenEnabled)

	_, err = os.Stat(settingsPath)
	require.NoError(t, err)
}
