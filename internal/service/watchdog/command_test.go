package watchdog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/service/common"
)

// TestFindProcess_NoMatch verifies that an absent executable reports PID 0.
func TestFindProcess_NoMatch(t *testing.T) {
	t.Parallel()

	pid, err := findProcess("definitely-not-a-real-executable-name")
	require.NoError(t, err)
	require.Zero(t, pid)
}

// TestReportProcess_MissingIsFatal verifies a dead server ends the watchdog.
func TestReportProcess_MissingIsFatal(t *testing.T) {
	t.Parallel()

	err := reportProcess(context.Background(), "definitely-not-a-real-executable-name")
	require.ErrorIs(t, err, ErrServerDown)
}

// TestCheckState_TracksTransitions drives checkState against a stub server.
func TestCheckState_TracksTransitions(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"state": safety.StateActive,
			"alerts": []map[string]any{
				{
					"id":        1,
					"reason":    safety.ReasonManualPanic,
					"timestamp": time.Now(),
				},
			},
			"siren_emitting": true,
		})
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	ctx := context.Background()

	c, err := common.Dial(ctx, ts.URL)
	require.NoError(t, err)

	defer c.Close()

	state, err := checkState(ctx, c, safety.StateIdle)
	require.NoError(t, err)
	require.Equal(t, safety.StateActive, state)
}

// TestCheckState_ServerDown keeps the last known state on errors.
func TestCheckState_ServerDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	c, err := common.Dial(ctx, "127.0.0.1:1", common.WithCallTimeout(200*time.Millisecond))
	require.NoError(t, err)

	defer c.Close()

	state, err := checkState(ctx, c, safety.StateActive)
	require.Error(t, err)
	require.Equal(t, safety.StateActive, state)
}
