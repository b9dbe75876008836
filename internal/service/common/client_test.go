//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/service/core"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestDial_AssumesPlainHTTP verifies a bare host:port gets a scheme.
func TestDial_AssumesPlainHTTP(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "localhost:9876")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9876", c.baseURL)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestTrigger_ValidatesInput asserts that reason and actor are required.
func TestTrigger_ValidatesInput(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.Trigger(context.Background(), "", &safety.Actor{Hostname: "h", Username: "u"})
	require.Error(t, err)

	_, err = c.Trigger(context.Background(), safety.ReasonManualPanic, nil)
	require.Error(t, err)
}

// TestCancel_NilActor asserts that a nil actor is rejected by the client.
func TestCancel_NilActor(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.Cancel(context.Background(), nil)
	require.Error(t, err)
}

// TestClient_RoundTrips drives the client against a stub server.
func TestClient_RoundTrips(t *testing.T) {
	t.Parallel()

	actor := &safety.Actor{Hostname: "phone", Username: "asha"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"state":          safety.StateActive,
			"siren_emitting": true,
			"pulse_count":    2,
		})
	})
	mux.HandleFunc("POST /trigger", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(TriggerResult{Activated: true, State: safety.StateActive})
	})
	mux.HandleFunc("POST /cancel", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no active emergency", http.StatusConflict)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	c, err := Dial(context.Background(), ts.URL)
	require.NoError(t, err)

	defer c.Close()

	snapshot, err := c.GetState(context.Background())
	require.NoError(t, err)
	require.Equal(t, safety.StateActive, snapshot.State)
	require.True(t, snapshot.SirenEmitting)
	require.Equal(t, 2, snapshot.PulseCount)

	result, err := c.Trigger(context.Background(), safety.ReasonManualPanic, actor)
	require.NoError(t, err)
	require.True(t, result.Activated)

	_, err = c.Cancel(context.Background(), actor)
	require.ErrorIs(t, err, core.ErrNotActive)

	require.NoError(t, c.Healthy(context.Background()))
}
