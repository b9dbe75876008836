package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/surakshasphere/sentinel/internal/geo"
)

// TestNewMessagePayload_WithContactAndPosition checks the happy path body format.
func TestNewMessagePayload_WithContactAndPosition(t *testing.T) {
	t.Parallel()

	var (
		now      = time.Unix(1700000000, 0)
		position = &geo.Coordinate{Latitude: 12.9716, Longitude: 77.5946}
		contacts = []Contact{
			{Name: "Mom", Number: "+911234567890"},
			{Name: "Dad", Number: "+910987654321"},
		}
	)

	payload := NewMessagePayload(ReasonManualPanic, position, contacts, now)

	require.Equal(t, "+911234567890", payload.Recipient, "first contact wins")
	require.Equal(t, ReasonManualPanic, payload.Reason)
	require.Contains(t, payload.Body, "EMERGENCY SOS: MANUAL PANIC")
	require.Contains(t, payload.Body, "maps?q=12.97")
	require.Equal(t, now, payload.CreatedAt)
	require.NotEqual(t, payload.ID.String(), "00000000-0000-0000-0000-000000000000")

	// The payload must not alias the caller's coordinate.
	require.NotSame(t, position, payload.Coordinate)
	require.Equal(t, *position, *payload.Coordinate)
}

// TestNewMessagePayload_Fallbacks verifies missing contact and position handling.
func TestNewMessagePayload_Fallbacks(t *testing.T) {
	t.Parallel()

	payload := NewMessagePayload(ReasonVoiceSOS, nil, nil, time.Now())

	require.Equal(t, FallbackRecipient, payload.Recipient)
	require.Nil(t, payload.Coordinate)
	require.Contains(t, payload.Body, "Location Unavailable")
}

// TestHazardReason checks the vision reason label format.
func TestHazardReason(t *testing.T) {
	t.Parallel()

	require.Equal(t, Reason("AI DETECTED: KNIFE"), HazardReason("KNIFE"))
}

// TestAlertClone ensures cloned alerts do not share the actor pointer.
func TestAlertClone(t *testing.T) {
	t.Parallel()

	alert := &Alert{
		ID:        7,
		Reason:    ReasonCrashDetected,
		Timestamp: time.Now(),
		Actor:     &Actor{Hostname: "phone", Username: "asha"},
	}

	cloned := alert.Clone()

	require.Equal(t, alert, cloned)
	require.NotSame(t, alert, cloned)
	require.NotSame(t, alert.Actor, cloned.Actor)
}
