package safety

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/surakshasphere/sentinel/internal/geo"
)

// State is the authoritative emergency state owned by the trigger aggregator.
type State string

const (
	// StateIdle means no emergency is in progress.
	StateIdle State = "IDLE"
	// StateActive means an emergency has been triggered and not yet cancelled.
	StateActive State = "ACTIVE"
)

// Reason identifies what caused an emergency trigger. Values are the
// human-readable labels shown in the alert log and the outgoing message.
type Reason string

const (
	// ReasonManualPanic is the big red button.
	ReasonManualPanic Reason = "MANUAL PANIC"
	// ReasonViolentShake comes from the shake pattern detector.
	ReasonViolentShake Reason = "VIOLENT SHAKE"
	// ReasonVoiceSOS comes from the speech keyword spotter.
	ReasonVoiceSOS Reason = "VOICE SOS"
	// ReasonSafeZoneBreach comes from the geofence monitor.
	ReasonSafeZoneBreach Reason = "SAFE ZONE BREACHED"
	// ReasonFallDetected is a manually reported fall.
	ReasonFallDetected Reason = "FALL DETECTED"
	// ReasonCrashDetected is a manually reported crash.
	ReasonCrashDetected Reason = "CRASH DETECTED"
	// ReasonFireReport is a manually reported fire.
	ReasonFireReport Reason = "MANUAL FIRE REPORT"
	// ReasonSuspiciousActivity is a manually reported threat.
	ReasonSuspiciousActivity Reason = "SUSPICIOUS ACTIVITY"
)

// HazardReason builds the trigger reason for a vision-confirmed hazard class.
func HazardReason(label string) Reason {
	return Reason("AI DETECTED: " + label)
}

// Actor identifies who performed a manual action in the system.
type Actor struct {
	// Hostname is the machine name where the action was performed.
	Hostname string `json:"hostname"`
	// Username is the system user who triggered the action.
	Username string `json:"username"`
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String formats the actor as user@host for logs and message bodies.
func (a *Actor) String() string {
	if a == nil {
		return "<unknown>"
	}

	return a.Username + "@" + a.Hostname
}

// Alert is one entry of the append-only alert log.
// Entries are created only by the trigger aggregator and mutated only to
// flip Acknowledged.
type Alert struct {
	// ID is a monotonically increasing identifier unique within the process.
	ID uint64 `json:"id"`
	// Reason is what caused the trigger.
	Reason Reason `json:"reason"`
	// Timestamp is when the aggregator processed the trigger.
	Timestamp time.Time `json:"timestamp"`
	// Actor is set for manual triggers, nil for sensor-originated ones.
	Actor *Actor `json:"actor,omitempty"`
	// Acknowledged marks the alert as seen by the user.
	Acknowledged bool `json:"acknowledged"`
}

// Clone returns a copy of the alert to avoid leaking internal references.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}

	cloned := *a
	cloned.Actor = a.Actor.Clone()

	return &cloned
}

// Advisory is a non-escalating warning, currently only red-zone proximity.
// Advisories never enter the alert log and never change the emergency state.
type Advisory struct {
	// ZoneName is the red zone the position fell inside.
	ZoneName string `json:"zone_name"`
	// DistanceMeters is how far the position was from the zone centre.
	DistanceMeters float64 `json:"distance_meters"`
	// Timestamp is when the position sample was evaluated.
	Timestamp time.Time `json:"timestamp"`
}

// Contact is an emergency contact configured by the user.
// The first configured contact receives the outgoing message.
type Contact struct {
	// ID identifies the contact across settings updates.
	ID uuid.UUID `json:"id" yaml:"id"`
	// Name is the display name.
	Name string `json:"name" yaml:"name"`
	// Number is the phone number in whatever format the dialer accepts.
	Number string `json:"number" yaml:"number"`
}

// FallbackRecipient is dialed when no emergency contact is configured.
// 112 is the pan-regional emergency number.
const FallbackRecipient = "112"

// MessagePayload is the outgoing emergency message constructed on every
// IDLE to ACTIVE transition. The core only builds it; dispatching is a
// collaborator concern.
type MessagePayload struct {
	// ID correlates the payload with dispatcher logs.
	ID uuid.UUID `json:"id"`
	// Reason is the trigger that produced the payload.
	Reason Reason `json:"reason"`
	// Coordinate is the last known position, nil when unavailable.
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
	// Recipient is the first configured contact number or FallbackRecipient.
	Recipient string `json:"recipient"`
	// Body is the ready-to-send message text.
	Body string `json:"body"`
	// CreatedAt is when the aggregator built the payload.
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy of the payload, preserving nil.
func (p *MessagePayload) Clone() *MessagePayload {
	if p == nil {
		return nil
	}

	cloned := *p
	cloned.Coordinate = p.Coordinate.Clone()

	return &cloned
}

// NewMessagePayload builds the outgoing message for a trigger. A nil
// coordinate produces an explicit "Location Unavailable" marker rather than
// a bogus zero position. An empty contact list falls back to the reserved
// emergency number so the trigger itself never fails.
func NewMessagePayload(reason Reason, position *geo.Coordinate, contacts []Contact, now time.Time) *MessagePayload {
	location := "Location Unavailable"
	if position != nil {
		location = fmt.Sprintf("https://www.google.com/maps?q=%f,%f", position.Latitude, position.Longitude)
	}

	recipient := FallbackRecipient
	if len(contacts) > 0 {
		recipient = contacts[0].Number
	}

	return &MessagePayload{
		ID:         uuid.New(),
		Reason:     reason,
		Coordinate: position.Clone(),
		Recipient:  recipient,
		Body:       fmt.Sprintf("EMERGENCY SOS: %s. Track me at: %s", reason, location),
		CreatedAt:  now,
	}
}
