// Package geofence evaluates position samples against the configured safe
// zone and red zones. Leaving the safe zone escalates to an emergency
// trigger; entering a red zone only produces an advisory so the user stays
// in control.
package geofence

import (
	"sync"
	"time"

	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/geo"
)

// BreachMarginMeters is the fixed distance from the safe-zone centre beyond
// which the zone counts as breached. Deliberately not configurable per zone
// so the policy stays predictable for guardians.
const BreachMarginMeters = 500.0

// Monitor re-evaluates both checks on every position update. There is no
// polling loop; a silent position adapter simply means no evaluations.
type Monitor struct {
	// stateFn reports the aggregator's current emergency state. A breach
	// only escalates while IDLE; an active emergency is never re-triggered.
	stateFn func() safety.State
	// onBreach fires when the safe zone is breached.
	onBreach func()
	// onAdvisory receives red-zone proximity advisories.
	onAdvisory func(safety.Advisory)

	// mu protects the zone configuration below.
	mu sync.RWMutex
	// safeZone is the guarded boundary, nil when unset.
	safeZone *geo.Zone
	// redZones are the high-risk reference areas.
	redZones []geo.Zone
}

// New creates a monitor. Zones start unset; use SetZones.
func New(stateFn func() safety.State, onBreach func(), onAdvisory func(safety.Advisory)) *Monitor {
	return &Monitor{
		stateFn:    stateFn,
		onBreach:   onBreach,
		onAdvisory: onAdvisory,
	}
}

// SetZones replaces the zone configuration. Takes effect on the next sample.
func (m *Monitor) SetZones(safeZone *geo.Zone, redZones []geo.Zone) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.safeZone = safeZone.Clone()
	m.redZones = append([]geo.Zone(nil), redZones...)
}

// Feed evaluates one position sample observed at the given time.
// Callbacks run synchronously on the calling goroutine.
func (m *Monitor) Feed(position *geo.Coordinate, at time.Time) {
	if position == nil {
		return
	}

	m.mu.RLock()
	safeZone := m.safeZone
	redZones := m.redZones
	m.mu.RUnlock()

	// Red-zone proximity: advisory only, never an emergency trigger.
	for i := range redZones {
		zone := &redZones[i]
		if !zone.Contains(position) {
			continue
		}

		if m.onAdvisory != nil {
			m.onAdvisory(safety.Advisory{
				ZoneName:       zone.Name,
				DistanceMeters: geo.DistanceMeters(&zone.Center, position),
				Timestamp:      at,
			})
		}
	}

	// Safe-zone breach: escalates, but only while no emergency is active.
	if safeZone == nil || m.onBreach == nil {
		return
	}

	if geo.DistanceMeters(position, &safeZone.Center) <= BreachMarginMeters {
		return
	}

	if m.stateFn != nil && m.stateFn() != safety.StateIdle {
		return
	}

	m.onBreach()
}
