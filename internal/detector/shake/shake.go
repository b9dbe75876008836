// Package shake turns a stream of raw acceleration samples into a discrete
// "violent shake" trigger. A pulse is counted when the acceleration magnitude
// crosses the threshold outside the refractory period; enough pulses in
// quick succession fire the trigger.
package shake

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultThreshold separates violent shaking from ambient motion, in m/s².
	// Empirically calibrated against phone-in-hand shake tests.
	DefaultThreshold = 25.0

	// DefaultRefractory is the minimum gap between counted pulses so one
	// continuous shake is not over-counted.
	DefaultRefractory = 300 * time.Millisecond

	// DefaultIdleReset clears a stale partial pulse sequence.
	DefaultIdleReset = 1500 * time.Millisecond

	// DefaultPulsesToTrigger is how many pulses make a violent shake.
	DefaultPulsesToTrigger = 3
)

// Sample is one accelerometer reading including gravity.
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude returns the vector magnitude of the sample.
func (s Sample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// Config tunes the detector. Zero values fall back to the defaults above.
type Config struct {
	Threshold       float64
	Refractory      time.Duration
	IdleReset       time.Duration
	PulsesToTrigger int
}

// normalize fills unset fields with defaults.
func (c Config) normalize() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}

	if c.Refractory <= 0 {
		c.Refractory = DefaultRefractory
	}

	if c.IdleReset <= 0 {
		c.IdleReset = DefaultIdleReset
	}

	if c.PulsesToTrigger <= 0 {
		c.PulsesToTrigger = DefaultPulsesToTrigger
	}

	return c
}

// Detector holds the rolling pulse counter. Samples carry their own
// observation time so replayed or batched streams behave identically to
// live ones.
type Detector struct {
	// cfg holds the normalized tuning parameters.
	cfg Config
	// onTrigger is invoked once per completed pulse sequence.
	onTrigger func()

	// mu protects the counter state below.
	mu sync.Mutex
	// pulses is the trigger accumulator; it resets when a trigger fires.
	pulses int
	// meter is the UI-facing pulse count. It survives the trigger instant
	// and is cleared only by the idle reset.
	meter int
	// lastPulseAt is when the most recent pulse was counted.
	lastPulseAt time.Time
	// resetTimer clears a stale partial sequence after IdleReset.
	resetTimer *time.Timer
	// closed stops the detector from counting further pulses.
	closed bool
}

// New creates a detector that calls onTrigger when a violent shake completes.
func New(cfg Config, onTrigger func()) *Detector {
	return &Detector{
		cfg:       cfg.normalize(),
		onTrigger: onTrigger,
	}
}

// Feed evaluates one acceleration sample observed at the given time.
// The trigger callback runs synchronously on the calling goroutine.
func (d *Detector) Feed(sample Sample, at time.Time) {
	if sample.Magnitude() <= d.cfg.Threshold {
		return
	}

	fire := false

	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()
		return
	}

	// A stale partial sequence does not persist indefinitely.
	if !d.lastPulseAt.IsZero() && at.Sub(d.lastPulseAt) > d.cfg.IdleReset {
		d.pulses = 0
		d.meter = 0
	}

	// Refractory period: one continuous shake counts once.
	if !d.lastPulseAt.IsZero() && at.Sub(d.lastPulseAt) <= d.cfg.Refractory {
		d.mu.Unlock()
		return
	}

	d.pulses++
	d.meter++
	d.lastPulseAt = at

	if d.pulses >= d.cfg.PulsesToTrigger {
		d.pulses = 0
		fire = true
	}

	d.rearmResetLocked()
	d.mu.Unlock()

	if fire && d.onTrigger != nil {
		d.onTrigger()
	}
}

// PulseCount returns the UI-facing pulse count. It keeps counting through a
// trigger so a shake meter does not blank at the moment of escalation, and
// drops to zero only after the idle reset.
func (d *Detector) PulseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.meter
}

// Close cancels the idle-reset timer. The detector ignores samples afterwards.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	if d.resetTimer != nil {
		d.resetTimer.Stop()
		d.resetTimer = nil
	}
}

// rearmResetLocked schedules the idle reset relative to the latest pulse.
// Callers must hold d.mu.
func (d *Detector) rearmResetLocked() {
	if d.resetTimer != nil {
		d.resetTimer.Stop()
	}

	d.resetTimer = time.AfterFunc(d.cfg.IdleReset, func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		if d.closed {
			return
		}

		// A fresh pulse may have re-armed a newer timer already.
		if time.Since(d.lastPulseAt) >= d.cfg.IdleReset {
			d.pulses = 0
			d.meter = 0
		}
	})
}
