// Package vision debounces a noisy per-frame hazard classifier into a
// confirmed-hazard trigger. Single-frame false positives are common, so a
// qualifying detection must persist across a confirmation window, with only
// short gaps allowed, before it is treated as real.
package vision

import (
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMinConfidence is the classifier score a frame must exceed.
	DefaultMinConfidence = 0.45

	// DefaultConfirmWindow is how long a hazard must persist before firing.
	DefaultConfirmWindow = 2 * time.Second

	// DefaultMaxGap is the longest tolerated silence between qualifying
	// frames while a confirmation is pending.
	DefaultMaxGap = 1 * time.Second

	// DefaultTailMargin is how recent the last qualifying frame must be when
	// the window elapses. Guards against detections that vanished early in
	// the window.
	DefaultTailMargin = 500 * time.Millisecond
)

// qualifyingLabels are the classifier classes treated as hazards.
var qualifyingLabels = map[string]struct{}{
	"knife": {},
	"fire":  {},
}

// Classification is one frame's result from the object-detection model.
type Classification struct {
	// Label is the detected class name.
	Label string `json:"label"`
	// Confidence is the model score, expected in [0,1]. Out-of-range values
	// are clamped to non-triggering.
	Confidence float64 `json:"confidence"`
	// Timestamp is when the frame was classified.
	Timestamp time.Time `json:"timestamp"`
}

// Config tunes the debouncer. Zero values fall back to the defaults above.
type Config struct {
	MinConfidence float64
	ConfirmWindow time.Duration
	MaxGap        time.Duration
	TailMargin    time.Duration
}

// normalize fills unset fields with defaults.
func (c Config) normalize() Config {
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}

	if c.ConfirmWindow <= 0 {
		c.ConfirmWindow = DefaultConfirmWindow
	}

	if c.MaxGap <= 0 {
		c.MaxGap = DefaultMaxGap
	}

	if c.TailMargin <= 0 {
		c.TailMargin = DefaultTailMargin
	}

	return c
}

// Debouncer tracks one pending hazard confirmation at a time.
type Debouncer struct {
	// cfg holds the normalized tuning parameters.
	cfg Config
	// onConfirmed receives the upper-cased hazard label once per confirmation.
	onConfirmed func(label string)
	// now is the clock, swappable in tests.
	now func() time.Time

	// mu protects the pending confirmation state below.
	mu sync.Mutex
	// lastSeenAt is the time of the most recent qualifying frame.
	lastSeenAt time.Time
	// lastLabel is the class of the most recent qualifying frame.
	lastLabel string
	// pending is the running confirmation timer, nil when idle.
	pending *time.Timer
	// closed stops the debouncer from confirming further hazards.
	closed bool
}

// New creates a debouncer that calls onConfirmed when a hazard persists
// through the confirmation window.
func New(cfg Config, onConfirmed func(label string)) *Debouncer {
	return &Debouncer{
		cfg:         cfg.normalize(),
		onConfirmed: onConfirmed,
		now:         time.Now,
	}
}

// Feed evaluates one classifier frame.
func (d *Debouncer) Feed(c Classification) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if d.qualifies(c) {
		d.lastSeenAt = d.now()
		d.lastLabel = strings.ToUpper(strings.TrimSpace(c.Label))

		// Refreshing lastSeenAt is enough while a confirmation is pending;
		// the window is anchored at the first qualifying observation.
		if d.pending == nil {
			d.pending = time.AfterFunc(d.cfg.ConfirmWindow, d.confirm)
		}

		return
	}

	// The hazard disappeared for longer than the tolerated gap; a pending
	// confirmation is superseded and must not fire later.
	if d.pending != nil && d.now().Sub(d.lastSeenAt) > d.cfg.MaxGap {
		d.pending.Stop()
		d.pending = nil
	}
}

// Pending reports whether a confirmation window is currently running.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pending != nil
}

// Close cancels any pending confirmation without firing it.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

// qualifies reports whether the frame counts as a hazard observation.
// Malformed confidence values never qualify.
func (d *Debouncer) qualifies(c Classification) bool {
	if c.Confidence <= d.cfg.MinConfidence || c.Confidence > 1 {
		return false
	}

	_, ok := qualifyingLabels[strings.ToLower(strings.TrimSpace(c.Label))]

	return ok
}

// confirm runs when the confirmation window elapses. The hazard must still
// have been seen within the tail margin, otherwise it vanished mid-window
// and the confirmation is dropped.
func (d *Debouncer) confirm() {
	d.mu.Lock()

	d.pending = nil

	if d.closed || d.now().Sub(d.lastSeenAt) >= d.cfg.TailMargin {
		d.mu.Unlock()
		return
	}

	label := d.lastLabel
	d.mu.Unlock()

	if d.onConfirmed != nil {
		d.onConfirmed(label)
	}
}
