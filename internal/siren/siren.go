// Package siren derives the audio-alarm schedule from the emergency state
// and the siren toggle. The scheduler owns no truth of its own: emitting is
// always ACTIVE && enabled, and any transition to silence stops the current
// audio cue immediately rather than at the next cycle boundary.
package siren

import (
	"sync"
	"time"

	"github.com/surakshasphere/sentinel/internal/domain/safety"
)

const (
	// DefaultCycle is the re-arm period of the repeating cue.
	DefaultCycle = 1 * time.Second

	// baseHz is the sweep's starting and ending frequency.
	baseHz = 800.0
	// peakHz is the sweep's midpoint frequency.
	peakHz = 1200.0
	// riseTime is how long the sweep takes to reach the peak.
	riseTime = 500 * time.Millisecond
)

// Tone describes one siren cycle: a rising sweep from BaseHz to PeakHz over
// RiseTime, falling back by Duration. Duration also hard-stops the cue so a
// delayed scheduler can never leave a tone running.
type Tone struct {
	BaseHz   float64
	PeakHz   float64
	RiseTime time.Duration
	Duration time.Duration
}

// DefaultTone is the standard two-way sweep cue.
func DefaultTone() Tone {
	return Tone{
		BaseHz:   baseHz,
		PeakHz:   peakHz,
		RiseTime: riseTime,
		Duration: DefaultCycle,
	}
}

// Output is the audio collaborator. Play begins one self-terminating cycle;
// Stop releases whatever is currently sounding, immediately and
// unconditionally, even if no cycle is active.
type Output interface {
	Play(tone Tone)
	Stop()
}

// NopOutput discards all cues. Useful for silent deployments and tests.
type NopOutput struct{}

// Play implements Output.
func (NopOutput) Play(Tone) {}

// Stop implements Output.
func (NopOutput) Stop() {}

// Scheduler repeats the cue every cycle while emitting and guarantees an
// immediate stop on any transition to silence.
type Scheduler struct {
	// out receives the audio cues.
	out Output
	// tone is the cue played each cycle.
	tone Tone
	// cycle is the re-arm period.
	cycle time.Duration

	// mu protects the emitting flag and the stop channel.
	mu sync.Mutex
	// emitting mirrors ACTIVE && enabled.
	emitting bool
	// stop terminates the re-arm loop of the current emission.
	stop chan struct{}
}

// NewScheduler creates a scheduler over the provided output. A nil output
// falls back to NopOutput; a non-positive cycle falls back to DefaultCycle.
func NewScheduler(out Output, cycle time.Duration) *Scheduler {
	if out == nil {
		out = NopOutput{}
	}

	if cycle <= 0 {
		cycle = DefaultCycle
	}

	return &Scheduler{
		out:   out,
		tone:  DefaultTone(),
		cycle: cycle,
	}
}

// Update re-derives the emitting flag from the emergency state and the siren
// toggle. Safe to call redundantly; only real transitions act.
func (s *Scheduler) Update(state safety.State, sirenEnabled bool) {
	want := state == safety.StateActive && sirenEnabled

	s.mu.Lock()

	if want == s.emitting {
		s.mu.Unlock()
		return
	}

	s.emitting = want

	if want {
		stop := make(chan struct{})
		s.stop = stop

		// First cycle starts inside the current emission window, not a full
		// cycle later.
		s.out.Play(s.tone)
		s.mu.Unlock()

		go s.rearm(stop)

		return
	}

	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	close(stop)
	s.out.Stop()
}

// Emitting reports whether the siren is currently sounding.
func (s *Scheduler) Emitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.emitting
}

// Close silences the siren and releases the re-arm loop.
func (s *Scheduler) Close() {
	s.Update(safety.StateIdle, false)
}

// rearm replays the cue every cycle until the emission is stopped.
func (s *Scheduler) rearm(stop chan struct{}) {
	ticker := time.NewTicker(s.cycle)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()

			// The emission may have ended between the tick and the lock;
			// never play past a stop.
			if s.emitting && s.stop == stop {
				s.out.Play(s.tone)
			}

			s.mu.Unlock()
		}
	}
}
