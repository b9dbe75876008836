package shake

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// hardPulse is a sample comfortably above the default threshold.
var hardPulse = Sample{X: 20, Y: 20, Z: 20}

// TestDetector_ThreePulsesTrigger verifies three spaced pulses fire exactly once.
func TestDetector_ThreePulsesTrigger(t *testing.T) {
	t.Parallel()

	var triggers atomic.Int32

	d := New(Config{}, func() { triggers.Add(1) })
	defer d.Close()

	base := time.Unix(1700000000, 0)
	d.Feed(hardPulse, base)
	d.Feed(hardPulse, base.Add(400*time.Millisecond))
	d.Feed(hardPulse, base.Add(800*time.Millisecond))

	require.EqualValues(t, 1, triggers.Load())
	require.Equal(t, 3, d.PulseCount(), "meter keeps showing the pulses that fired")
}

// TestDetector_MeterSurvivesTrigger verifies the UI counter keeps counting
// through the trigger instant and is cleared only by the idle reset.
func TestDetector_MeterSurvivesTrigger(t *testing.T) {
	t.Parallel()

	var triggers atomic.Int32

	d := New(Config{Refractory: time.Millisecond, IdleReset: 60 * time.Millisecond}, func() { triggers.Add(1) })
	defer d.Close()

	base := time.Now()
	d.Feed(hardPulse, base)
	d.Feed(hardPulse, base.Add(2*time.Millisecond))
	d.Feed(hardPulse, base.Add(4*time.Millisecond))

	require.EqualValues(t, 1, triggers.Load())
	require.Equal(t, 3, d.PulseCount())

	// A follow-up pulse keeps the meter moving instead of restarting it.
	d.Feed(hardPulse, base.Add(6*time.Millisecond))
	require.Equal(t, 4, d.PulseCount())

	require.Eventually(t, func() bool {
		return d.PulseCount() == 0
	}, time.Second, 10*time.Millisecond, "only the idle reset blanks the meter")
}

// TestDetector_RefractorySuppressesBurst ensures one continuous shake counts once.
func TestDetector_RefractorySuppressesBurst(t *testing.T) {
	t.Parallel()

	var triggers atomic.Int32

	d := New(Config{}, func() { triggers.Add(1) })
	defer d.Close()

	base := time.Unix(1700000000, 0)
	for i := 0; i < 10; i++ {
		d.Feed(hardPulse, base.Add(time.Duration(i)*50*time.Millisecond))
	}

	require.Zero(t, triggers.Load())
	require.Equal(t, 1, d.PulseCount())
}

// TestDetector_WeakSamplesIgnored verifies sub-threshold motion never counts.
func TestDetector_WeakSamplesIgnored(t *testing.T) {
	t.Parallel()

	var triggers atomic.Int32

	d := New(Config{}, func() { triggers.Add(1) })
	defer d.Close()

	base := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		// Roughly gravity plus a little wobble.
		d.Feed(Sample{X: 1, Y: 2, Z: 9.8}, base.Add(time.Duration(i)*400*time.Millisecond))
	}

	require.Zero(t, triggers.Load())
	require.Zero(t, d.PulseCount())
}

// TestDetector_StalePulsesNeverAccumulate checks pulses spaced beyond the idle budget reset.
func TestDetector_StalePulsesNeverAccumulate(t *testing.T) {
	t.Parallel()

	var triggers atomic.Int32

	d := New(Config{}, func() { triggers.Add(1) })
	defer d.Close()

	base := time.Unix(1700000000, 0)
	for i := 0; i < 6; i++ {
		d.Feed(hardPulse, base.Add(time.Duration(i)*2*time.Second))
	}

	require.Zero(t, triggers.Load())
	require.Equal(t, 1, d.PulseCount(), "each stale pulse restarts the sequence")
}

// TestDetector_IdleTimerClearsCounter verifies the timer path resets the UI counter.
func TestDetector_IdleTimerClearsCounter(t *testing.T) {
	t.Parallel()

	d := New(Config{IdleReset: 30 * time.Millisecond}, nil)
	defer d.Close()

	d.Feed(hardPulse, time.Now())
	require.Equal(t, 1, d.PulseCount())

	require.Eventually(t, func() bool {
		return d.PulseCount() == 0
	}, time.Second, 10*time.Millisecond)
}

// TestDetector_ClosedIgnoresSamples ensures no triggers after Close.
func TestDetector_ClosedIgnoresSamples(t *testing.T) {
	t.Parallel()

	var triggers atomic.Int32

	d := New(Config{}, func() { triggers.Add(1) })
	d.Close()

	base := time.Unix(1700000000, 0)
	for i := 0; i < 4; i++ {
		d.Feed(hardPulse, base.Add(time.Duration(i)*400*time.Millisecond))
	}

	require.Zero(t, triggers.Load())
}
