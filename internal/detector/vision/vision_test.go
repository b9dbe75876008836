package vision

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// shortConfig compresses the production timings so tests run in milliseconds.
// Ratios mirror the production defaults (window 2000, gap 1000, tail 500).
var shortConfig = Config{
	ConfirmWindow: 200 * time.Millisecond,
	MaxGap:        100 * time.Millisecond,
	TailMargin:    50 * time.Millisecond,
}

// collector records confirmed labels thread-safely.
type collector struct {
	mu     sync.Mutex
	labels []string
}

func (c *collector) add(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.labels = append(c.labels, label)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.labels...)
}

// TestDebouncer_SustainedHazardConfirms verifies a hazard held through the
// full window yields exactly one confirmation.
func TestDebouncer_SustainedHazardConfirms(t *testing.T) {
	t.Parallel()

	got := new(collector)

	d := New(shortConfig, got.add)
	defer d.Close()

	deadline := time.Now().Add(250 * time.Millisecond)
	for time.Now().Before(deadline) {
		d.Feed(Classification{Label: "knife", Confidence: 0.9, Timestamp: time.Now()})
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return len(got.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"KNIFE"}, got.snapshot())
}

// TestDebouncer_EarlyDisappearanceDropsConfirmation verifies a hazard seen
// only at the start of the window never confirms.
func TestDebouncer_EarlyDisappearanceDropsConfirmation(t *testing.T) {
	t.Parallel()

	got := new(collector)

	d := New(shortConfig, got.add)
	defer d.Close()

	// Present for ~15% of the window, then gone.
	d.Feed(Classification{Label: "fire", Confidence: 0.8, Timestamp: time.Now()})
	time.Sleep(30 * time.Millisecond)

	// Wait past the window end plus slack; nothing may fire.
	time.Sleep(300 * time.Millisecond)
	require.Empty(t, got.snapshot())
}

// TestDebouncer_GapCancelsPending verifies a long silence stops the timer.
func TestDebouncer_GapCancelsPending(t *testing.T) {
	t.Parallel()

	got := new(collector)

	d := New(shortConfig, got.add)
	defer d.Close()

	d.Feed(Classification{Label: "knife", Confidence: 0.9, Timestamp: time.Now()})
	require.True(t, d.Pending())

	// Non-qualifying frames past the gap budget cancel the confirmation.
	time.Sleep(120 * time.Millisecond)
	d.Feed(Classification{Label: "person", Confidence: 0.99, Timestamp: time.Now()})

	require.False(t, d.Pending())

	time.Sleep(200 * time.Millisecond)
	require.Empty(t, got.snapshot())
}

// TestDebouncer_Qualification covers label, confidence, and clamping rules.
func TestDebouncer_Qualification(t *testing.T) {
	t.Parallel()

	d := New(Config{}, nil)
	defer d.Close()

	cases := []struct {
		name      string
		frame     Classification
		qualifies bool
	}{
		{"knife above threshold", Classification{Label: "knife", Confidence: 0.46}, true},
		{"fire above threshold", Classification{Label: "Fire", Confidence: 0.9}, true},
		{"confidence at threshold", Classification{Label: "knife", Confidence: 0.45}, false},
		{"harmless class", Classification{Label: "person", Confidence: 0.99}, false},
		{"out of range confidence", Classification{Label: "knife", Confidence: 1.7}, false},
		{"negative confidence", Classification{Label: "fire", Confidence: -0.2}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.qualifies, d.qualifies(tc.frame))
		})
	}
}

// TestDebouncer_CloseCancelsWithoutFiring verifies teardown never leaks a confirmation.
func TestDebouncer_CloseCancelsWithoutFiring(t *testing.T) {
	t.Parallel()

	got := new(collector)

	d := New(shortConfig, got.add)
	d.Feed(Classification{Label: "fire", Confidence: 0.9, Timestamp: time.Now()})
	require.True(t, d.Pending())

	d.Close()
	require.False(t, d.Pending())

	time.Sleep(300 * time.Millisecond)
	require.Empty(t, got.snapshot())
}
