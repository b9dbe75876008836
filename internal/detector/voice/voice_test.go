package voice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSpotter_KeywordMatching covers matching, casing, and misses.
func TestSpotter_KeywordMatching(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		transcript string
		triggers   bool
	}{
		{"plain keyword", "help", true},
		{"keyword in phrase", "somebody please help me", true},
		{"mixed case", "HeLp!", true},
		{"absent", "lovely weather today", false},
		{"empty transcript", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			triggered := 0

			s := New("", func(string) { triggered++ })
			s.Feed(tc.transcript)

			if tc.triggers {
				require.Equal(t, 1, triggered)
			} else {
				require.Zero(t, triggered)
			}
		})
	}
}

// TestSpotter_CustomKeyword verifies overriding the default keyword.
func TestSpotter_CustomKeyword(t *testing.T) {
	t.Parallel()

	var last string

	s := New("Bachao", func(transcript string) { last = transcript })

	s.Feed("help")
	require.Empty(t, last)

	s.Feed("koi bachao mujhe")
	require.Equal(t, "koi bachao mujhe", last)
}
