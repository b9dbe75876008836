// Package voice spots the fixed emergency keyword in speech transcripts.
package voice

import "strings"

// DefaultKeyword is the spoken word that raises an emergency.
const DefaultKeyword = "help"

// Spotter scans incoming transcripts for the keyword. It is stateless; every
// transcript is judged on its own.
type Spotter struct {
	// keyword is matched case-insensitively anywhere in the transcript.
	keyword string
	// onTrigger fires once per matching transcript.
	onTrigger func(transcript string)
}

// New creates a spotter. An empty keyword falls back to DefaultKeyword.
func New(keyword string, onTrigger func(transcript string)) *Spotter {
	if keyword == "" {
		keyword = DefaultKeyword
	}

	return &Spotter{
		keyword:   strings.ToLower(keyword),
		onTrigger: onTrigger,
	}
}

// Feed evaluates one transcript. The callback runs synchronously.
func (s *Spotter) Feed(transcript string) {
	if !strings.Contains(strings.ToLower(transcript), s.keyword) {
		return
	}

	if s.onTrigger != nil {
		s.onTrigger(transcript)
	}
}
