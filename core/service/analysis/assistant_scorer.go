package analysis

import (
	"strings"
	"time"
)

// =============================================================================
// Scorer Input
// =============================================================================

// ScoreInput is everything a scorer may look at. Scorers are pure functions
// of this value: fixed input and fixed Now always produce the same score.
type ScoreInput struct {
	Subject    string
	Content    string // combined subject + snippet + body preview
	Sender     string
	ReceivedAt time.Time
	Now        time.Time
	Signals    SignalSet
}

// ContentLower returns the normalized content for substring checks.
func (in *ScoreInput) ContentLower() string {
	return strings.ToLower(in.Content)
}

// isShoutedSubject reports whether the subject is fully upper-case, longer
// than minLen, and actually carries letters.
func isShoutedSubject(subject string, minLen int) bool {
	if len(subject) <= minLen {
		return false
	}
	return subject == strings.ToUpper(subject) && subject != strings.ToLower(subject)
}
