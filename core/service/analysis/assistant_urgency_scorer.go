package analysis

import (
	"strings"
	"time"

	"assistant_server/core/domain"
)

// =============================================================================
// Urgency Scorer
// =============================================================================

// UrgencyScorer reduces matched urgent signals plus message metadata to a
// 0-100 urgency score. Base is 0. Age is measured from the received timestamp
// to evaluation time, so re-scoring the same email later yields a lower
// result.
type UrgencyScorer struct{}

// NewUrgencyScorer creates an urgency scorer.
func NewUrgencyScorer() *UrgencyScorer {
	return &UrgencyScorer{}
}

// Score computes the urgency score for one email.
func (s *UrgencyScorer) Score(in *ScoreInput) int {
	score := 0

	for _, phrase := range in.Signals.Urgent {
		if isEmergencyPhrase(phrase) {
			score += 25
		} else {
			score += 15
		}
	}

	if !in.ReceivedAt.IsZero() {
		age := in.Now.Sub(in.ReceivedAt)
		switch {
		case age < time.Hour:
			score += 10
		case age < 4*time.Hour:
			score += 5
		}
	}

	if strings.Contains(in.Subject, "!") {
		score += 5
	}
	if isShoutedSubject(in.Subject, 5) {
		score += 10
	}

	// Double-reply marker. A literal substring test, not a reply-depth count;
	// known crude approximation kept as-is because priority thresholds depend
	// on its scoring contribution.
	if strings.Contains(in.Subject, "RE: RE:") {
		score += 8
	}

	lower := in.ContentLower()
	if strings.Contains(lower, "today") || strings.Contains(lower, "tonight") {
		score += 10
	}
	if strings.Contains(lower, "tomorrow") {
		score += 5
	}
	if strings.Contains(lower, "this week") {
		score += 3
	}

	return domain.ClampScore(score)
}
