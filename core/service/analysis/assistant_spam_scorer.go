package analysis

import (
	"strings"

	"assistant_server/core/domain"
)

// =============================================================================
// Spam-Likelihood Scorer
// =============================================================================

// SpamScorer scores how likely an email is junk. Base is 0. The punctuation
// bonus is capped so an enthusiastic real customer cannot spam-classify
// themselves on exclamation marks alone.
type SpamScorer struct{}

// NewSpamScorer creates a spam scorer.
func NewSpamScorer() *SpamScorer {
	return &SpamScorer{}
}

// Score computes the spam-likelihood score for one email.
func (s *SpamScorer) Score(in *ScoreInput) int {
	score := 0

	score += 15 * len(in.Signals.Spam)

	if bangs := strings.Count(in.Content, "!"); bangs > 0 {
		bonus := 5 * bangs
		if bonus > 20 {
			bonus = 20
		}
		score += bonus
	}

	lower := in.ContentLower()
	if strings.Contains(strings.ToLower(in.Sender), "noreply@") && strings.Contains(lower, "click here") {
		score += 20
	}
	if strings.Contains(lower, "$") && strings.Contains(lower, "free") {
		score += 15
	}
	if isShoutedSubject(in.Subject, 20) {
		score += 10
	}

	return domain.ClampScore(score)
}
