package analysis

import (
	"assistant_server/core/domain"
)

// =============================================================================
// Business-Relevance Scorer
// =============================================================================

// RelevanceScorer scores how likely an email is real business for the user.
// Base is 30. Invoice signals double-count with the flat invoice bonus on
// purpose: compounding payment signals should compound the score.
type RelevanceScorer struct{}

// NewRelevanceScorer creates a business-relevance scorer.
func NewRelevanceScorer() *RelevanceScorer {
	return &RelevanceScorer{}
}

// Score computes the business-relevance score for one email.
func (s *RelevanceScorer) Score(in *ScoreInput) int {
	score := 30

	score += 12 * len(in.Signals.Invoice)
	score += 8 * len(in.Signals.Business)

	if d := extractDomain(in.Sender); d != "" && !webmailDomains[d] {
		score += 15
	}

	lower := in.ContentLower()
	if containsAny(lower, sitePhrases) {
		score += 15
	}
	if containsAny(lower, quotePhrases) {
		score += 20
	}
	if len(in.Signals.Invoice) > 0 {
		score += 20
	}

	return domain.ClampScore(score)
}
