package analysis

import (
	"assistant_server/core/domain"
)

// =============================================================================
// Classifier
// =============================================================================

// Scores bundles the three scorer outputs for classification.
type Scores struct {
	Urgency   int
	Relevance int
	Spam      int
}

// Classifier maps scores plus raw content to a category, then a priority.
// The rule order is load-bearing: an email that is both spam-like and urgent
// classifies as Spam because rule 1 is checked first.
type Classifier struct{}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Category decides the email category. First match wins.
func (c *Classifier) Category(scores Scores, in *ScoreInput) domain.EmailCategory {
	lower := in.ContentLower()

	switch {
	case scores.Spam > 60:
		return domain.CategorySpam
	case scores.Urgency > 70:
		return domain.CategoryUrgent
	case containsAny(lower, followUpPhrases):
		return domain.CategoryFollowUp
	case scores.Relevance > 70:
		return domain.CategoryStandard
	case len(in.Signals.Admin) > 0:
		return domain.CategoryAdmin
	default:
		return domain.CategoryStandard
	}
}

// Priority derives the handling priority after the category is known.
func (c *Classifier) Priority(category domain.EmailCategory, scores Scores) domain.Priority {
	switch {
	case category == domain.CategoryUrgent || scores.Urgency > 80:
		return domain.PriorityUrgent
	case scores.Urgency > 60 || (scores.Relevance > 80 && scores.Urgency > 40):
		return domain.PriorityHigh
	case scores.Urgency < 20 && scores.Relevance < 30:
		return domain.PriorityLow
	default:
		return domain.PriorityMedium
	}
}
