package analysis

import (
	"strings"

	"assistant_server/core/domain"
)

// =============================================================================
// Explainer
// =============================================================================

// categoryActions is the static per-category action list.
var categoryActions = map[domain.EmailCategory][]string{
	domain.CategoryUrgent: {
		"Respond as soon as possible",
		"Call the sender if a phone number is available",
	},
	domain.CategoryFollowUp: {
		"Reply with a status update",
		"Add a follow-up reminder",
	},
	domain.CategoryAdmin: {
		"File for your records",
	},
	domain.CategorySpam: {
		"No action needed",
	},
	domain.CategoryStandard: {
		"Review and reply when convenient",
	},
}

var categorySentences = map[domain.EmailCategory]string{
	domain.CategoryUrgent:   "Classified as urgent based on strong urgency signals.",
	domain.CategoryFollowUp: "The sender is following up on an earlier conversation.",
	domain.CategoryAdmin:    "Looks like an administrative or informational message.",
	domain.CategorySpam:     "Multiple spam indicators were detected.",
	domain.CategoryStandard: "A standard message with no special handling signals.",
}

// Explainer turns a classification into action flags, suggested next steps
// and a short deterministic rationale. Never stochastic, never empty on
// success.
type Explainer struct{}

// NewExplainer creates an explainer.
func NewExplainer() *Explainer {
	return &Explainer{}
}

// ActionRequired decides whether the email needs a response. Urgent always
// does, spam never does; otherwise the content must ask for one.
func (e *Explainer) ActionRequired(category domain.EmailCategory, in *ScoreInput) bool {
	switch category {
	case domain.CategoryUrgent:
		return true
	case domain.CategorySpam:
		return false
	}
	return containsAny(in.ContentLower(), responsePhrases)
}

// SuggestedActions returns the category action list, with a prioritize hint
// prepended whenever urgency crossed the attention threshold.
func (e *Explainer) SuggestedActions(category domain.EmailCategory, scores Scores) []string {
	base := categoryActions[category]
	actions := make([]string, 0, len(base)+1)
	if scores.Urgency > 70 {
		actions = append(actions, "Prioritize this email")
	}
	return append(actions, base...)
}

// Reasoning builds the rationale in a fixed order: urgency note, relevance
// note, category sentence.
func (e *Explainer) Reasoning(category domain.EmailCategory, scores Scores) string {
	var parts []string
	if scores.Urgency > 70 {
		parts = append(parts, "High urgency signals detected.")
	}
	if scores.Relevance > 70 {
		parts = append(parts, "Strong business relevance.")
	}
	parts = append(parts, categorySentences[category])
	return strings.Join(parts, " ")
}
