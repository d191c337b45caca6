package analysis

import (
	"testing"
	"time"

	"assistant_server/core/domain"
)

// TestClassifierCategoryPrecedence asserts the decision order, not just the
// thresholds: spam beats urgency, urgency beats follow-up, and so on.
func TestClassifierCategoryPrecedence(t *testing.T) {
	ex := NewExtractor()
	c := NewClassifier()
	now := time.Now()

	tests := []struct {
		name    string
		scores  Scores
		content string
		want    domain.EmailCategory
	}{
		{
			name:    "spam beats urgency",
			scores:  Scores{Spam: 70, Urgency: 90},
			content: "urgent click here",
			want:    domain.CategorySpam,
		},
		{
			name:    "urgency beats follow-up phrase",
			scores:  Scores{Urgency: 75},
			content: "following up urgently",
			want:    domain.CategoryUrgent,
		},
		{
			name:    "follow-up phrase beats relevance",
			scores:  Scores{Relevance: 90},
			content: "just following up on the quote",
			want:    domain.CategoryFollowUp,
		},
		{
			name:    "relevance threshold",
			scores:  Scores{Relevance: 71},
			content: "the fence project",
			want:    domain.CategoryStandard,
		},
		{
			name:    "admin phrase",
			scores:  Scores{Relevance: 50},
			content: "your monthly statement and receipt",
			want:    domain.CategoryAdmin,
		},
		{
			name:    "default standard",
			scores:  Scores{},
			content: "hello",
			want:    domain.CategoryStandard,
		},
		{
			name:    "spam threshold is strict",
			scores:  Scores{Spam: 60},
			content: "hello",
			want:    domain.CategoryStandard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scoreInput(ex, "", tt.content, "a@b.com", now, now)
			got := c.Category(tt.scores, in)
			if got != tt.want {
				t.Errorf("Category() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestClassifierPriority covers the priority derivation rules.
func TestClassifierPriority(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name     string
		category domain.EmailCategory
		scores   Scores
		want     domain.Priority
	}{
		{
			name:     "urgent category forces urgent priority",
			category: domain.CategoryUrgent,
			scores:   Scores{Urgency: 50},
			want:     domain.PriorityUrgent,
		},
		{
			name:     "urgency above 80 forces urgent priority",
			category: domain.CategoryStandard,
			scores:   Scores{Urgency: 81},
			want:     domain.PriorityUrgent,
		},
		{
			name:     "urgency above 60 is high",
			category: domain.CategoryStandard,
			scores:   Scores{Urgency: 61},
			want:     domain.PriorityHigh,
		},
		{
			name:     "relevant and somewhat urgent is high",
			category: domain.CategoryStandard,
			scores:   Scores{Urgency: 41, Relevance: 81},
			want:     domain.PriorityHigh,
		},
		{
			name:     "quiet and irrelevant is low",
			category: domain.CategoryAdmin,
			scores:   Scores{Urgency: 10, Relevance: 20},
			want:     domain.PriorityLow,
		},
		{
			name:     "everything else is medium",
			category: domain.CategoryStandard,
			scores:   Scores{Urgency: 30, Relevance: 50},
			want:     domain.PriorityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Priority(tt.category, tt.scores)
			if got != tt.want {
				t.Errorf("Priority() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestExplainer covers action flags, the prioritize prefix and rationale
// ordering.
func TestExplainer(t *testing.T) {
	ex := NewExtractor()
	e := NewExplainer()
	now := time.Now()

	t.Run("urgent always requires action", func(t *testing.T) {
		in := scoreInput(ex, "", "pipes burst", "a@b.com", now, now)
		if !e.ActionRequired(domain.CategoryUrgent, in) {
			t.Error("urgent category must require action")
		}
	})

	t.Run("spam never requires action", func(t *testing.T) {
		in := scoreInput(ex, "", "please respond click here", "a@b.com", now, now)
		if e.ActionRequired(domain.CategorySpam, in) {
			t.Error("spam category must not require action")
		}
	})

	t.Run("response phrase requires action", func(t *testing.T) {
		in := scoreInput(ex, "", "please confirm the appointment", "a@b.com", now, now)
		if !e.ActionRequired(domain.CategoryStandard, in) {
			t.Error("expected action required for response request")
		}
	})

	t.Run("prioritize hint prepended above urgency 70", func(t *testing.T) {
		actions := e.SuggestedActions(domain.CategoryFollowUp, Scores{Urgency: 71})
		if len(actions) == 0 || actions[0] != "Prioritize this email" {
			t.Errorf("expected prioritize hint first, got %v", actions)
		}
	})

	t.Run("reasoning is ordered and never empty", func(t *testing.T) {
		got := e.Reasoning(domain.CategoryStandard, Scores{Urgency: 75, Relevance: 80})
		want := "High urgency signals detected. Strong business relevance. A standard message with no special handling signals."
		if got != want {
			t.Errorf("Reasoning() = %q, want %q", got, want)
		}
	})
}
