package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Priority represents how urgently an email must be handled.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// EmailCategory represents the kind of email the classifier decided on.
type EmailCategory string

const (
	CategoryUrgent   EmailCategory = "urgent"
	CategoryStandard EmailCategory = "standard"
	CategoryFollowUp EmailCategory = "follow_up"
	CategoryAdmin    EmailCategory = "admin"
	CategorySpam     EmailCategory = "spam"
)

// EmailSignal is the raw input for one analysis call. It is supplied per call
// and never stored by the engine.
type EmailSignal struct {
	UserID      uuid.UUID `json:"user_id"`
	EmailID     string    `json:"email_id"`
	Subject     string    `json:"subject"`
	FromEmail   string    `json:"from_email"`
	Snippet     string    `json:"snippet"`
	BodyPreview string    `json:"body_preview,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

// EmailAnalysis is the persisted result of scoring and classifying one email.
// The engine creates it once per analysis call and never mutates it afterwards;
// NotificationSent is owned by the downstream dispatch collaborator.
type EmailAnalysis struct {
	ID     int64     `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	EmailID string `json:"email_id"`

	PriorityLevel          Priority      `json:"priority"`
	Category               EmailCategory `json:"category"`
	UrgencyScore           int           `json:"urgency_score"`            // 0-100
	BusinessRelevanceScore int           `json:"business_relevance_score"` // 0-100

	ActionRequired   bool     `json:"action_required"`
	MatchedKeywords  []string `json:"matched_keywords"` // ordered, at most 10
	SuggestedActions []string `json:"suggested_actions"`
	Reasoning        string   `json:"reasoning"`

	NotificationSent bool      `json:"notification_sent"`
	AnalyzedAt       time.Time `json:"analyzed_at"`
}

// IsUrgent reports whether the analysis warrants immediate attention.
func (a *EmailAnalysis) IsUrgent() bool {
	return a.PriorityLevel == PriorityUrgent || a.Category == CategoryUrgent
}

// AnalysisRepository persists EmailAnalysis records. The engine only calls
// these verbs; transactions and id assignment belong to the adapter.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *EmailAnalysis) error
	GetByEmailID(ctx context.Context, userID uuid.UUID, emailID string) (*EmailAnalysis, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*EmailAnalysis, error)
	MarkNotificationSent(ctx context.Context, id int64) error
}
