package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdaptationThreshold is the confidence a pattern needs before it is surfaced
// as a recommendation or counted into the business profile.
const AdaptationThreshold = 0.3

// Recommendation is the kind-shaped suggestion derived from a trusted pattern.
type Recommendation interface {
	RecommendationKind() PatternKind
}

// TimingRecommendation suggests a follow-up cadence.
type TimingRecommendation struct {
	RecommendedFollowUpHours float64 `json:"recommended_follow_up_hours"`
	UrgencyLabel             string  `json:"urgency_label,omitempty"`
}

func (TimingRecommendation) RecommendationKind() PatternKind { return KindResponseTiming }

// ToneRecommendation suggests drafting style for replies.
type ToneRecommendation struct {
	Tone       string `json:"tone"`
	Vocabulary string `json:"vocabulary,omitempty"`
	Structure  string `json:"structure,omitempty"`
}

func (ToneRecommendation) RecommendationKind() PatternKind { return KindCommunicationTone }

// CategorizationRecommendation suggests how to treat a customer segment.
type CategorizationRecommendation struct {
	Segment           string   `json:"segment"`
	SuggestedPriority Priority `json:"suggested_priority,omitempty"`
}

func (CategorizationRecommendation) RecommendationKind() PatternKind {
	return KindCustomerCategorization
}

// JobValueRecommendation estimates the value of incoming work of one type.
type JobValueRecommendation struct {
	EstimatedValue float64 `json:"estimated_value"`
	JobType        string  `json:"job_type,omitempty"`
}

func (JobValueRecommendation) RecommendationKind() PatternKind { return KindJobValueEstimation }

// BatchingRecommendation suggests grouping similar tasks.
type BatchingRecommendation struct {
	SuggestedBatchSize int    `json:"suggested_batch_size"`
	PreferredWindow    string `json:"preferred_window,omitempty"`
}

func (BatchingRecommendation) RecommendationKind() PatternKind { return KindTaskBatching }

// Adaptation pairs a pattern key with its derived recommendation.
type Adaptation struct {
	Key            PatternKey     `json:"key"`
	Confidence     float64        `json:"confidence"`
	Occurrences    int            `json:"occurrences"`
	Recommendation Recommendation `json:"recommendation"`
}

// BusinessProfile is an on-demand projection over a user's trusted patterns.
// It has no independent lifecycle and is never stored.
type BusinessProfile struct {
	UserID           uuid.UUID `json:"user_id"`
	DominantTone     string    `json:"dominant_tone,omitempty"`
	CustomerSegments []string  `json:"customer_segments,omitempty"`
	AverageJobValue  float64   `json:"average_job_value,omitempty"`
	FollowUpHours    float64   `json:"follow_up_hours,omitempty"`
	PatternCount     int       `json:"pattern_count"`
	GeneratedAt      time.Time `json:"generated_at"`
}
