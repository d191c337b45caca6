package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Pattern Kinds & Keys
// =============================================================================

// PatternKind is the semantic family of a learned behavioral pattern.
type PatternKind string

const (
	KindResponseTiming         PatternKind = "response_timing"
	KindCommunicationTone      PatternKind = "communication_tone"
	KindCustomerCategorization PatternKind = "customer_categorization"
	KindJobValueEstimation     PatternKind = "job_value_estimation"
	KindTaskBatching           PatternKind = "task_batching"
)

// PatternKey addresses exactly one pattern per user. The discriminator
// distinguishes sub-cases within a kind (priority level, customer segment,
// keyword) and is part of the lookup key, never free text inside the payload.
type PatternKey struct {
	Kind          PatternKind `json:"kind"`
	Discriminator string      `json:"discriminator"`
}

func (k PatternKey) String() string {
	return string(k.Kind) + ":" + k.Discriminator
}

// ConfidenceSeed returns the initial confidence assigned on first observation.
// Explicit categorical assignments start with more trust than passively
// observed habits.
func (k PatternKind) ConfidenceSeed() float64 {
	switch k {
	case KindCustomerCategorization:
		return 0.4
	case KindJobValueEstimation:
		return 0.3
	default:
		return 0.2
	}
}

// DeactivationFloor returns the confidence at or below which the pattern is
// marked inactive. The record is never deleted by the learning path.
func (k PatternKind) DeactivationFloor() float64 {
	switch k {
	case KindCustomerCategorization, KindJobValueEstimation:
		return 0.2
	default:
		return 0.1
	}
}

// =============================================================================
// Pattern Entity
// =============================================================================

var (
	// ErrStalePattern is returned by UpdateObserved when the stored occurrence
	// count no longer matches the caller's read. Callers re-read and retry.
	ErrStalePattern = errors.New("pattern: stale occurrence count")

	// ErrCorruptPayload marks a stored payload that no longer decodes. The
	// pattern is treated as absent for the current call, never fatal.
	ErrCorruptPayload = errors.New("pattern: corrupt payload")
)

// Pattern is one learned per-user behavioral record. Confidence and
// occurrences only move together, in lockstep with a folded observation;
// occurrences never decreases.
type Pattern struct {
	ID          int64          `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Key         PatternKey     `json:"key"`
	Payload     PatternPayload `json:"payload"`
	Confidence  float64        `json:"confidence"` // clamped [0,1]
	Occurrences int            `json:"occurrences"`
	IsActive    bool           `json:"is_active"`
	LastSeenAt  time.Time      `json:"last_seen_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

// =============================================================================
// Observations & Feedback
// =============================================================================

// Feedback qualifies an observation: explicit ground truth moves confidence
// in larger steps than passive observation.
type Feedback string

const (
	FeedbackNone     Feedback = "none"
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
)

// Observation is one data point folded into a pattern. Value carries numeric
// observations (hours, dollars, batch sizes); Label carries categorical ones
// (tone names, customer segments).
type Observation struct {
	Key        PatternKey `json:"key"`
	Value      float64    `json:"value"`
	Label      string     `json:"label,omitempty"`
	Feedback   Feedback   `json:"feedback"`
	ObservedAt time.Time  `json:"observed_at"`
}

// =============================================================================
// Tagged-Union Payloads
// =============================================================================

// PatternPayload is the kind-specific learned state. Each variant carries its
// own strongly typed fields; the variant is selected by the key's kind.
type PatternPayload interface {
	PatternKind() PatternKind

	// Seed initializes the payload from the first observation.
	Seed(obs Observation)

	// Fold merges one more observation. oldOccurrences is the count of
	// observations already folded in, so running averages can be computed as
	// (old*n + v) / (n+1).
	Fold(obs Observation, oldOccurrences int)
}

func runningAverage(old float64, oldOccurrences int, v float64) float64 {
	return (old*float64(oldOccurrences) + v) / float64(oldOccurrences+1)
}

// TimingPayload tracks how quickly the user responds to emails of a given
// urgency label.
type TimingPayload struct {
	AverageResponseHours float64 `json:"average_response_hours"`
	UrgencyLabel         string  `json:"urgency_label,omitempty"`
}

func (p *TimingPayload) PatternKind() PatternKind { return KindResponseTiming }

func (p *TimingPayload) Seed(obs Observation) {
	p.AverageResponseHours = obs.Value
	p.UrgencyLabel = obs.Label
}

func (p *TimingPayload) Fold(obs Observation, oldOccurrences int) {
	p.AverageResponseHours = runningAverage(p.AverageResponseHours, oldOccurrences, obs.Value)
	if obs.Label != "" {
		p.UrgencyLabel = obs.Label
	}
}

// TonePayload tracks the communication style the user prefers for a contact
// segment.
type TonePayload struct {
	Tone       string `json:"tone"`
	Vocabulary string `json:"vocabulary,omitempty"`
	Structure  string `json:"structure,omitempty"`
}

func (p *TonePayload) PatternKind() PatternKind { return KindCommunicationTone }

func (p *TonePayload) Seed(obs Observation) { p.Tone = obs.Label }

func (p *TonePayload) Fold(obs Observation, _ int) {
	if obs.Label != "" {
		p.Tone = obs.Label
	}
}

// CategorizationPayload records an explicit customer-segment assignment.
type CategorizationPayload struct {
	Segment          string   `json:"segment"`
	AssignedPriority Priority `json:"assigned_priority,omitempty"`
}

func (p *CategorizationPayload) PatternKind() PatternKind { return KindCustomerCategorization }

func (p *CategorizationPayload) Seed(obs Observation) { p.Segment = obs.Label }

func (p *CategorizationPayload) Fold(obs Observation, _ int) {
	if obs.Label != "" {
		p.Segment = obs.Label
	}
}

// JobValuePayload tracks the running-average dollar value of jobs of one type.
type JobValuePayload struct {
	AverageValue float64 `json:"average_value"`
	JobType      string  `json:"job_type,omitempty"`
}

func (p *JobValuePayload) PatternKind() PatternKind { return KindJobValueEstimation }

func (p *JobValuePayload) Seed(obs Observation) {
	p.AverageValue = obs.Value
	p.JobType = obs.Label
}

func (p *JobValuePayload) Fold(obs Observation, oldOccurrences int) {
	p.AverageValue = runningAverage(p.AverageValue, oldOccurrences, obs.Value)
}

// BatchingPayload tracks how many similar tasks the user handles in one
// sitting and when.
type BatchingPayload struct {
	AverageBatchSize float64 `json:"average_batch_size"`
	PreferredWindow  string  `json:"preferred_window,omitempty"`
}

func (p *BatchingPayload) PatternKind() PatternKind { return KindTaskBatching }

func (p *BatchingPayload) Seed(obs Observation) {
	p.AverageBatchSize = obs.Value
	p.PreferredWindow = obs.Label
}

func (p *BatchingPayload) Fold(obs Observation, oldOccurrences int) {
	p.AverageBatchSize = runningAverage(p.AverageBatchSize, oldOccurrences, obs.Value)
	if obs.Label != "" {
		p.PreferredWindow = obs.Label
	}
}

// NewPayload returns the zero payload variant for a kind.
func NewPayload(kind PatternKind) (PatternPayload, error) {
	switch kind {
	case KindResponseTiming:
		return &TimingPayload{}, nil
	case KindCommunicationTone:
		return &TonePayload{}, nil
	case KindCustomerCategorization:
		return &CategorizationPayload{}, nil
	case KindJobValueEstimation:
		return &JobValuePayload{}, nil
	case KindTaskBatching:
		return &BatchingPayload{}, nil
	default:
		return nil, fmt.Errorf("pattern: unknown kind %q", kind)
	}
}

// EncodePayload serializes a payload for storage.
func EncodePayload(p PatternPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("pattern: nil payload")
	}
	return json.Marshal(p)
}

// DecodePayload deserializes a stored payload into the variant selected by
// kind. Any failure is reported as ErrCorruptPayload so callers can skip the
// record instead of failing the batch.
func DecodePayload(kind PatternKind, raw []byte) (PatternPayload, error) {
	p, err := NewPayload(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload for kind %q", ErrCorruptPayload, kind)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return p, nil
}

// =============================================================================
// Repository
// =============================================================================

// PatternUpdate carries the post-fold state written back by the learner.
type PatternUpdate struct {
	Payload     PatternPayload
	Confidence  float64
	Occurrences int
	IsActive    bool
	LastSeenAt  time.Time
}

// PatternRepository is the storage collaborator for learned patterns. The
// learner never issues its own transactions; it only calls these verbs.
//
// Find returns (nil, nil) when no pattern exists for the key. UpdateObserved
// performs a conditional write guarded by expectedOccurrences and returns
// ErrStalePattern when a concurrent fold won the race.
type PatternRepository interface {
	Find(ctx context.Context, userID uuid.UUID, key PatternKey) (*Pattern, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Pattern, error)
	Create(ctx context.Context, pattern *Pattern) error
	UpdateObserved(ctx context.Context, id int64, update PatternUpdate, expectedOccurrences int) error
}
