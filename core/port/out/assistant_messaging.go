// Package out defines outbound ports implemented by adapters.
package out

import (
	"context"
	"time"

	"github.com/google/uuid"

	"assistant_server/core/domain"
)

// EmailReceivedJob asks the worker to analyze one incoming email.
type EmailReceivedJob struct {
	JobID  string             `json:"job_id"`
	Signal domain.EmailSignal `json:"signal"`
}

// ObservationJob asks the worker to fold one observation into a pattern.
type ObservationJob struct {
	JobID       string             `json:"job_id"`
	UserID      uuid.UUID          `json:"user_id"`
	Observation domain.Observation `json:"observation"`
}

// AnalysisCompletedEvent is published after an email has been analyzed and
// persisted. Downstream consumers (morning brief, notification dispatch)
// subscribe to it.
type AnalysisCompletedEvent struct {
	UserID      uuid.UUID            `json:"user_id"`
	EmailID     string               `json:"email_id"`
	Priority    domain.Priority      `json:"priority"`
	Category    domain.EmailCategory `json:"category"`
	Urgency     int                  `json:"urgency_score"`
	CompletedAt time.Time            `json:"completed_at"`
}

// MessageProducer publishes jobs and events to the message streams.
type MessageProducer interface {
	PublishEmailReceived(ctx context.Context, job *EmailReceivedJob) error
	PublishObservation(ctx context.Context, job *ObservationJob) error
	PublishAnalysisCompleted(ctx context.Context, event *AnalysisCompletedEvent) error
}
