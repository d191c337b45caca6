package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"assistant_server/core/port/out"
	"assistant_server/core/service/analysis"
	"assistant_server/core/service/learning"
	"assistant_server/pkg/logger"
)

// Handler routes pool messages to their processors.
type Handler struct {
	analysisSvc *analysis.Service
	learner     *learning.Learner
	producer    out.MessageProducer
	log         *logger.Logger
}

// NewHandler creates a job handler. producer may be nil; completion events
// are then skipped.
func NewHandler(analysisSvc *analysis.Service, learner *learning.Learner, producer out.MessageProducer, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		analysisSvc: analysisSvc,
		learner:     learner,
		producer:    producer,
		log:         log,
	}
}

// Process handles one message. Unknown job types are logged and dropped,
// never retried.
func (h *Handler) Process(ctx context.Context, msg *Message) error {
	h.log.WithField("job_type", msg.Type).Debug("processing message")

	switch msg.Type {
	case JobEmailAnalyze:
		return h.processAnalyze(ctx, msg)
	case JobPatternObserve:
		return h.processObserve(ctx, msg)
	default:
		h.log.WithField("job_type", msg.Type).Warn("unknown job type")
		return nil
	}
}

func (h *Handler) processAnalyze(ctx context.Context, msg *Message) error {
	var job out.EmailReceivedJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		return fmt.Errorf("failed to parse analyze job: %w", err)
	}

	a, err := h.analysisSvc.Analyze(ctx, &job.Signal)
	if err != nil {
		return fmt.Errorf("analyze email %s: %w", job.Signal.EmailID, err)
	}

	if h.producer != nil {
		event := &out.AnalysisCompletedEvent{
			UserID:      a.UserID,
			EmailID:     a.EmailID,
			Priority:    a.PriorityLevel,
			Category:    a.Category,
			Urgency:     a.UrgencyScore,
			CompletedAt: time.Now(),
		}
		if err := h.producer.PublishAnalysisCompleted(ctx, event); err != nil {
			// The analysis itself succeeded and is persisted; a missed event
			// only delays downstream consumers.
			h.log.WithError(err).WithField("email_id", a.EmailID).
				Warn("failed to publish analysis completed event")
		}
	}

	return nil
}

func (h *Handler) processObserve(ctx context.Context, msg *Message) error {
	var job out.ObservationJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		return fmt.Errorf("failed to parse observation job: %w", err)
	}

	if _, err := h.learner.Observe(ctx, job.UserID, job.Observation); err != nil {
		return fmt.Errorf("fold observation %s: %w", job.Observation.Key.String(), err)
	}

	return nil
}
