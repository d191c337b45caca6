package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"assistant_server/core/domain"
	"assistant_server/core/port/out"
	"assistant_server/core/service/learning"
	"assistant_server/pkg/response"
)

// PatternHandler handles pattern observation and feedback requests.
type PatternHandler struct {
	learner  *learning.Learner
	patterns domain.PatternRepository
	producer out.MessageProducer
}

// NewPatternHandler creates a new PatternHandler.
func NewPatternHandler(learner *learning.Learner, patterns domain.PatternRepository, producer out.MessageProducer) *PatternHandler {
	return &PatternHandler{
		learner:  learner,
		patterns: patterns,
		producer: producer,
	}
}

// RegisterRoutes registers pattern routes.
func (h *PatternHandler) RegisterRoutes(app fiber.Router) {
	patterns := app.Group("/patterns")
	patterns.Post("/observations", h.Observe)
	patterns.Get("/", h.ListPatterns)
}

type observationRequest struct {
	Kind          string  `json:"kind"`
	Discriminator string  `json:"discriminator"`
	Value         float64 `json:"value"`
	Label         string  `json:"label"`
	Feedback      string  `json:"feedback"`
}

func (r *observationRequest) toObservation(now time.Time) domain.Observation {
	feedback := domain.FeedbackNone
	switch domain.Feedback(r.Feedback) {
	case domain.FeedbackPositive:
		feedback = domain.FeedbackPositive
	case domain.FeedbackNegative:
		feedback = domain.FeedbackNegative
	}
	return domain.Observation{
		Key: domain.PatternKey{
			Kind:          domain.PatternKind(r.Kind),
			Discriminator: r.Discriminator,
		},
		Value:      r.Value,
		Label:      r.Label,
		Feedback:   feedback,
		ObservedAt: now,
	}
}

// Observe folds one observation into the user's pattern, synchronously by
// default or through the stream when async=true.
func (h *PatternHandler) Observe(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	var req observationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.Kind == "" {
		return response.BadRequest(c, "kind is required")
	}
	if req.Discriminator == "" {
		return response.BadRequest(c, "discriminator is required")
	}

	obs := req.toObservation(time.Now())

	if c.QueryBool("async", false) {
		if h.producer == nil {
			return response.InternalError(c, "async pipeline not configured")
		}
		job := &out.ObservationJob{
			JobID:       uuid.New().String(),
			UserID:      userID,
			Observation: obs,
		}
		if err := h.producer.PublishObservation(c.Context(), job); err != nil {
			return response.InternalError(c, "failed to enqueue observation")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"job_id": job.JobID,
			"key":    obs.Key.String(),
		})
	}

	pattern, err := h.learner.Observe(c.Context(), userID, obs)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	return response.OK(c, pattern)
}

// ListPatterns returns every learned pattern for the current user, including
// inactive ones.
func (h *PatternHandler) ListPatterns(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	patterns, err := h.patterns.ListByUser(c.Context(), userID)
	if err != nil {
		return response.InternalError(c, "failed to list patterns")
	}

	return response.OKWithMeta(c, patterns, &response.Meta{
		Total: len(patterns),
	})
}
