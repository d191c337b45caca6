package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"assistant_server/core/domain"
	"assistant_server/core/port/out"
	"assistant_server/core/service/analysis"
	"assistant_server/pkg/response"
)

// AnalysisHandler handles email analysis HTTP requests.
type AnalysisHandler struct {
	analysisSvc *analysis.Service
	producer    out.MessageProducer
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisSvc *analysis.Service, producer out.MessageProducer) *AnalysisHandler {
	return &AnalysisHandler{
		analysisSvc: analysisSvc,
		producer:    producer,
	}
}

// RegisterRoutes registers analysis routes.
func (h *AnalysisHandler) RegisterRoutes(app fiber.Router) {
	emails := app.Group("/emails")
	emails.Post("/analyze", h.Analyze)
	emails.Post("/analyze/batch", h.AnalyzeBatch)
	emails.Get("/analyses", h.ListAnalyses)
}

type analyzeRequest struct {
	EmailID     string `json:"email_id"`
	Subject     string `json:"subject"`
	FromEmail   string `json:"from_email"`
	Snippet     string `json:"snippet"`
	BodyPreview string `json:"body_preview"`
	ReceivedAt  string `json:"received_at"`
}

func (r *analyzeRequest) toSignal(userID uuid.UUID) *domain.EmailSignal {
	receivedAt := time.Now()
	if r.ReceivedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, r.ReceivedAt); err == nil {
			receivedAt = parsed
		}
	}
	return &domain.EmailSignal{
		UserID:      userID,
		EmailID:     r.EmailID,
		Subject:     r.Subject,
		FromEmail:   r.FromEmail,
		Snippet:     r.Snippet,
		BodyPreview: r.BodyPreview,
		ReceivedAt:  receivedAt,
	}
}

// Analyze scores one email synchronously, or enqueues it when async=true.
func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.EmailID == "" {
		return response.BadRequest(c, "email_id is required")
	}

	signal := req.toSignal(userID)

	if c.QueryBool("async", false) {
		if h.producer == nil {
			return response.InternalError(c, "async pipeline not configured")
		}
		job := &out.EmailReceivedJob{JobID: uuid.New().String(), Signal: *signal}
		if err := h.producer.PublishEmailReceived(c.Context(), job); err != nil {
			return response.InternalError(c, "failed to enqueue analysis")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"job_id":   job.JobID,
			"email_id": signal.EmailID,
		})
	}

	a, err := h.analysisSvc.Analyze(c.Context(), signal)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	return response.OK(c, a)
}

type analyzeBatchRequest struct {
	Emails []analyzeRequest `json:"emails"`
}

// AnalyzeBatch scores a batch of emails. Invalid items are skipped; the
// response may carry fewer analyses than the request.
func (h *AnalysisHandler) AnalyzeBatch(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	var req analyzeBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if len(req.Emails) == 0 {
		return response.BadRequest(c, "emails is required")
	}

	signals := make([]*domain.EmailSignal, len(req.Emails))
	for i := range req.Emails {
		signals[i] = req.Emails[i].toSignal(userID)
	}

	analyses := h.analysisSvc.AnalyzeBatch(c.Context(), signals)

	return response.OKWithMeta(c, analyses, &response.Meta{
		Total: len(analyses),
	})
}

// ListAnalyses returns the persisted analysis history for the current user.
func (h *AnalysisHandler) ListAnalyses(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	page := &domain.PageRequest{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}

	analyses, err := h.analysisSvc.History(c.Context(), userID, page)
	if err != nil {
		return response.InternalError(c, "failed to list analyses")
	}

	return response.OKWithMeta(c, analyses, &response.Meta{
		Total:    len(analyses),
		Page:     page.Page,
		PageSize: page.Limit(),
	})
}
