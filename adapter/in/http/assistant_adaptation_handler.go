package http

import (
	"github.com/gofiber/fiber/v2"

	"assistant_server/core/domain"
	"assistant_server/core/service/learning"
	"assistant_server/pkg/response"
)

// AdaptationHandler exposes trusted learned adaptations and the derived
// business profile.
type AdaptationHandler struct {
	engine *learning.AdaptationEngine
}

// NewAdaptationHandler creates a new AdaptationHandler.
func NewAdaptationHandler(engine *learning.AdaptationEngine) *AdaptationHandler {
	return &AdaptationHandler{engine: engine}
}

// RegisterRoutes registers adaptation routes.
func (h *AdaptationHandler) RegisterRoutes(app fiber.Router) {
	adaptations := app.Group("/adaptations")
	adaptations.Get("/", h.ListAdaptations)
	adaptations.Get("/:kind/:discriminator", h.ApplyAdaptation)

	app.Get("/profile", h.BusinessProfile)
}

// ListAdaptations returns all adaptations the user has earned enough
// confidence for, most trusted first.
func (h *AdaptationHandler) ListAdaptations(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	adaptations, err := h.engine.ListAdaptations(c.Context(), userID)
	if err != nil {
		return response.InternalError(c, "failed to list adaptations")
	}

	return response.OKWithMeta(c, adaptations, &response.Meta{
		Total: len(adaptations),
	})
}

// ApplyAdaptation returns one adaptation by key. A null body means no trusted
// adaptation exists; callers fall back to their defaults.
func (h *AdaptationHandler) ApplyAdaptation(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	key := domain.PatternKey{
		Kind:          domain.PatternKind(c.Params("kind")),
		Discriminator: c.Params("discriminator"),
	}

	adaptation, err := h.engine.ApplyAdaptation(c.Context(), userID, key)
	if err != nil {
		return response.InternalError(c, "failed to resolve adaptation")
	}

	return response.OK(c, adaptation)
}

// BusinessProfile returns the on-demand projection of everything learned
// about the user's business.
func (h *AdaptationHandler) BusinessProfile(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	profile, err := h.engine.BusinessProfile(c.Context(), userID)
	if err != nil {
		return response.InternalError(c, "failed to build business profile")
	}

	return response.OK(c, profile)
}
