package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/assignment-engine/internal/api/dto"
	"github.com/spec-kit/assignment-engine/internal/domain"
	apperrors "github.com/spec-kit/assignment-engine/pkg/util/errorutil"
)

// SLAHandler exposes SLA endpoints.
type SLAHandler struct {
	sla SLAUseCases
}

// NewSLAHandler constructs handler.
func NewSLAHandler(sla SLAUseCases) *SLAHandler {
	return &SLAHandler{sla: sla}
}

// Calculate POST /tickets/:id/sla.
func (h *SLAHandler) Calculate(c *fiber.Ctx) error {
	var req dto.CalculateSLARequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CreatedAt.IsZero() {
		return apperrors.NewValidationError("created_at required", nil)
	}
	due, err := h.sla.CalculateDueDates(c.UserContext(), c.Params("id"), req.Priority, req.CreatedAt)
	if err != nil {
		return err
	}
	resp := dto.SLADueDatesResponse{Configured: due != nil}
	if due != nil {
		resp.ResponseDue = &due.ResponseDue
		resp.ResolutionDue = &due.ResolutionDue
	}
	return c.JSON(fiber.Map{"data": resp})
}

// ListConfigs GET /sla/configs.
func (h *SLAHandler) ListConfigs(c *fiber.Ctx) error {
	configs, err := h.sla.ListConfigs(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SLAConfigPayload, 0, len(configs))
	for i := range configs {
		items = append(items, slaConfigPayload(&configs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpsertConfig PUT /sla/configs.
func (h *SLAHandler) UpsertConfig(c *fiber.Ctx) error {
	var req dto.SLAConfigPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	cfg, err := h.sla.UpsertConfig(c.UserContext(), domain.SLAConfig{
		Priority:        req.Priority,
		ResponseHours:   req.ResponseHours,
		ResolutionHours: req.ResolutionHours,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaConfigPayload(cfg)})
}
