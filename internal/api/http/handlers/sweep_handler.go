package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/assignment-engine/internal/worker"
	apperrors "github.com/spec-kit/assignment-engine/pkg/util/errorutil"
)

// SweepHandler lets administrators run a sweep without waiting for its tick.
type SweepHandler struct {
	sweeps SweepTrigger
}

// NewSweepHandler constructs handler.
func NewSweepHandler(sweeps SweepTrigger) *SweepHandler {
	return &SweepHandler{sweeps: sweeps}
}

// Run POST /sweeps/:name/run.
func (h *SweepHandler) Run(c *fiber.Ctx) error {
	name := c.Params("name")
	err := h.sweeps.Trigger(c.UserContext(), name)
	switch {
	case errors.Is(err, worker.ErrUnknownSweep):
		return apperrors.NewNotFound("sweep", map[string]any{"name": name, "available": h.sweeps.Names()})
	case errors.Is(err, worker.ErrSweepInProgress):
		return apperrors.NewConflict("sweep already running", map[string]any{"name": name})
	case err != nil:
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"sweep": name, "status": "completed"}})
}
