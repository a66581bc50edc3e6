package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/assignment-engine/internal/api/dto"
	"github.com/spec-kit/assignment-engine/internal/auth"
	apperrors "github.com/spec-kit/assignment-engine/pkg/util/errorutil"
)

// AssignmentHandler exposes ticket assignment endpoints.
type AssignmentHandler struct {
	assignments AssignmentUseCases
	workload    WorkloadUseCases
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(assignments AssignmentUseCases, workload WorkloadUseCases) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, workload: workload}
}

// Candidates GET /tickets/:id/candidates.
func (h *AssignmentHandler) Candidates(c *fiber.Ctx) error {
	agents, err := h.workload.ListCandidateAgentsForTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AgentWorkloadResponse, 0, len(agents))
	for i := range agents {
		items = append(items, workloadResponse(&agents[i], true))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Assign POST /tickets/:id/assign.
func (h *AssignmentHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AgentID == "" {
		return apperrors.NewValidationError("agent_id required", nil)
	}
	ticket, err := h.assignments.Assign(c.UserContext(), c.Params("id"), req.AgentID, actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Unassign DELETE /tickets/:id/assign.
func (h *AssignmentHandler) Unassign(c *fiber.Ctx) error {
	ticket, err := h.assignments.Unassign(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AutoAssign POST /tickets/:id/auto-assign.
func (h *AssignmentHandler) AutoAssign(c *fiber.Ctx) error {
	ticket, err := h.assignments.AutoAssign(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.AutoAssignResponse{Assigned: ticket != nil}
	if ticket != nil {
		t := ticketResponse(ticket)
		resp.Ticket = &t
	}
	return c.JSON(fiber.Map{"data": resp})
}

// BulkAssign POST /tickets/bulk-assign.
func (h *AssignmentHandler) BulkAssign(c *fiber.Ctx) error {
	var req dto.BulkAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AgentID == "" || len(req.TicketIDs) == 0 {
		return apperrors.NewValidationError("ticket_ids and agent_id required", nil)
	}
	tickets, err := h.assignments.BulkAssign(c.UserContext(), req.TicketIDs, req.AgentID, actorID(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": items})
}

// History GET /tickets/:id/assignment-history.
func (h *AssignmentHandler) History(c *fiber.Ctx) error {
	records, err := h.assignments.AssignmentHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ActivityResponse, 0, len(records))
	for i := range records {
		items = append(items, activityResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func actorID(c *fiber.Ctx) string {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return ""
	}
	return principal.UserID()
}
