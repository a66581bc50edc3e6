package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/assignment-engine/internal/api/dto"
	"github.com/spec-kit/assignment-engine/internal/auth"
	"github.com/spec-kit/assignment-engine/internal/domain"
	apperrors "github.com/spec-kit/assignment-engine/pkg/util/errorutil"
)

// AgentHandler exposes agent workload endpoints.
type AgentHandler struct {
	workload WorkloadUseCases
	agents   AgentReader
}

// NewAgentHandler constructs handler.
func NewAgentHandler(workload WorkloadUseCases, agents AgentReader) *AgentHandler {
	return &AgentHandler{workload: workload, agents: agents}
}

// Workload GET /agents/workload.
func (h *AgentHandler) Workload(c *fiber.Ctx) error {
	agents, err := h.workload.ListAgentsWithWorkload(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.AgentWorkloadResponse, 0, len(agents))
	for i := range agents {
		items = append(items, workloadResponse(&agents[i], false))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdatePreferences PUT /agents/:id/preferences.
func (h *AgentHandler) UpdatePreferences(c *fiber.Ctx) error {
	agentID := c.Params("id")
	principal, _ := auth.PrincipalFromContext(c)
	if !auth.CanManageAgent(principal, agentID) {
		return apperrors.NewForbidden("cannot change another agent's preferences")
	}

	var req dto.UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	current, err := h.agents.GetByID(c.UserContext(), agentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return err
	}

	prefs := domain.AgentPreferences{
		AgentID:           agentID,
		MaxTickets:        current.MaxTickets,
		Categories:        current.PreferredCategories,
		Priorities:        current.PreferredPriorities,
		AutoAssignEnabled: current.AutoAssignEnabled,
	}
	if req.MaxTickets != nil {
		prefs.MaxTickets = *req.MaxTickets
	}
	if req.Categories != nil {
		prefs.Categories = req.Categories
	}
	if req.Priorities != nil {
		prefs.Priorities = make([]domain.TicketPriority, 0, len(req.Priorities))
		for _, raw := range req.Priorities {
			p, err := domain.ParsePriority(raw)
			if err != nil {
				return apperrors.NewValidationError(err.Error(), map[string]any{"priority": raw})
			}
			prefs.Priorities = append(prefs.Priorities, p)
		}
	}
	if req.AutoAssignEnabled != nil {
		prefs.AutoAssignEnabled = *req.AutoAssignEnabled
	}

	agent, err := h.workload.UpdateAgentPreferences(c.UserContext(), prefs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// Statistics GET /agents/:id/statistics.
func (h *AgentHandler) Statistics(c *fiber.Ctx) error {
	agentID := c.Params("id")
	principal, _ := auth.PrincipalFromContext(c)
	if !auth.CanManageAgent(principal, agentID) {
		return apperrors.NewForbidden("cannot view another agent's statistics")
	}
	stats, err := h.workload.AgentStatistics(c.UserContext(), agentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AgentStatisticsResponse{
		AgentID:       stats.AgentID,
		ActiveTickets: stats.ActiveTickets,
		TotalAssigned: stats.TotalAssigned,
		Resolved:      stats.Resolved,
		Breached:      stats.Breached,
		MaxTickets:    stats.MaxTickets,
		Utilization:   stats.Utilization,
		ComputedAt:    stats.ComputedAt,
	}})
}
