package handlers

import (
	"github.com/spec-kit/assignment-engine/internal/api/dto"
	"github.com/spec-kit/assignment-engine/internal/domain"
)

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                    t.ID,
		TicketNumber:          t.TicketNumber,
		Title:                 t.Title,
		Status:                t.Status,
		Priority:              t.Priority,
		Category:              t.Category,
		AssigneeID:            t.AssigneeID,
		SLAResponseDue:        t.SLAResponseDue,
		SLAResolutionDue:      t.SLAResolutionDue,
		SLABreached:           t.SLABreached,
		SLAResponseBreached:   t.SLAResponseBreached,
		SLAResolutionBreached: t.SLAResolutionBreached,
		UpdatedAt:             t.UpdatedAt,
	}
}

func workloadResponse(w *domain.AgentWorkload, withScore bool) dto.AgentWorkloadResponse {
	resp := dto.AgentWorkloadResponse{
		ID:                  w.ID,
		Name:                w.Name,
		Email:               w.Email,
		Role:                w.Role,
		MaxTickets:          w.MaxTickets,
		ActiveTickets:       w.ActiveTickets,
		RemainingCapacity:   w.RemainingCapacity(),
		PreferredCategories: nonNilStrings(w.PreferredCategories),
		PreferredPriorities: nonNilPriorities(w.PreferredPriorities),
		AutoAssignEnabled:   w.AutoAssignEnabled,
	}
	if withScore {
		score := w.MatchScore
		resp.MatchScore = &score
	}
	return resp
}

func agentResponse(a *domain.Agent) dto.AgentResponse {
	return dto.AgentResponse{
		ID:                  a.ID,
		Name:                a.Name,
		Role:                a.Role,
		MaxTickets:          a.MaxTickets,
		PreferredCategories: nonNilStrings(a.PreferredCategories),
		PreferredPriorities: nonNilPriorities(a.PreferredPriorities),
		AutoAssignEnabled:   a.AutoAssignEnabled,
	}
}

func activityResponse(r *domain.ActivityRecord) dto.ActivityResponse {
	return dto.ActivityResponse{
		ID:        r.ID,
		ActorID:   r.ActorID,
		Action:    r.Action,
		Details:   r.Details,
		CreatedAt: r.CreatedAt,
	}
}

func slaConfigPayload(c *domain.SLAConfig) dto.SLAConfigPayload {
	p := dto.SLAConfigPayload{
		Priority:        c.Priority,
		ResponseHours:   c.ResponseHours,
		ResolutionHours: c.ResolutionHours,
	}
	if !c.UpdatedAt.IsZero() {
		updated := c.UpdatedAt
		p.UpdatedAt = &updated
	}
	return p
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilPriorities(v []domain.TicketPriority) []domain.TicketPriority {
	if v == nil {
		return []domain.TicketPriority{}
	}
	return v
}
