package dto

import (
	"time"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// AgentWorkloadResponse describes an agent and its load.
type AgentWorkloadResponse struct {
	ID                  string                  `json:"id"`
	Name                string                  `json:"name"`
	Email               string                  `json:"email"`
	Role                domain.Role             `json:"role"`
	MaxTickets          int                     `json:"max_tickets"`
	ActiveTickets       int                     `json:"active_tickets"`
	RemainingCapacity   int                     `json:"remaining_capacity"`
	PreferredCategories []string                `json:"preferred_categories"`
	PreferredPriorities []domain.TicketPriority `json:"preferred_priorities"`
	AutoAssignEnabled   bool                    `json:"auto_assign_enabled"`
	MatchScore          *int                    `json:"match_score,omitempty"`
}

// UpdatePreferencesRequest payload. Omitted fields keep their current value.
type UpdatePreferencesRequest struct {
	MaxTickets        *int     `json:"max_tickets"`
	Categories        []string `json:"preferred_categories"`
	Priorities        []string `json:"preferred_priorities"`
	AutoAssignEnabled *bool    `json:"auto_assign_enabled"`
}

// AgentResponse describes an agent's routing profile.
type AgentResponse struct {
	ID                  string                  `json:"id"`
	Name                string                  `json:"name"`
	Role                domain.Role             `json:"role"`
	MaxTickets          int                     `json:"max_tickets"`
	PreferredCategories []string                `json:"preferred_categories"`
	PreferredPriorities []domain.TicketPriority `json:"preferred_priorities"`
	AutoAssignEnabled   bool                    `json:"auto_assign_enabled"`
}

// AgentStatisticsResponse summarises an agent's history.
type AgentStatisticsResponse struct {
	AgentID       string    `json:"agent_id"`
	ActiveTickets int       `json:"active_tickets"`
	TotalAssigned int       `json:"total_assigned"`
	Resolved      int       `json:"resolved"`
	Breached      int       `json:"sla_breached"`
	MaxTickets    int       `json:"max_tickets"`
	Utilization   float64   `json:"utilization"`
	ComputedAt    time.Time `json:"computed_at"`
}
