package dto

import (
	"time"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// TicketResponse is the assignment view of a ticket.
type TicketResponse struct {
	ID                    string                `json:"id"`
	TicketNumber          int64                 `json:"ticket_number"`
	Title                 string                `json:"title"`
	Status                domain.TicketStatus   `json:"status"`
	Priority              domain.TicketPriority `json:"priority"`
	Category              string                `json:"category,omitempty"`
	AssigneeID            *string               `json:"assignee_id"`
	SLAResponseDue        *time.Time            `json:"sla_response_due,omitempty"`
	SLAResolutionDue      *time.Time            `json:"sla_resolution_due,omitempty"`
	SLABreached           bool                  `json:"sla_breached"`
	SLAResponseBreached   bool                  `json:"sla_response_breached"`
	SLAResolutionBreached bool                  `json:"sla_resolution_breached"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// AssignTicketRequest payload for manual assignment.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// BulkAssignRequest payload.
type BulkAssignRequest struct {
	TicketIDs []string `json:"ticket_ids"`
	AgentID   string   `json:"agent_id"`
}

// AutoAssignResponse reports the outcome of an auto-assignment attempt.
type AutoAssignResponse struct {
	Assigned bool            `json:"assigned"`
	Ticket   *TicketResponse `json:"ticket,omitempty"`
}

// ActivityResponse is one assignment history entry.
type ActivityResponse struct {
	ID        string                `json:"id"`
	ActorID   *string               `json:"actor_id"`
	Action    domain.ActivityAction `json:"action"`
	Details   map[string]any        `json:"details"`
	CreatedAt time.Time             `json:"created_at"`
}
