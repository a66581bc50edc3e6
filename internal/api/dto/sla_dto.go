package dto

import (
	"time"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// SLAConfigPayload is used for both reads and writes.
type SLAConfigPayload struct {
	Priority        domain.TicketPriority `json:"priority"`
	ResponseHours   int                   `json:"response_time_hours"`
	ResolutionHours int                   `json:"resolution_time_hours"`
	UpdatedAt       *time.Time            `json:"updated_at,omitempty"`
}

// CalculateSLARequest asks for deadlines of a freshly created ticket.
type CalculateSLARequest struct {
	Priority  domain.TicketPriority `json:"priority"`
	CreatedAt time.Time             `json:"created_at"`
}

// SLADueDatesResponse carries computed deadlines. Configured is false when the
// priority has no SLA configuration.
type SLADueDatesResponse struct {
	Configured    bool       `json:"configured"`
	ResponseDue   *time.Time `json:"sla_response_due,omitempty"`
	ResolutionDue *time.Time `json:"sla_resolution_due,omitempty"`
}
