package domain

import "time"

// ActivityAction captures which assignment change an entry records.
type ActivityAction string

const (
	ActionTicketAssigned     ActivityAction = "TICKET_ASSIGNED"
	ActionTicketUnassigned   ActivityAction = "TICKET_UNASSIGNED"
	ActionTicketReassigned   ActivityAction = "TICKET_REASSIGNED"
	ActionTicketAutoAssigned ActivityAction = "TICKET_AUTO_ASSIGNED"
)

// ActivityRecord is an immutable audit trail entry.
// A nil ActorID marks a change made by the system.
type ActivityRecord struct {
	ID        string
	ActorID   *string
	TicketID  string
	Action    ActivityAction
	Details   map[string]any
	CreatedAt time.Time
}
