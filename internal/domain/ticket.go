package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusAssigned   TicketStatus = "ASSIGNED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusWaiting    TicketStatus = "WAITING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// ActiveStatuses count against an agent's capacity.
var ActiveStatuses = []TicketStatus{TicketStatusAssigned, TicketStatusInProgress}

// IsActive reports whether the status counts against capacity.
func (s TicketStatus) IsActive() bool {
	return s == TicketStatusAssigned || s == TicketStatusInProgress
}

// IsTerminal reports whether SLA tracking has ended for the status.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// ParsePriority validates a raw priority value.
func ParsePriority(raw string) (TicketPriority, error) {
	p := TicketPriority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("unknown ticket priority %q", raw)
	}
	return p, nil
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	TicketNumber int64
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	Category     string
	AssigneeID   *string

	SLAResponseDue        *time.Time
	SLAResolutionDue      *time.Time
	FirstResponseAt       *time.Time
	ResolvedAt            *time.Time
	SLABreached           bool
	SLAResponseBreached   bool
	SLAResolutionBreached bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAssignedTo reports whether agentID currently holds the ticket.
func (t *Ticket) IsAssignedTo(agentID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == agentID
}

// AssignTo binds the ticket to agentID, promoting OPEN to ASSIGNED.
func (t *Ticket) AssignTo(agentID string) {
	id := agentID
	t.AssigneeID = &id
	if t.Status == TicketStatusOpen {
		t.Status = TicketStatusAssigned
	}
}

// ClearAssignee removes the assignee, reverting ASSIGNED to OPEN.
func (t *Ticket) ClearAssignee() {
	t.AssigneeID = nil
	if t.Status == TicketStatusAssigned {
		t.Status = TicketStatusOpen
	}
}

// PendingBreach returns the breach that has occurred but is not yet flagged.
// Response breaches take precedence when both deadlines have passed.
func (t *Ticket) PendingBreach(now time.Time) (BreachType, bool) {
	if t.Status.IsTerminal() {
		return "", false
	}
	if !t.SLAResponseBreached && t.FirstResponseAt == nil && t.SLAResponseDue != nil && t.SLAResponseDue.Before(now) {
		return BreachTypeResponse, true
	}
	if !t.SLAResolutionBreached && t.ResolvedAt == nil && t.SLAResolutionDue != nil && t.SLAResolutionDue.Before(now) {
		return BreachTypeResolution, true
	}
	return "", false
}
