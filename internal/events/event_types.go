package events

import (
	"time"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketAutoAssigned  EventType = "ticket_auto_assigned"
	EventTicketReassigned    EventType = "ticket_reassigned"
	EventTicketUnassigned    EventType = "ticket_unassigned"
	EventTicketsBulkAssigned EventType = "tickets_bulk_assigned"
	EventSLABreached         EventType = "sla_breached"
)

// Actor encapsulates actor metadata for an event. A nil UserID is the system.
type Actor struct {
	UserID *string `json:"user_id,omitempty"`
}

// Event represents a committed change emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NotificationCarrier is implemented by payloads that queued notifications.
type NotificationCarrier interface {
	QueuedNotifications() []domain.Notification
}

// AssignmentPayload describes a single-ticket assignment change.
type AssignmentPayload struct {
	Ticket             domain.Ticket         `json:"ticket"`
	AssigneeID         *string               `json:"assignee_id,omitempty"`
	AssigneeEmail      string                `json:"assignee_email,omitempty"`
	PreviousAssigneeID *string               `json:"previous_assignee_id,omitempty"`
	Rule               string                `json:"rule,omitempty"`
	Notifications      []domain.Notification `json:"notifications"`
}

func (p AssignmentPayload) QueuedNotifications() []domain.Notification { return p.Notifications }

// BulkAssignmentPayload describes a bulk assignment to one agent.
type BulkAssignmentPayload struct {
	AgentID       string                `json:"agent_id"`
	AgentEmail    string                `json:"agent_email,omitempty"`
	TicketIDs     []string              `json:"ticket_ids"`
	Notifications []domain.Notification `json:"notifications"`
}

func (p BulkAssignmentPayload) QueuedNotifications() []domain.Notification { return p.Notifications }

// SLABreachPayload describes a newly flagged SLA breach.
type SLABreachPayload struct {
	Ticket        domain.Ticket         `json:"ticket"`
	BreachType    domain.BreachType     `json:"breach_type"`
	AssigneeEmail string                `json:"assignee_email,omitempty"`
	Recipients    []string              `json:"recipients"`
	Notifications []domain.Notification `json:"notifications"`
}

func (p SLABreachPayload) QueuedNotifications() []domain.Notification { return p.Notifications }
