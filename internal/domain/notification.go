package domain

import (
	"fmt"
	"time"
)

// NotificationKind classifies queued agent notifications.
type NotificationKind string

const (
	NotificationTicketAssigned   NotificationKind = "ticket_assigned"
	NotificationTicketReassigned NotificationKind = "ticket_reassigned"
	NotificationTicketUnassigned NotificationKind = "ticket_unassigned"
	NotificationBulkAssignment   NotificationKind = "bulk_assignment"
	NotificationSLABreached      NotificationKind = "sla_breached"
)

// Notification is a message queued for an agent.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Kind      NotificationKind `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"content"`
	TicketID  *string          `json:"ticket_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// AssignedNotification tells an agent a ticket is now theirs.
func AssignedNotification(agentID string, t *Ticket, automatic bool) Notification {
	body := fmt.Sprintf("You have been assigned ticket #%d: %s", t.TicketNumber, t.Title)
	if automatic {
		body = fmt.Sprintf("You have been automatically assigned ticket #%d: %s", t.TicketNumber, t.Title)
	}
	return Notification{
		UserID:   agentID,
		Kind:     NotificationTicketAssigned,
		Title:    "New Ticket Assignment",
		Body:     body,
		TicketID: &t.ID,
	}
}

// ReassignedNotification tells the previous holder a ticket moved away.
func ReassignedNotification(previousID string, t *Ticket) Notification {
	return Notification{
		UserID:   previousID,
		Kind:     NotificationTicketReassigned,
		Title:    "Ticket Reassigned",
		Body:     fmt.Sprintf("Ticket #%d has been reassigned to another agent", t.TicketNumber),
		TicketID: &t.ID,
	}
}

// UnassignedNotification tells the previous holder a ticket was released.
func UnassignedNotification(previousID string, t *Ticket) Notification {
	return Notification{
		UserID:   previousID,
		Kind:     NotificationTicketUnassigned,
		Title:    "Ticket Unassigned",
		Body:     fmt.Sprintf("Ticket #%d has been unassigned from you", t.TicketNumber),
		TicketID: &t.ID,
	}
}

// BulkAssignedNotification aggregates a bulk assignment into one message.
func BulkAssignedNotification(agentID string, count int) Notification {
	return Notification{
		UserID: agentID,
		Kind:   NotificationBulkAssignment,
		Title:  "Bulk Ticket Assignment",
		Body:   fmt.Sprintf("You have been assigned %d new tickets", count),
	}
}

// BreachNotification warns a recipient that a ticket missed its SLA.
func BreachNotification(userID string, t *Ticket, breach BreachType) Notification {
	return Notification{
		UserID:   userID,
		Kind:     NotificationSLABreached,
		Title:    fmt.Sprintf("SLA Breach: %s", breach.Label()),
		Body:     fmt.Sprintf("Ticket #%d has breached its SLA %s deadline", t.TicketNumber, breach),
		TicketID: &t.ID,
	}
}
