package service

import (
	"context"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/rules"
)

// TxManager runs work inside a transaction carried by the context.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error
}

// AgentSelector picks a candidate agent for a ticket.
type AgentSelector interface {
	SelectAgent(ctx context.Context, ticket *domain.Ticket) (rules.Selection, error)
}

// Notifier queues notifications inside the caller's transaction.
// The bool is false when the notification could not be stored.
type Notifier interface {
	Enqueue(ctx context.Context, notification domain.Notification) (domain.Notification, bool)
}

// Publisher pushes payloads to realtime subscribers.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// EmailDispatcher sends best-effort notification emails.
type EmailDispatcher interface {
	SendAssignmentEmail(address string, ticket domain.Ticket)
	SendBreachEmail(address string, ticket domain.Ticket, breach domain.BreachType)
}
