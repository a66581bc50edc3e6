package handlers

import (
	"context"
	"time"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// AssignmentUseCases is the coordinator surface used by the API.
type AssignmentUseCases interface {
	AutoAssign(ctx context.Context, ticketID string) (*domain.Ticket, error)
	Assign(ctx context.Context, ticketID, agentID, actorID string) (*domain.Ticket, error)
	Unassign(ctx context.Context, ticketID, actorID string) (*domain.Ticket, error)
	BulkAssign(ctx context.Context, ticketIDs []string, agentID, actorID string) ([]domain.Ticket, error)
	AssignmentHistory(ctx context.Context, ticketID string) ([]domain.ActivityRecord, error)
}

// WorkloadUseCases answers agent capacity questions.
type WorkloadUseCases interface {
	ListAgentsWithWorkload(ctx context.Context) ([]domain.AgentWorkload, error)
	ListCandidateAgentsForTicket(ctx context.Context, ticketID string) ([]domain.AgentWorkload, error)
	UpdateAgentPreferences(ctx context.Context, prefs domain.AgentPreferences) (*domain.Agent, error)
	AgentStatistics(ctx context.Context, agentID string) (*domain.AgentStatistics, error)
}

// AgentReader loads a single agent.
type AgentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
}

// SLAUseCases manages SLA deadlines.
type SLAUseCases interface {
	CalculateDueDates(ctx context.Context, ticketID string, priority domain.TicketPriority, createdAt time.Time) (*domain.SLADueDates, error)
	ListConfigs(ctx context.Context) ([]domain.SLAConfig, error)
	UpsertConfig(ctx context.Context, cfg domain.SLAConfig) (*domain.SLAConfig, error)
}

// SweepTrigger runs a registered sweep on demand.
type SweepTrigger interface {
	Trigger(ctx context.Context, name string) error
	Names() []string
}

// NotificationReader lists queued notifications.
type NotificationReader interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
}
