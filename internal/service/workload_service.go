package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/repository"
	apperrors "github.com/spec-kit/assignment-engine/pkg/util/errorutil"
)

// MaxTicketsLimit bounds the per-agent capacity an agent may configure.
const MaxTicketsLimit = 100

// WorkloadService answers capacity questions about agents.
type WorkloadService struct {
	agents  repository.AgentRepository
	tickets repository.TicketRepository
	logger  *zap.Logger
	now     func() time.Time
}

// WorkloadDependencies bundles repositories.
type WorkloadDependencies struct {
	AgentRepo  repository.AgentRepository
	TicketRepo repository.TicketRepository
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewWorkloadService creates the service.
func NewWorkloadService(deps WorkloadDependencies) *WorkloadService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &WorkloadService{
		agents:  deps.AgentRepo,
		tickets: deps.TicketRepo,
		logger:  logger.Named("workload"),
		now:     now,
	}
}

// ListAgentsWithWorkload returns every active agent with its active ticket count.
func (s *WorkloadService) ListAgentsWithWorkload(ctx context.Context) ([]domain.AgentWorkload, error) {
	agents, err := s.agents.ListWithWorkload(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if agents == nil {
		agents = []domain.AgentWorkload{}
	}
	return agents, nil
}

// ListCandidateAgentsForTicket ranks agents with spare capacity by how well
// their preferences match the ticket. An empty list is not an error.
func (s *WorkloadService) ListCandidateAgentsForTicket(ctx context.Context, ticketID string) ([]domain.AgentWorkload, error) {
	if err := validateID("ticket_id", ticketID); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(notFoundOr(err, "ticket", ticketID))
	}
	agents, err := s.agents.ListWithWorkload(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return domain.RankCandidates(ticket, agents), nil
}

// UpdateAgentPreferences validates and stores an agent's routing preferences.
func (s *WorkloadService) UpdateAgentPreferences(ctx context.Context, prefs domain.AgentPreferences) (*domain.Agent, error) {
	if err := validateID("agent_id", prefs.AgentID); err != nil {
		return nil, err
	}
	if prefs.MaxTickets < 1 || prefs.MaxTickets > MaxTicketsLimit {
		return nil, apperrors.NewValidationError("max_tickets must be between 1 and 100", map[string]any{
			"max_tickets": prefs.MaxTickets,
		})
	}
	for _, p := range prefs.Priorities {
		if !p.Valid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(p)})
		}
	}
	categories := make([]string, 0, len(prefs.Categories))
	for _, c := range prefs.Categories {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, c)
		}
	}
	prefs.Categories = categories

	agent, err := s.agents.GetByID(ctx, prefs.AgentID)
	if err != nil {
		return nil, apperrors.MapError(notFoundOr(err, "agent", prefs.AgentID))
	}
	if !agent.Role.IsStaff() {
		return nil, apperrors.NewConflict("user cannot hold ticket assignments", map[string]any{"agent_id": agent.ID})
	}
	if err := s.agents.UpsertPreferences(ctx, prefs); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("agent preferences updated",
		zap.String("agent_id", agent.ID),
		zap.Int("max_tickets", prefs.MaxTickets),
		zap.Bool("auto_assign_enabled", prefs.AutoAssignEnabled))

	agent.MaxTickets = prefs.MaxTickets
	agent.PreferredCategories = prefs.Categories
	agent.PreferredPriorities = prefs.Priorities
	agent.AutoAssignEnabled = prefs.AutoAssignEnabled
	return agent, nil
}

// AgentStatistics summarises an agent's assignment history.
func (s *WorkloadService) AgentStatistics(ctx context.Context, agentID string) (*domain.AgentStatistics, error) {
	if err := validateID("agent_id", agentID); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, apperrors.MapError(notFoundOr(err, "agent", agentID))
	}
	stats, err := s.agents.Statistics(ctx, agentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	stats.MaxTickets = agent.MaxTickets
	if agent.MaxTickets > 0 {
		stats.Utilization = float64(stats.ActiveTickets) / float64(agent.MaxTickets)
	}
	stats.ComputedAt = s.now().UTC()
	return stats, nil
}
