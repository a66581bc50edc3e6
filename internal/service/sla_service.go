package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/events"
	"github.com/spec-kit/assignment-engine/internal/observability"
	"github.com/spec-kit/assignment-engine/internal/repository"
	apperrors "github.com/spec-kit/assignment-engine/pkg/util/errorutil"
)

// SLAService computes SLA deadlines and flags breaches.
type SLAService struct {
	tx         TxManager
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	configs    repository.SLAConfigRepository
	notifier   Notifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// SLADependencies bundles repositories.
type SLADependencies struct {
	Tx            TxManager
	TicketRepo    repository.TicketRepository
	AgentRepo     repository.AgentRepository
	SLAConfigRepo repository.SLAConfigRepository
	Notifier      Notifier
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Now           func() time.Time
}

// NewSLAService creates the service.
func NewSLAService(deps SLADependencies) *SLAService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &SLAService{
		tx:         deps.Tx,
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		configs:    deps.SLAConfigRepo,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		logger:     logger.Named("sla"),
		metrics:    deps.Metrics,
		now:        now,
	}
}

// CalculateDueDates stores createdAt plus the configured hours on the ticket.
// A priority without configuration is logged and yields nil, nil; the ticket
// keeps no deadlines.
func (s *SLAService) CalculateDueDates(ctx context.Context, ticketID string, priority domain.TicketPriority, createdAt time.Time) (*domain.SLADueDates, error) {
	if err := validateID("ticket_id", ticketID); err != nil {
		return nil, err
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
	}

	cfg, err := s.configs.GetByPriority(ctx, priority)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Warn("no SLA configuration for priority",
				zap.String("ticket_id", ticketID),
				zap.String("priority", string(priority)))
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}

	due := cfg.DueDates(createdAt)
	if err := s.tickets.SetSLADueDates(ctx, ticketID, due); err != nil {
		return nil, apperrors.MapError(notFoundOr(err, "ticket", ticketID))
	}
	return &due, nil
}

// ListConfigs returns the SLA configuration of every priority.
func (s *SLAService) ListConfigs(ctx context.Context) ([]domain.SLAConfig, error) {
	configs, err := s.configs.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if configs == nil {
		configs = []domain.SLAConfig{}
	}
	return configs, nil
}

// UpsertConfig replaces the deadlines for one priority. Existing tickets keep
// the deadlines they were given.
func (s *SLAService) UpsertConfig(ctx context.Context, cfg domain.SLAConfig) (*domain.SLAConfig, error) {
	if !cfg.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(cfg.Priority)})
	}
	if cfg.ResponseHours <= 0 || cfg.ResolutionHours <= 0 {
		return nil, apperrors.NewValidationError("SLA hours must be positive", map[string]any{
			"response_time_hours":   cfg.ResponseHours,
			"resolution_time_hours": cfg.ResolutionHours,
		})
	}
	if cfg.ResponseHours > cfg.ResolutionHours {
		return nil, apperrors.NewValidationError("response time cannot exceed resolution time", nil)
	}
	if err := s.configs.Upsert(ctx, &cfg); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &cfg, nil
}

// ListBreachCandidates returns tickets with a deadline passed but not yet flagged.
func (s *SLAService) ListBreachCandidates(ctx context.Context, limit int) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListBreachCandidates(ctx, s.now(), limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// FlagBreach claims the ticket's pending breach and notifies the assignee and
// every active supervisor. The flag is claimed with a conditional update, so
// a breach already flagged by another run returns false without notifying.
func (s *SLAService) FlagBreach(ctx context.Context, ticketID string) (domain.BreachType, bool, error) {
	now := s.now()

	var (
		breach domain.BreachType
		event  *events.Event
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket", ticketID)
		}
		pending, ok := ticket.PendingBreach(now)
		if !ok {
			return nil
		}
		claimed, err := s.tickets.MarkBreached(ctx, ticket.ID, pending, now)
		if err != nil {
			return fmt.Errorf("mark breach: %w", err)
		}
		if !claimed {
			return nil
		}
		breach = pending
		ticket.SLABreached = true
		switch pending {
		case domain.BreachTypeResponse:
			ticket.SLAResponseBreached = true
		case domain.BreachTypeResolution:
			ticket.SLAResolutionBreached = true
		}

		recipients, assigneeEmail, err := s.breachRecipients(ctx, ticket)
		if err != nil {
			return err
		}
		var queued []domain.Notification
		for _, userID := range recipients {
			if n, ok := s.notifier.Enqueue(ctx, domain.BreachNotification(userID, ticket, pending)); ok {
				queued = append(queued, n)
			}
		}

		event = &events.Event{
			ID:        newEventID(),
			Type:      events.EventSLABreached,
			TicketID:  ticket.ID,
			Timestamp: now,
			Payload: events.SLABreachPayload{
				Ticket:        *ticket,
				BreachType:    pending,
				AssigneeEmail: assigneeEmail,
				Recipients:    recipients,
				Notifications: queued,
			},
		}
		return nil
	})
	if err != nil {
		return "", false, apperrors.MapError(err)
	}
	if event == nil {
		return "", false, nil
	}

	s.metrics.RecordBreach(string(breach))
	s.logger.Info("SLA breach flagged",
		zap.String("ticket_id", ticketID),
		zap.String("breach_type", string(breach)))
	if s.dispatcher != nil {
		if err := s.dispatcher.Publish(ctx, *event); err != nil {
			s.logger.Warn("post-commit delivery failed",
				zap.String("ticket_id", ticketID),
				zap.Error(err))
		}
	}
	return breach, true, nil
}

// breachRecipients is the assignee followed by active supervisors, deduplicated.
func (s *SLAService) breachRecipients(ctx context.Context, ticket *domain.Ticket) ([]string, string, error) {
	seen := make(map[string]struct{})
	var (
		recipients    []string
		assigneeEmail string
	)
	if ticket.AssigneeID != nil {
		assignee, err := s.agents.GetByID(ctx, *ticket.AssigneeID)
		switch {
		case err == nil:
			assigneeEmail = assignee.Email
		case apperrors.IsNotFound(err):
		default:
			return nil, "", fmt.Errorf("load assignee: %w", err)
		}
		recipients = append(recipients, *ticket.AssigneeID)
		seen[*ticket.AssigneeID] = struct{}{}
	}

	supervisors, err := s.agents.ListActiveSupervisors(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list supervisors: %w", err)
	}
	for _, sup := range supervisors {
		if _, ok := seen[sup.ID]; ok {
			continue
		}
		seen[sup.ID] = struct{}{}
		recipients = append(recipients, sup.ID)
	}
	return recipients, assigneeEmail, nil
}
