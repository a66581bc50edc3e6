package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/events"
	"github.com/spec-kit/assignment-engine/internal/observability"
	"github.com/spec-kit/assignment-engine/internal/repository"
	apperrors "github.com/spec-kit/assignment-engine/pkg/util/errorutil"
)

// errNoCandidate rolls back an auto-assignment whose candidate filled up
// between selection and the capacity re-check.
var errNoCandidate = errors.New("no eligible agent")

// AssignmentService binds tickets to agents. Every operation is one
// transaction: ticket rows are locked first, then the agent row, and the
// agent's active count is re-read under that lock before any write.
type AssignmentService struct {
	tx         TxManager
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	activity   repository.ActivityRepository
	selector   AgentSelector
	notifier   Notifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	Tx           TxManager
	TicketRepo   repository.TicketRepository
	AgentRepo    repository.AgentRepository
	ActivityRepo repository.ActivityRepository
	Selector     AgentSelector
	Notifier     Notifier
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Now          func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{
		tx:         deps.Tx,
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		activity:   deps.ActivityRepo,
		selector:   deps.Selector,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		logger:     logger.Named("assignment"),
		metrics:    deps.Metrics,
		now:        now,
	}
}

// binding describes one assignment write.
type binding struct {
	ticket       *domain.Ticket
	agent        domain.Agent
	actorID      *string
	action       domain.ActivityAction
	details      map[string]any
	notification *domain.Notification
}

// AutoAssign asks the rule engine for a candidate and binds the ticket to it.
// It returns nil, nil when no rule produced a candidate. A ticket that
// already has an assignee is returned unchanged.
func (s *AssignmentService) AutoAssign(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if err := validateID("ticket_id", ticketID); err != nil {
		return nil, err
	}

	var (
		result *domain.Ticket
		event  *events.Event
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ticket, err := s.lockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.AssigneeID != nil {
			result = ticket
			return nil
		}

		selection, err := s.selector.SelectAgent(ctx, ticket)
		if err != nil {
			return err
		}
		if !selection.Found() {
			return errNoCandidate
		}

		workload, err := s.agents.LockWorkload(ctx, selection.AgentID)
		if err != nil {
			return fmt.Errorf("lock agent %s: %w", selection.AgentID, err)
		}
		if !workload.Active || workload.AtCapacity() {
			s.metrics.RecordCapacityRejection()
			s.logger.Info("auto-assign candidate no longer has capacity",
				zap.String("ticket_id", ticketID),
				zap.String("agent_id", workload.ID),
				zap.Int("active_tickets", workload.ActiveTickets),
				zap.Int("max_tickets", workload.MaxTickets))
			return errNoCandidate
		}

		ruleName := ""
		if selection.Rule != nil {
			ruleName = selection.Rule.Name
		}
		notification := domain.AssignedNotification(workload.ID, ticket, true)
		queued, err := s.bind(ctx, binding{
			ticket: ticket,
			agent:  workload.Agent,
			action: domain.ActionTicketAutoAssigned,
			details: map[string]any{
				"assignee_id": workload.ID,
				"method":      "auto",
				"rule":        ruleName,
			},
			notification: &notification,
		})
		if err != nil {
			return err
		}

		result = ticket
		event = s.newEvent(events.EventTicketAutoAssigned, ticket.ID, nil, events.AssignmentPayload{
			Ticket:        *ticket,
			AssigneeID:    ticket.AssigneeID,
			AssigneeEmail: workload.Email,
			Rule:          ruleName,
			Notifications: queued,
		})
		return nil
	})
	if errors.Is(err, errNoCandidate) {
		s.metrics.RecordNoCandidate()
		s.metrics.RecordAssignment("auto_assign", "no_candidate")
		return nil, nil
	}
	if err != nil {
		s.metrics.RecordAssignment("auto_assign", "failed")
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordAssignment("auto_assign", outcome(event))
	s.publish(ctx, event)
	return result, nil
}

// Assign binds the ticket to agentID on behalf of actorID. Assigning a ticket
// to its current assignee is a no-op.
func (s *AssignmentService) Assign(ctx context.Context, ticketID, agentID, actorID string) (*domain.Ticket, error) {
	if err := validateID("ticket_id", ticketID); err != nil {
		return nil, err
	}
	if err := validateID("agent_id", agentID); err != nil {
		return nil, err
	}

	var (
		result *domain.Ticket
		event  *events.Event
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ticket, err := s.lockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		workload, err := s.lockAgent(ctx, agentID)
		if err != nil {
			return err
		}
		if ticket.IsAssignedTo(agentID) {
			result = ticket
			return nil
		}
		if workload.AtCapacity() {
			s.metrics.RecordCapacityRejection()
			return apperrors.NewCapacityExceeded(workload.Name, workload.MaxTickets, map[string]any{
				"agent_id":       workload.ID,
				"active_tickets": workload.ActiveTickets,
			})
		}

		previous := ticket.AssigneeID
		b := binding{
			ticket:  ticket,
			agent:   workload.Agent,
			actorID: actorRef(actorID),
			action:  domain.ActionTicketAssigned,
			details: map[string]any{"assignee_id": workload.ID},
		}
		notification := domain.AssignedNotification(workload.ID, ticket, false)
		b.notification = &notification
		eventType := events.EventTicketAssigned
		if previous != nil {
			b.action = domain.ActionTicketReassigned
			b.details["previous_assignee_id"] = *previous
			eventType = events.EventTicketReassigned
		}

		queued, err := s.bind(ctx, b)
		if err != nil {
			return err
		}
		if previous != nil {
			if n, ok := s.notifier.Enqueue(ctx, domain.ReassignedNotification(*previous, ticket)); ok {
				queued = append(queued, n)
			}
		}

		result = ticket
		event = s.newEvent(eventType, ticket.ID, actorRef(actorID), events.AssignmentPayload{
			Ticket:             *ticket,
			AssigneeID:         ticket.AssigneeID,
			AssigneeEmail:      workload.Email,
			PreviousAssigneeID: previous,
			Notifications:      queued,
		})
		return nil
	})
	if err != nil {
		s.metrics.RecordAssignment("assign", failureOutcome(err))
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordAssignment("assign", outcome(event))
	s.publish(ctx, event)
	return result, nil
}

// Unassign clears the ticket's assignee. ASSIGNED tickets revert to OPEN.
// Unassigning a ticket without an assignee is a no-op.
func (s *AssignmentService) Unassign(ctx context.Context, ticketID, actorID string) (*domain.Ticket, error) {
	if err := validateID("ticket_id", ticketID); err != nil {
		return nil, err
	}

	var (
		result *domain.Ticket
		event  *events.Event
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ticket, err := s.lockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.AssigneeID == nil {
			result = ticket
			return nil
		}

		previous := *ticket.AssigneeID
		ticket.ClearAssignee()
		if err := s.tickets.UpdateAssignment(ctx, ticket); err != nil {
			return fmt.Errorf("update ticket %s: %w", ticket.ID, err)
		}
		if err := s.activity.Create(ctx, &domain.ActivityRecord{
			ActorID:  actorRef(actorID),
			TicketID: ticket.ID,
			Action:   domain.ActionTicketUnassigned,
			Details:  map[string]any{"previous_assignee_id": previous},
		}); err != nil {
			return fmt.Errorf("record unassignment: %w", err)
		}

		var queued []domain.Notification
		if n, ok := s.notifier.Enqueue(ctx, domain.UnassignedNotification(previous, ticket)); ok {
			queued = append(queued, n)
		}

		result = ticket
		prev := previous
		event = s.newEvent(events.EventTicketUnassigned, ticket.ID, actorRef(actorID), events.AssignmentPayload{
			Ticket:             *ticket,
			PreviousAssigneeID: &prev,
			Notifications:      queued,
		})
		return nil
	})
	if err != nil {
		s.metrics.RecordAssignment("unassign", failureOutcome(err))
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordAssignment("unassign", outcome(event))
	s.publish(ctx, event)
	return result, nil
}

// BulkAssign binds every ticket to agentID or none of them. The batch is
// rejected when it is larger than the agent's remaining capacity. Tickets
// the agent already holds are left untouched.
func (s *AssignmentService) BulkAssign(ctx context.Context, ticketIDs []string, agentID, actorID string) ([]domain.Ticket, error) {
	if err := validateID("agent_id", agentID); err != nil {
		return nil, err
	}
	ids := dedupe(ticketIDs)
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("ticket_ids must not be empty", nil)
	}
	for _, id := range ids {
		if err := validateID("ticket_ids", id); err != nil {
			return nil, err
		}
	}

	var (
		result []domain.Ticket
		event  *events.Event
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		tickets, err := s.tickets.ListForUpdate(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock tickets: %w", err)
		}
		if len(tickets) != len(ids) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_ids": missingIDs(ids, tickets)})
		}

		workload, err := s.lockAgent(ctx, agentID)
		if err != nil {
			return err
		}
		remaining := workload.RemainingCapacity()
		if len(ids) > remaining {
			s.metrics.RecordCapacityRejection()
			return apperrors.NewCapacityExceeded(workload.Name, workload.MaxTickets, map[string]any{
				"agent_id":  workload.ID,
				"remaining": remaining,
				"requested": len(ids),
			})
		}

		var changed []string
		for i := range tickets {
			ticket := &tickets[i]
			if ticket.IsAssignedTo(agentID) {
				continue
			}
			b := binding{
				ticket:  ticket,
				agent:   workload.Agent,
				actorID: actorRef(actorID),
				action:  domain.ActionTicketAssigned,
				details: map[string]any{"assignee_id": workload.ID, "bulk_assignment": true},
			}
			if ticket.AssigneeID != nil {
				b.action = domain.ActionTicketReassigned
				b.details["previous_assignee_id"] = *ticket.AssigneeID
			}
			if _, err := s.bind(ctx, b); err != nil {
				return err
			}
			changed = append(changed, ticket.ID)
		}

		result = tickets
		if len(changed) == 0 {
			return nil
		}

		var queued []domain.Notification
		if n, ok := s.notifier.Enqueue(ctx, domain.BulkAssignedNotification(workload.ID, len(changed))); ok {
			queued = append(queued, n)
		}
		event = s.newEvent(events.EventTicketsBulkAssigned, "", actorRef(actorID), events.BulkAssignmentPayload{
			AgentID:       workload.ID,
			AgentEmail:    workload.Email,
			TicketIDs:     changed,
			Notifications: queued,
		})
		return nil
	})
	if err != nil {
		s.metrics.RecordAssignment("bulk_assign", failureOutcome(err))
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordAssignment("bulk_assign", outcome(event))
	s.publish(ctx, event)
	return result, nil
}

// AssignmentHistory lists the ticket's assignment activity, newest first.
func (s *AssignmentService) AssignmentHistory(ctx context.Context, ticketID string) ([]domain.ActivityRecord, error) {
	if err := validateID("ticket_id", ticketID); err != nil {
		return nil, err
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	records, err := s.activity.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// ListStaleUnassigned returns OPEN tickets without assignee created before cutoff.
func (s *AssignmentService) ListStaleUnassigned(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	ids, err := s.tickets.ListStaleUnassigned(ctx, cutoff, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ids, nil
}

// bind writes the assignment, one activity record and, when given, one
// notification to the new assignee. It must run inside a transaction that
// already holds the ticket and agent locks.
func (s *AssignmentService) bind(ctx context.Context, b binding) ([]domain.Notification, error) {
	b.ticket.AssignTo(b.agent.ID)
	if err := s.tickets.UpdateAssignment(ctx, b.ticket); err != nil {
		return nil, fmt.Errorf("update ticket %s: %w", b.ticket.ID, err)
	}
	if err := s.activity.Create(ctx, &domain.ActivityRecord{
		ActorID:  b.actorID,
		TicketID: b.ticket.ID,
		Action:   b.action,
		Details:  b.details,
	}); err != nil {
		return nil, fmt.Errorf("record assignment: %w", err)
	}

	var queued []domain.Notification
	if b.notification != nil {
		if n, ok := s.notifier.Enqueue(ctx, *b.notification); ok {
			queued = append(queued, n)
		}
	}
	return queued, nil
}

func (s *AssignmentService) lockTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetForUpdate(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	return ticket, nil
}

func (s *AssignmentService) lockAgent(ctx context.Context, agentID string) (*domain.AgentWorkload, error) {
	workload, err := s.agents.LockWorkload(ctx, agentID)
	if err != nil {
		return nil, notFoundOr(err, "agent", agentID)
	}
	if !workload.Role.IsStaff() {
		return nil, apperrors.NewConflict("user cannot hold ticket assignments", map[string]any{"agent_id": agentID})
	}
	if !workload.Active {
		return nil, apperrors.NewConflict("agent inactive", map[string]any{"agent_id": agentID})
	}
	return workload, nil
}

func (s *AssignmentService) newEvent(t events.EventType, ticketID string, actor *string, payload any) *events.Event {
	return &events.Event{
		ID:        newEventID(),
		Type:      t,
		TicketID:  ticketID,
		Actor:     events.Actor{UserID: actor},
		Timestamp: s.now(),
		Payload:   payload,
	}
}

// publish runs after commit; failures never undo the assignment.
func (s *AssignmentService) publish(ctx context.Context, event *events.Event) {
	if s.dispatcher == nil || event == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, *event); err != nil {
		s.logger.Warn("post-commit delivery failed",
			zap.String("event", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func newEventID() string {
	return uuid.NewString()
}

func outcome(event *events.Event) string {
	if event == nil {
		return "noop"
	}
	return "success"
}

func failureOutcome(err error) string {
	switch {
	case apperrors.IsCapacityExceeded(err):
		return "capacity_exceeded"
	case apperrors.IsNotFound(err):
		return "not_found"
	case apperrors.HasCode(err, apperrors.CodeConflict):
		return "conflict"
	default:
		return "failed"
	}
}

func notFoundOr(err error, resource, id string) error {
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return fmt.Errorf("load %s %s: %w", resource, id, err)
}

func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError("invalid identifier", map[string]any{field: id})
	}
	return nil
}

func actorRef(actorID string) *string {
	if actorID == "" {
		return nil
	}
	return &actorID
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(ids []string, found []domain.Ticket) []string {
	present := make(map[string]struct{}, len(found))
	for _, t := range found {
		present[t.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
