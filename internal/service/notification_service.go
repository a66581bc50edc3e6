package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/events"
	"github.com/spec-kit/assignment-engine/internal/observability"
	"github.com/spec-kit/assignment-engine/internal/repository"
)

// DefaultChannelPrefix namespaces per-user realtime channels.
const DefaultChannelPrefix = "notifications"

// NotificationService queues agent notifications and fans committed ones out
// to realtime subscribers and email.
type NotificationService struct {
	repo          repository.NotificationRepository
	tx            TxManager
	dispatcher    events.Dispatcher
	publisher     Publisher
	emails        EmailDispatcher
	channelPrefix string
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// NotificationDependencies bundles notification collaborators.
type NotificationDependencies struct {
	Repo          repository.NotificationRepository
	Tx            TxManager
	Dispatcher    events.Dispatcher
	Publisher     Publisher
	Emails        EmailDispatcher
	ChannelPrefix string
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	prefix := deps.ChannelPrefix
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:          deps.Repo,
		tx:            deps.Tx,
		dispatcher:    deps.Dispatcher,
		publisher:     deps.Publisher,
		emails:        deps.Emails,
		channelPrefix: prefix,
		logger:        logger.Named("notifications"),
		metrics:       deps.Metrics,
	}
}

// Enqueue stores the notification in a savepoint of the caller's transaction.
// A failure is logged and rolled back to the savepoint; the caller carries on.
func (n *NotificationService) Enqueue(ctx context.Context, notification domain.Notification) (domain.Notification, bool) {
	err := n.tx.WithSavepoint(ctx, func(ctx context.Context) error {
		return n.repo.Create(ctx, &notification)
	})
	if err != nil {
		n.metrics.RecordNotificationFailure()
		n.logger.Warn("failed to queue notification",
			zap.String("user_id", notification.UserID),
			zap.String("type", string(notification.Kind)),
			zap.Error(err))
		return notification, false
	}
	return notification, true
}

// ListForUser returns the latest notifications for a user.
func (n *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return n.repo.ListByUser(ctx, userID, limit)
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, t := range []events.EventType{
		events.EventTicketAssigned,
		events.EventTicketAutoAssigned,
		events.EventTicketReassigned,
		events.EventTicketUnassigned,
		events.EventTicketsBulkAssigned,
		events.EventSLABreached,
	} {
		n.dispatcher.Subscribe(t, n.handleRealtime)
	}
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleAssignmentEmail)
	n.dispatcher.Subscribe(events.EventTicketAutoAssigned, n.handleAssignmentEmail)
	n.dispatcher.Subscribe(events.EventTicketReassigned, n.handleAssignmentEmail)
	n.dispatcher.Subscribe(events.EventSLABreached, n.handleBreachEmail)
}

// Channel returns the realtime channel for userID.
func (n *NotificationService) Channel(userID string) string {
	return fmt.Sprintf("%s:%s", n.channelPrefix, userID)
}

func (n *NotificationService) handleRealtime(ctx context.Context, event events.Event) error {
	carrier, ok := event.Payload.(events.NotificationCarrier)
	if !ok || n.publisher == nil {
		return nil
	}

	var errs []error
	for _, notification := range carrier.QueuedNotifications() {
		payload, err := json.Marshal(notification)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := n.publisher.Publish(ctx, n.Channel(notification.UserID), payload); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", notification.UserID, err))
		}
	}
	return errors.Join(errs...)
}

func (n *NotificationService) handleAssignmentEmail(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AssignmentPayload)
	if !ok || n.emails == nil || payload.AssigneeEmail == "" {
		return nil
	}
	n.emails.SendAssignmentEmail(payload.AssigneeEmail, payload.Ticket)
	return nil
}

func (n *NotificationService) handleBreachEmail(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLABreachPayload)
	if !ok || n.emails == nil || payload.AssigneeEmail == "" {
		return nil
	}
	n.emails.SendBreachEmail(payload.AssigneeEmail, payload.Ticket, payload.BreachType)
	return nil
}
