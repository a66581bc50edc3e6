package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// NotificationRepository is the queue notifications are written to.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
}

type notificationRepository struct {
	base
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool, timeout time.Duration) NotificationRepository {
	return &notificationRepository{base: newBase(pool, timeout)}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, type, title, content, ticket_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	return db.QueryRow(ctx, query, n.UserID, n.Kind, n.Title, n.Body, n.TicketID).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	const query = `
        SELECT id, user_id, type, title, content, ticket_id, created_at
        FROM notifications WHERE user_id=$1
        ORDER BY created_at DESC
        LIMIT $2`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	rows, err := db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.TicketID, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
