package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// ActivityRepository stores assignment audit entries.
type ActivityRepository interface {
	Create(ctx context.Context, record *domain.ActivityRecord) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityRecord, error)
}

type activityRepository struct {
	base
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool, timeout time.Duration) ActivityRepository {
	return &activityRepository{base: newBase(pool, timeout)}
}

func (r *activityRepository) Create(ctx context.Context, record *domain.ActivityRecord) error {
	const query = `
        INSERT INTO activity_logs (user_id, ticket_id, action, details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	details := record.Details
	if details == nil {
		details = map[string]any{}
	}
	return db.QueryRow(ctx, query,
		record.ActorID,
		record.TicketID,
		record.Action,
		details,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityRecord, error) {
	const query = `
        SELECT id, user_id, ticket_id, action, details, created_at
        FROM activity_logs
        WHERE ticket_id=$1
          AND action IN ('TICKET_ASSIGNED', 'TICKET_UNASSIGNED', 'TICKET_REASSIGNED', 'TICKET_AUTO_ASSIGNED')
        ORDER BY created_at DESC, id DESC`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	rows, err := db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ActivityRecord{}
	for rows.Next() {
		var record domain.ActivityRecord
		if err := rows.Scan(
			&record.ID,
			&record.ActorID,
			&record.TicketID,
			&record.Action,
			&record.Details,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
