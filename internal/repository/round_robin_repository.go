package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// RoundRobinRepository stores the per-category rotation cursor.
type RoundRobinRepository interface {
	// LockCursor creates the category row if missing and locks it for the
	// rest of the transaction.
	LockCursor(ctx context.Context, category string) (*domain.RoundRobinCursor, error)
	SaveCursor(ctx context.Context, cursor domain.RoundRobinCursor) error
}

type roundRobinRepository struct {
	base
}

// NewRoundRobinRepository builds repository.
func NewRoundRobinRepository(pool *pgxpool.Pool, timeout time.Duration) RoundRobinRepository {
	return &roundRobinRepository{base: newBase(pool, timeout)}
}

func (r *roundRobinRepository) LockCursor(ctx context.Context, category string) (*domain.RoundRobinCursor, error) {
	const ensure = `INSERT INTO round_robin_state (category) VALUES ($1) ON CONFLICT (category) DO NOTHING`
	const lock = `
        SELECT category, last_assigned_user_id, last_assigned_at
        FROM round_robin_state WHERE category=$1
        FOR UPDATE`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	if _, err := db.Exec(ctx, ensure, category); err != nil {
		return nil, err
	}
	var cursor domain.RoundRobinCursor
	if err := db.QueryRow(ctx, lock, category).Scan(
		&cursor.Category,
		&cursor.LastAssignedAgentID,
		&cursor.LastAssignedAt,
	); err != nil {
		return nil, err
	}
	return &cursor, nil
}

func (r *roundRobinRepository) SaveCursor(ctx context.Context, cursor domain.RoundRobinCursor) error {
	const query = `
        INSERT INTO round_robin_state (category, last_assigned_user_id, last_assigned_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (category) DO UPDATE SET
            last_assigned_user_id = EXCLUDED.last_assigned_user_id,
            last_assigned_at = EXCLUDED.last_assigned_at`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	_, err := db.Exec(ctx, query, cursor.Category, cursor.LastAssignedAgentID, cursor.LastAssignedAt)
	return err
}
