package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// SLAConfigRepository stores per-priority SLA deadlines.
type SLAConfigRepository interface {
	GetByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLAConfig, error)
	List(ctx context.Context) ([]domain.SLAConfig, error)
	Upsert(ctx context.Context, cfg *domain.SLAConfig) error
}

type slaConfigRepository struct {
	base
}

// NewSLAConfigRepository builds repository.
func NewSLAConfigRepository(pool *pgxpool.Pool, timeout time.Duration) SLAConfigRepository {
	return &slaConfigRepository{base: newBase(pool, timeout)}
}

func (r *slaConfigRepository) GetByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLAConfig, error) {
	const query = `
        SELECT priority, response_time_hours, resolution_time_hours, updated_at
        FROM sla_configs WHERE priority=$1`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	var cfg domain.SLAConfig
	if err := db.QueryRow(ctx, query, priority).Scan(
		&cfg.Priority,
		&cfg.ResponseHours,
		&cfg.ResolutionHours,
		&cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *slaConfigRepository) List(ctx context.Context) ([]domain.SLAConfig, error) {
	const query = `
        SELECT priority, response_time_hours, resolution_time_hours, updated_at
        FROM sla_configs ORDER BY response_time_hours ASC`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.SLAConfig{}
	for rows.Next() {
		var cfg domain.SLAConfig
		if err := rows.Scan(&cfg.Priority, &cfg.ResponseHours, &cfg.ResolutionHours, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}

func (r *slaConfigRepository) Upsert(ctx context.Context, cfg *domain.SLAConfig) error {
	const query = `
        INSERT INTO sla_configs (priority, response_time_hours, resolution_time_hours, updated_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (priority) DO UPDATE SET
            response_time_hours = EXCLUDED.response_time_hours,
            resolution_time_hours = EXCLUDED.resolution_time_hours,
            updated_at = NOW()
        RETURNING updated_at`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	return db.QueryRow(ctx, query, cfg.Priority, cfg.ResponseHours, cfg.ResolutionHours).Scan(&cfg.UpdatedAt)
}
