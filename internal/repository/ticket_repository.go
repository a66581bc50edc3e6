package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// TicketRepository encapsulates ticket persistence used by the engine.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate row-locks the ticket for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	// ListForUpdate row-locks the tickets in id order.
	ListForUpdate(ctx context.Context, ids []string) ([]domain.Ticket, error)
	UpdateAssignment(ctx context.Context, ticket *domain.Ticket) error
	SetSLADueDates(ctx context.Context, id string, due domain.SLADueDates) error
	ListBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error)
	// MarkBreached sets the flag for breach once, re-checking the deadline
	// against now. False means it was already set or no longer applies.
	MarkBreached(ctx context.Context, id string, breach domain.BreachType, now time.Time) (bool, error)
	ListStaleUnassigned(ctx context.Context, createdBefore time.Time, limit int) ([]string, error)
}

type ticketRepository struct {
	base
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool, timeout time.Duration) TicketRepository {
	return &ticketRepository{base: newBase(pool, timeout)}
}

const ticketColumns = `id, ticket_number, title, description, status, priority, category, assignee_id,
       sla_response_due, sla_resolution_due, first_response_at, resolved_at,
       sla_breached, sla_response_breached, sla_resolution_breached, created_at, updated_at`

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.AssigneeID,
		&ticket.SLAResponseDue,
		&ticket.SLAResolutionDue,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.SLABreached,
		&ticket.SLAResponseBreached,
		&ticket.SLAResolutionBreached,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	var ticket domain.Ticket
	if err := scanTicket(db.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListForUpdate(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`
	return r.list(ctx, query, ids)
}

func (r *ticketRepository) ListBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status NOT IN ('RESOLVED', 'CLOSED')
          AND (
                (first_response_at IS NULL AND sla_response_due < $1 AND NOT sla_response_breached)
             OR (resolved_at IS NULL AND sla_resolution_due < $1 AND NOT sla_resolution_breached)
          )
        ORDER BY LEAST(sla_response_due, sla_resolution_due) ASC
        LIMIT $2`
	return r.list(ctx, query, now, limit)
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateAssignment(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assignee_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	return db.QueryRow(ctx, query, ticket.AssigneeID, ticket.Status, ticket.ID).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) SetSLADueDates(ctx context.Context, id string, due domain.SLADueDates) error {
	const query = `
        UPDATE tickets SET sla_response_due=$1, sla_resolution_due=$2, updated_at=NOW()
        WHERE id=$3`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	cmd, err := db.Exec(ctx, query, due.ResponseDue, due.ResolutionDue, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) MarkBreached(ctx context.Context, id string, breach domain.BreachType, now time.Time) (bool, error) {
	const markResponse = `
        UPDATE tickets SET sla_breached=TRUE, sla_response_breached=TRUE, updated_at=NOW()
        WHERE id=$1 AND NOT sla_response_breached
          AND status NOT IN ('RESOLVED', 'CLOSED')
          AND first_response_at IS NULL AND sla_response_due < $2`
	const markResolution = `
        UPDATE tickets SET sla_breached=TRUE, sla_resolution_breached=TRUE, updated_at=NOW()
        WHERE id=$1 AND NOT sla_resolution_breached
          AND status NOT IN ('RESOLVED', 'CLOSED')
          AND resolved_at IS NULL AND sla_resolution_due < $2`

	var query string
	switch breach {
	case domain.BreachTypeResponse:
		query = markResponse
	case domain.BreachTypeResolution:
		query = markResolution
	default:
		return false, fmt.Errorf("unknown breach type %q", breach)
	}

	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	cmd, err := db.Exec(ctx, query, id, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) ListStaleUnassigned(ctx context.Context, createdBefore time.Time, limit int) ([]string, error) {
	const query = `
        SELECT id FROM tickets
        WHERE assignee_id IS NULL AND status = 'OPEN' AND created_at < $1
        ORDER BY created_at ASC
        LIMIT $2`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	rows, err := db.Query(ctx, query, createdBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
