package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// EligibilityQuery narrows the auto-assignment candidate pool.
type EligibilityQuery struct {
	Roles []domain.Role
	// Category, when set, must be among the agent's preferred categories.
	Category string
	// Ceiling, when positive, caps active tickets in addition to the agent's own capacity.
	Ceiling int
}

// AgentRepository reads agents, their preferences and workload.
type AgentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	ListWithWorkload(ctx context.Context) ([]domain.AgentWorkload, error)
	// EligibleAgents returns active agents with auto-assignment enabled and
	// spare capacity, ordered by id.
	EligibleAgents(ctx context.Context, q EligibilityQuery) ([]domain.AgentWorkload, error)
	// LockWorkload row-locks the agent and counts its active tickets.
	LockWorkload(ctx context.Context, agentID string) (*domain.AgentWorkload, error)
	ListActiveSupervisors(ctx context.Context) ([]domain.Agent, error)
	UpsertPreferences(ctx context.Context, prefs domain.AgentPreferences) error
	Statistics(ctx context.Context, agentID string) (*domain.AgentStatistics, error)
}

type agentRepository struct {
	base
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool, timeout time.Duration) AgentRepository {
	return &agentRepository{base: newBase(pool, timeout)}
}

const agentColumns = `u.id, u.name, u.email, u.role, u.is_active,
       COALESCE(ap.max_tickets, 20), COALESCE(ap.categories, '{}'), COALESCE(ap.priorities, '{}'),
       COALESCE(ap.auto_assign_enabled, TRUE), u.created_at`

const workloadFrom = `
        FROM users u
        LEFT JOIN agent_preferences ap ON ap.user_id = u.id
        LEFT JOIN tickets t ON t.assignee_id = u.id AND t.status IN ('ASSIGNED', 'IN_PROGRESS')`

func scanAgent(row pgx.Row, agent *domain.Agent, extra ...any) error {
	var priorities []string
	dest := []any{
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.Role,
		&agent.Active,
		&agent.MaxTickets,
		&agent.PreferredCategories,
		&priorities,
		&agent.AutoAssignEnabled,
		&agent.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	agent.PreferredPriorities = toPriorities(priorities)
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	const query = `
        SELECT ` + agentColumns + `
        FROM users u LEFT JOIN agent_preferences ap ON ap.user_id = u.id
        WHERE u.id=$1`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	var agent domain.Agent
	if err := scanAgent(db.QueryRow(ctx, query, id), &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) ListWithWorkload(ctx context.Context) ([]domain.AgentWorkload, error) {
	const query = `
        SELECT ` + agentColumns + `, COUNT(t.id)` + workloadFrom + `
        WHERE u.is_active AND u.role IN ('AGENT', 'MANAGER', 'ADMIN')
        GROUP BY u.id, ap.user_id
        ORDER BY COUNT(t.id) ASC, u.id ASC`
	return r.listWorkload(ctx, query)
}

func (r *agentRepository) EligibleAgents(ctx context.Context, q EligibilityQuery) ([]domain.AgentWorkload, error) {
	const query = `
        SELECT ` + agentColumns + `, COUNT(t.id)` + workloadFrom + `
        WHERE u.is_active
          AND u.role = ANY($1::text[])
          AND ($2::text = '' OR $2::text = ANY(COALESCE(ap.categories, '{}')))
          AND COALESCE(ap.auto_assign_enabled, TRUE)
        GROUP BY u.id, ap.user_id
        HAVING COUNT(t.id) < COALESCE(ap.max_tickets, 20)
           AND ($3::int <= 0 OR COUNT(t.id) < $3::int)
        ORDER BY u.id ASC`

	roles := make([]string, 0, len(q.Roles))
	for _, role := range q.Roles {
		roles = append(roles, string(role))
	}
	return r.listWorkload(ctx, query, roles, q.Category, q.Ceiling)
}

func (r *agentRepository) listWorkload(ctx context.Context, query string, args ...any) ([]domain.AgentWorkload, error) {
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AgentWorkload{}
	for rows.Next() {
		var w domain.AgentWorkload
		if err := scanAgent(rows, &w.Agent, &w.ActiveTickets); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (r *agentRepository) LockWorkload(ctx context.Context, agentID string) (*domain.AgentWorkload, error) {
	const lockQuery = `
        SELECT ` + agentColumns + `
        FROM users u LEFT JOIN agent_preferences ap ON ap.user_id = u.id
        WHERE u.id=$1
        FOR NO KEY UPDATE OF u`
	const countQuery = `
        SELECT COUNT(*) FROM tickets
        WHERE assignee_id=$1 AND status IN ('ASSIGNED', 'IN_PROGRESS')`

	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	var w domain.AgentWorkload
	if err := scanAgent(db.QueryRow(ctx, lockQuery, agentID), &w.Agent); err != nil {
		return nil, err
	}
	if err := db.QueryRow(ctx, countQuery, agentID).Scan(&w.ActiveTickets); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *agentRepository) ListActiveSupervisors(ctx context.Context) ([]domain.Agent, error) {
	const query = `
        SELECT ` + agentColumns + `
        FROM users u LEFT JOIN agent_preferences ap ON ap.user_id = u.id
        WHERE u.is_active AND u.role IN ('MANAGER', 'ADMIN')
        ORDER BY u.id`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := scanAgent(rows, &agent); err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) UpsertPreferences(ctx context.Context, prefs domain.AgentPreferences) error {
	const query = `
        INSERT INTO agent_preferences (user_id, max_tickets, categories, priorities, auto_assign_enabled, updated_at)
        VALUES ($1,$2,$3,$4,$5,NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            max_tickets = EXCLUDED.max_tickets,
            categories = EXCLUDED.categories,
            priorities = EXCLUDED.priorities,
            auto_assign_enabled = EXCLUDED.auto_assign_enabled,
            updated_at = NOW()`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	categories := prefs.Categories
	if categories == nil {
		categories = []string{}
	}
	_, err := db.Exec(ctx, query,
		prefs.AgentID,
		prefs.MaxTickets,
		categories,
		fromPriorities(prefs.Priorities),
		prefs.AutoAssignEnabled,
	)
	return err
}

func (r *agentRepository) Statistics(ctx context.Context, agentID string) (*domain.AgentStatistics, error) {
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE status IN ('ASSIGNED', 'IN_PROGRESS')),
            COUNT(*),
            COUNT(*) FILTER (WHERE status IN ('RESOLVED', 'CLOSED')),
            COUNT(*) FILTER (WHERE sla_breached)
        FROM tickets WHERE assignee_id=$1`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	stats := domain.AgentStatistics{AgentID: agentID}
	if err := db.QueryRow(ctx, query, agentID).Scan(
		&stats.ActiveTickets,
		&stats.TotalAssigned,
		&stats.Resolved,
		&stats.Breached,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func toPriorities(raw []string) []domain.TicketPriority {
	out := make([]domain.TicketPriority, 0, len(raw))
	for _, p := range raw {
		out = append(out, domain.TicketPriority(p))
	}
	return out
}

func fromPriorities(priorities []domain.TicketPriority) []string {
	out := make([]string, 0, len(priorities))
	for _, p := range priorities {
		out = append(out, string(p))
	}
	return out
}
