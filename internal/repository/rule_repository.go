package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// RuleRepository reads configured assignment rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.AssignmentRule) error
	// ListActive returns active rules, highest priority first. Conditions are left unparsed.
	ListActive(ctx context.Context) ([]domain.AssignmentRule, error)
}

type ruleRepository struct {
	base
}

// NewRuleRepository builds repository.
func NewRuleRepository(pool *pgxpool.Pool, timeout time.Duration) RuleRepository {
	return &ruleRepository{base: newBase(pool, timeout)}
}

func (r *ruleRepository) Create(ctx context.Context, rule *domain.AssignmentRule) error {
	const query = `
        INSERT INTO assignment_rules (name, rule_type, priority, conditions, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	conditions := rule.RawConditions
	if len(conditions) == 0 {
		conditions = []byte("{}")
	}
	return db.QueryRow(ctx, query,
		rule.Name,
		rule.RuleType,
		rule.Priority,
		string(conditions),
		rule.Active,
	).Scan(&rule.ID, &rule.CreatedAt)
}

func (r *ruleRepository) ListActive(ctx context.Context) ([]domain.AssignmentRule, error) {
	const query = `
        SELECT id, name, rule_type, priority, conditions, is_active, created_at
        FROM assignment_rules
        WHERE is_active
        ORDER BY priority DESC, name ASC`
	ctx, cancel, db := r.conn(ctx)
	defer cancel()

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentRule
	for rows.Next() {
		var rule domain.AssignmentRule
		if err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.RuleType,
			&rule.Priority,
			&rule.RawConditions,
			&rule.Active,
			&rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
