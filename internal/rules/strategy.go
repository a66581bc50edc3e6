// Package rules selects a candidate agent for a ticket from the configured
// assignment rules. Selection never assigns or notifies; the caller binds.
package rules

import (
	"context"
	"time"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/repository"
)

// Strategy evaluates one rule against a ticket. ok is false when the rule
// does not apply or nobody in its pool qualifies.
type Strategy interface {
	Evaluate(ctx context.Context, ticket *domain.Ticket) (agentID string, ok bool, err error)
}

// AgentSource supplies eligible agents with their workload.
type AgentSource interface {
	EligibleAgents(ctx context.Context, q repository.EligibilityQuery) ([]domain.AgentWorkload, error)
}

// CursorStore persists round-robin positions.
type CursorStore interface {
	LockCursor(ctx context.Context, category string) (*domain.RoundRobinCursor, error)
	SaveCursor(ctx context.Context, cursor domain.RoundRobinCursor) error
}

// PriorityBased routes matching priorities to the least-loaded senior agent.
type PriorityBased struct {
	Conditions domain.PriorityBasedConditions
	Agents     AgentSource
	Ceiling    int
}

func (s *PriorityBased) Evaluate(ctx context.Context, ticket *domain.Ticket) (string, bool, error) {
	if !s.Conditions.Matches(ticket.Priority) {
		return "", false, nil
	}
	pool, err := s.Agents.EligibleAgents(ctx, repository.EligibilityQuery{
		Roles:   domain.SupervisorRoles,
		Ceiling: s.Ceiling,
	})
	if err != nil {
		return "", false, err
	}
	return pick(pool)
}

// SkillBased routes to the least-loaded agent who lists the ticket category.
type SkillBased struct {
	Agents AgentSource
}

func (s *SkillBased) Evaluate(ctx context.Context, ticket *domain.Ticket) (string, bool, error) {
	if ticket.Category == "" {
		return "", false, nil
	}
	pool, err := s.Agents.EligibleAgents(ctx, repository.EligibilityQuery{
		Roles:    domain.StaffRoles,
		Category: ticket.Category,
	})
	if err != nil {
		return "", false, err
	}
	return pick(pool)
}

// LoadBalanced routes to the least-loaded agent with spare capacity.
type LoadBalanced struct {
	Agents AgentSource
}

func (s *LoadBalanced) Evaluate(ctx context.Context, ticket *domain.Ticket) (string, bool, error) {
	pool, err := s.Agents.EligibleAgents(ctx, repository.EligibilityQuery{Roles: domain.StaffRoles})
	if err != nil {
		return "", false, err
	}
	return pick(pool)
}

// RoundRobin rotates through agents by id within each category. The cursor
// row stays locked until the caller's transaction ends. Past the last
// agent the rotation wraps to the first.
type RoundRobin struct {
	Agents  AgentSource
	Cursors CursorStore
	Ceiling int
	Now     func() time.Time
}

func (s *RoundRobin) Evaluate(ctx context.Context, ticket *domain.Ticket) (string, bool, error) {
	cursor, err := s.Cursors.LockCursor(ctx, ticket.Category)
	if err != nil {
		return "", false, err
	}
	pool, err := s.Agents.EligibleAgents(ctx, repository.EligibilityQuery{
		Roles:   domain.StaffRoles,
		Ceiling: s.Ceiling,
	})
	if err != nil {
		return "", false, err
	}

	next, ok := nextAfter(pool, cursor.LastAssignedAgentID)
	if !ok {
		return "", false, nil
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	cursor.LastAssignedAgentID = &next
	cursor.LastAssignedAt = &now
	if err := s.Cursors.SaveCursor(ctx, *cursor); err != nil {
		return "", false, err
	}
	return next, true, nil
}

// nextAfter returns the smallest id greater than last, wrapping to the smallest id.
func nextAfter(pool []domain.AgentWorkload, last *string) (string, bool) {
	if len(pool) == 0 {
		return "", false
	}
	first := pool[0].ID
	var next string
	for _, w := range pool {
		if w.ID < first {
			first = w.ID
		}
		if last != nil && w.ID > *last && (next == "" || w.ID < next) {
			next = w.ID
		}
	}
	if next == "" {
		return first, true
	}
	return next, true
}

func pick(pool []domain.AgentWorkload) (string, bool, error) {
	best, ok := domain.LeastLoaded(pool)
	if !ok {
		return "", false, nil
	}
	return best.ID, true, nil
}
