package rules

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/assignment-engine/internal/domain"
)

// RuleSource lists the active assignment rules.
type RuleSource interface {
	ListActive(ctx context.Context) ([]domain.AssignmentRule, error)
}

// Config holds the fixed ceilings used by some strategies.
type Config struct {
	SeniorCeiling     int
	RoundRobinCeiling int
}

// Dependencies bundles the engine's collaborators.
type Dependencies struct {
	Rules   RuleSource
	Agents  AgentSource
	Cursors CursorStore
	Config  Config
	Logger  *zap.Logger
	Now     func() time.Time
}

// Engine evaluates active rules in priority order until one yields a candidate.
type Engine struct {
	rules   RuleSource
	agents  AgentSource
	cursors CursorStore
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// Selection is the engine's answer. An empty AgentID means no candidate.
type Selection struct {
	AgentID string
	Rule    *domain.AssignmentRule
}

// Found reports whether a candidate was selected.
func (s Selection) Found() bool {
	return s.AgentID != ""
}

// NewEngine creates the engine.
func NewEngine(deps Dependencies) *Engine {
	cfg := deps.Config
	if cfg.SeniorCeiling <= 0 {
		cfg.SeniorCeiling = 10
	}
	if cfg.RoundRobinCeiling <= 0 {
		cfg.RoundRobinCeiling = domain.DefaultMaxTickets
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		rules:   deps.Rules,
		agents:  deps.Agents,
		cursors: deps.Cursors,
		cfg:     cfg,
		logger:  logger,
		now:     now,
	}
}

// SelectAgent returns the candidate of the first matching rule. Later rules
// are not evaluated. Must run inside the caller's transaction so round-robin
// cursor updates commit or roll back with the assignment.
func (e *Engine) SelectAgent(ctx context.Context, ticket *domain.Ticket) (Selection, error) {
	active, err := e.rules.ListActive(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("load assignment rules: %w", err)
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return active[i].Name < active[j].Name
	})

	for i := range active {
		rule := &active[i]
		strategy, err := e.Build(rule)
		if err != nil {
			e.logger.Warn("skipping misconfigured assignment rule",
				zap.String("rule_id", rule.ID),
				zap.String("rule", rule.Name),
				zap.Error(err))
			continue
		}

		agentID, ok, err := strategy.Evaluate(ctx, ticket)
		if err != nil {
			return Selection{}, fmt.Errorf("evaluate rule %s: %w", rule.Name, err)
		}
		if ok {
			e.logger.Debug("assignment rule matched",
				zap.String("ticket_id", ticket.ID),
				zap.String("rule", rule.Name),
				zap.String("agent_id", agentID))
			return Selection{AgentID: agentID, Rule: rule}, nil
		}
	}
	return Selection{}, nil
}

// Build parses the rule's conditions and returns its strategy.
func (e *Engine) Build(rule *domain.AssignmentRule) (Strategy, error) {
	if rule.Conditions == nil {
		conditions, err := domain.ParseRuleConditions(rule.RuleType, rule.RawConditions)
		if err != nil {
			return nil, err
		}
		rule.Conditions = conditions
	}

	switch c := rule.Conditions.(type) {
	case domain.PriorityBasedConditions:
		return &PriorityBased{Conditions: c, Agents: e.agents, Ceiling: e.cfg.SeniorCeiling}, nil
	case domain.SkillBasedConditions:
		return &SkillBased{Agents: e.agents}, nil
	case domain.RoundRobinConditions:
		return &RoundRobin{Agents: e.agents, Cursors: e.cursors, Ceiling: e.cfg.RoundRobinCeiling, Now: e.now}, nil
	case domain.LoadBalancedConditions:
		return &LoadBalanced{Agents: e.agents}, nil
	default:
		return nil, fmt.Errorf("no strategy for rule type %q", rule.RuleType)
	}
}
