package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RuleType names an agent selection strategy.
type RuleType string

const (
	RuleTypePriorityBased RuleType = "priority_based"
	RuleTypeSkillBased    RuleType = "skill_based"
	RuleTypeRoundRobin    RuleType = "round_robin"
	RuleTypeLoadBalanced  RuleType = "load_balanced"
)

// AssignmentRule is a configured strategy evaluated by priority, highest first.
// RawConditions holds the stored payload; Conditions is set once it parses.
type AssignmentRule struct {
	ID            string
	Name          string
	RuleType      RuleType
	Priority      int
	RawConditions []byte
	Conditions    RuleConditions
	Active        bool
	CreatedAt     time.Time
}

// RuleConditions is the strategy-specific parameter set of a rule.
type RuleConditions interface {
	RuleType() RuleType
}

// PriorityBasedConditions lists the ticket priorities the rule routes.
type PriorityBasedConditions struct {
	Priorities []TicketPriority `json:"priorities"`
}

func (PriorityBasedConditions) RuleType() RuleType { return RuleTypePriorityBased }

// Matches reports whether the rule applies to priority.
func (c PriorityBasedConditions) Matches(priority TicketPriority) bool {
	for _, p := range c.Priorities {
		if p == priority {
			return true
		}
	}
	return false
}

// SkillBasedConditions carries no parameters; matching uses agent preferences.
type SkillBasedConditions struct{}

func (SkillBasedConditions) RuleType() RuleType { return RuleTypeSkillBased }

// RoundRobinConditions carries no parameters.
type RoundRobinConditions struct{}

func (RoundRobinConditions) RuleType() RuleType { return RuleTypeRoundRobin }

// LoadBalancedConditions carries no parameters.
type LoadBalancedConditions struct{}

func (LoadBalancedConditions) RuleType() RuleType { return RuleTypeLoadBalanced }

// ParseRuleConditions decodes and validates the stored conditions for ruleType.
// Unknown fields are rejected so misconfigured rules fail at load time.
func ParseRuleConditions(ruleType RuleType, raw []byte) (RuleConditions, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	switch ruleType {
	case RuleTypePriorityBased:
		var c PriorityBasedConditions
		if err := decodeStrict(raw, &c); err != nil {
			return nil, err
		}
		if len(c.Priorities) == 0 {
			return nil, fmt.Errorf("priority_based rule requires at least one priority")
		}
		for _, p := range c.Priorities {
			if !p.Valid() {
				return nil, fmt.Errorf("priority_based rule: unknown priority %q", p)
			}
		}
		return c, nil
	case RuleTypeSkillBased:
		var c SkillBasedConditions
		return c, decodeStrict(raw, &c)
	case RuleTypeRoundRobin:
		var c RoundRobinConditions
		return c, decodeStrict(raw, &c)
	case RuleTypeLoadBalanced:
		var c LoadBalancedConditions
		return c, decodeStrict(raw, &c)
	default:
		return nil, fmt.Errorf("unknown rule type %q", ruleType)
	}
}

func decodeStrict(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode rule conditions: %w", err)
	}
	return nil
}

// RoundRobinCursor remembers the last agent picked for a category.
type RoundRobinCursor struct {
	Category            string
	LastAssignedAgentID *string
	LastAssignedAt      *time.Time
}
