package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/mocks"
	"github.com/spec-kit/assignment-engine/internal/repository"
)

func workload(id string, active int) domain.AgentWorkload {
	return domain.AgentWorkload{
		Agent:         domain.Agent{ID: id, Active: true, MaxTickets: 20, AutoAssignEnabled: true},
		ActiveTickets: active,
	}
}

func TestPriorityBasedSkipsOtherPriorities(t *testing.T) {
	agents := new(mocks.MockAgentSource)
	s := &PriorityBased{
		Conditions: domain.PriorityBasedConditions{Priorities: []domain.TicketPriority{domain.TicketPriorityCritical}},
		Agents:     agents,
		Ceiling:    10,
	}

	_, ok, err := s.Evaluate(context.Background(), &domain.Ticket{Priority: domain.TicketPriorityLow})
	require.NoError(t, err)
	assert.False(t, ok)
	agents.AssertNotCalled(t, "EligibleAgents", mock.Anything, mock.Anything)
}

func TestPriorityBasedPicksLeastLoadedSupervisor(t *testing.T) {
	agents := new(mocks.MockAgentSource)
	agents.On("EligibleAgents", mock.Anything, repository.EligibilityQuery{
		Roles:   domain.SupervisorRoles,
		Ceiling: 10,
	}).Return([]domain.AgentWorkload{workload("m2", 4), workload("m1", 4), workload("m3", 7)}, nil)

	s := &PriorityBased{
		Conditions: domain.PriorityBasedConditions{Priorities: []domain.TicketPriority{domain.TicketPriorityCritical}},
		Agents:     agents,
		Ceiling:    10,
	}
	id, ok, err := s.Evaluate(context.Background(), &domain.Ticket{Priority: domain.TicketPriorityCritical})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "m1", id)
	agents.AssertExpectations(t)
}

func TestSkillBasedRequiresCategory(t *testing.T) {
	agents := new(mocks.MockAgentSource)
	s := &SkillBased{Agents: agents}

	_, ok, err := s.Evaluate(context.Background(), &domain.Ticket{})
	require.NoError(t, err)
	assert.False(t, ok)

	agents.On("EligibleAgents", mock.Anything, repository.EligibilityQuery{
		Roles:    domain.StaffRoles,
		Category: "billing",
	}).Return([]domain.AgentWorkload{}, nil)
	_, ok, err = s.Evaluate(context.Background(), &domain.Ticket{Category: "billing"})
	require.NoError(t, err)
	assert.False(t, ok)
	agents.AssertExpectations(t)
}

func TestRoundRobinRotation(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	pool := []domain.AgentWorkload{workload("a1", 3), workload("a2", 0), workload("a3", 9)}

	tests := []struct {
		name string
		last *string
		want string
	}{
		{name: "fresh cursor starts at first", last: nil, want: "a1"},
		{name: "advances past last", last: strPtr("a1"), want: "a2"},
		{name: "wraps after last agent", last: strPtr("a3"), want: "a1"},
		{name: "departed agent", last: strPtr("a25"), want: "a3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agents := new(mocks.MockAgentSource)
			cursors := new(mocks.MockCursorStore)
			cursors.On("LockCursor", mock.Anything, "network").
				Return(&domain.RoundRobinCursor{Category: "network", LastAssignedAgentID: tt.last}, nil)
			agents.On("EligibleAgents", mock.Anything, repository.EligibilityQuery{
				Roles:   domain.StaffRoles,
				Ceiling: 20,
			}).Return(pool, nil)
			cursors.On("SaveCursor", mock.Anything, mock.MatchedBy(func(c domain.RoundRobinCursor) bool {
				return c.Category == "network" && c.LastAssignedAgentID != nil && *c.LastAssignedAgentID == tt.want &&
					c.LastAssignedAt != nil && c.LastAssignedAt.Equal(now)
			})).Return(nil)

			s := &RoundRobin{Agents: agents, Cursors: cursors, Ceiling: 20, Now: func() time.Time { return now }}
			id, ok, err := s.Evaluate(context.Background(), &domain.Ticket{Category: "network"})
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, id)
			cursors.AssertExpectations(t)
		})
	}
}

func TestRoundRobinEmptyPoolKeepsCursor(t *testing.T) {
	agents := new(mocks.MockAgentSource)
	cursors := new(mocks.MockCursorStore)
	cursors.On("LockCursor", mock.Anything, "").Return(&domain.RoundRobinCursor{}, nil)
	agents.On("EligibleAgents", mock.Anything, mock.Anything).Return([]domain.AgentWorkload{}, nil)

	s := &RoundRobin{Agents: agents, Cursors: cursors, Ceiling: 20}
	_, ok, err := s.Evaluate(context.Background(), &domain.Ticket{})
	require.NoError(t, err)
	assert.False(t, ok)
	cursors.AssertNotCalled(t, "SaveCursor", mock.Anything, mock.Anything)
}

func rule(name string, ruleType domain.RuleType, priority int, raw string) domain.AssignmentRule {
	return domain.AssignmentRule{ID: name, Name: name, RuleType: ruleType, Priority: priority, RawConditions: []byte(raw), Active: true}
}

func TestEngineFirstMatchingRuleWins(t *testing.T) {
	rulesSrc := new(mocks.MockRuleSource)
	agents := new(mocks.MockAgentSource)
	cursors := new(mocks.MockCursorStore)

	rulesSrc.On("ListActive", mock.Anything).Return([]domain.AssignmentRule{
		rule("round robin fallback", domain.RuleTypeRoundRobin, 1, `{}`),
		rule("critical to seniors", domain.RuleTypePriorityBased, 10, `{"priorities":["CRITICAL"]}`),
		rule("broken", domain.RuleTypePriorityBased, 50, `{"priorities":"HIGH"}`),
		rule("balance", domain.RuleTypeLoadBalanced, 5, `{}`),
	}, nil)
	agents.On("EligibleAgents", mock.Anything, repository.EligibilityQuery{Roles: domain.StaffRoles}).
		Return([]domain.AgentWorkload{workload("a2", 1), workload("a1", 2)}, nil)

	engine := NewEngine(Dependencies{Rules: rulesSrc, Agents: agents, Cursors: cursors})
	sel, err := engine.SelectAgent(context.Background(), &domain.Ticket{ID: "t1", Priority: domain.TicketPriorityHigh})
	require.NoError(t, err)
	require.True(t, sel.Found())
	assert.Equal(t, "a2", sel.AgentID)
	assert.Equal(t, "balance", sel.Rule.Name)
	cursors.AssertNotCalled(t, "LockCursor", mock.Anything, mock.Anything)
}

func TestEngineNoCandidate(t *testing.T) {
	rulesSrc := new(mocks.MockRuleSource)
	agents := new(mocks.MockAgentSource)
	rulesSrc.On("ListActive", mock.Anything).Return([]domain.AssignmentRule{
		rule("balance", domain.RuleTypeLoadBalanced, 5, ``),
	}, nil)
	agents.On("EligibleAgents", mock.Anything, mock.Anything).Return([]domain.AgentWorkload{}, nil)

	engine := NewEngine(Dependencies{Rules: rulesSrc, Agents: agents})
	sel, err := engine.SelectAgent(context.Background(), &domain.Ticket{ID: "t1"})
	require.NoError(t, err)
	assert.False(t, sel.Found())
	assert.Nil(t, sel.Rule)
}

func TestEngineStoreErrorPropagates(t *testing.T) {
	rulesSrc := new(mocks.MockRuleSource)
	agents := new(mocks.MockAgentSource)
	boom := errors.New("connection reset")
	rulesSrc.On("ListActive", mock.Anything).Return([]domain.AssignmentRule{
		rule("balance", domain.RuleTypeLoadBalanced, 5, `{}`),
	}, nil)
	agents.On("EligibleAgents", mock.Anything, mock.Anything).Return(nil, boom)

	engine := NewEngine(Dependencies{Rules: rulesSrc, Agents: agents})
	_, err := engine.SelectAgent(context.Background(), &domain.Ticket{ID: "t1"})
	assert.ErrorIs(t, err, boom)
}

func strPtr(s string) *string { return &s }
