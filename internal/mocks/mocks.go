package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/repository"
)

// MockRuleSource is a mock implementation of rules.RuleSource
type MockRuleSource struct {
	mock.Mock
}

func (m *MockRuleSource) ListActive(ctx context.Context) ([]domain.AssignmentRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AssignmentRule), args.Error(1)
}

// MockAgentSource is a mock implementation of rules.AgentSource
type MockAgentSource struct {
	mock.Mock
}

func (m *MockAgentSource) EligibleAgents(ctx context.Context, q repository.EligibilityQuery) ([]domain.AgentWorkload, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AgentWorkload), args.Error(1)
}

// MockCursorStore is a mock implementation of rules.CursorStore
type MockCursorStore struct {
	mock.Mock
}

func (m *MockCursorStore) LockCursor(ctx context.Context, category string) (*domain.RoundRobinCursor, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoundRobinCursor), args.Error(1)
}

func (m *MockCursorStore) SaveCursor(ctx context.Context, cursor domain.RoundRobinCursor) error {
	args := m.Called(ctx, cursor)
	return args.Error(0)
}

// MockBreachFlagger is a mock implementation of worker.BreachFlagger
type MockBreachFlagger struct {
	mock.Mock
}

func (m *MockBreachFlagger) ListBreachCandidates(ctx context.Context, limit int) ([]domain.Ticket, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockBreachFlagger) FlagBreach(ctx context.Context, ticketID string) (domain.BreachType, bool, error) {
	args := m.Called(ctx, ticketID)
	return args.Get(0).(domain.BreachType), args.Bool(1), args.Error(2)
}

// MockAutoAssigner is a mock implementation of worker.AutoAssigner
type MockAutoAssigner struct {
	mock.Mock
}

func (m *MockAutoAssigner) ListStaleUnassigned(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAutoAssigner) AutoAssign(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

// MockPublisher is a mock implementation of service.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

// MockEmailDispatcher is a mock implementation of service.EmailDispatcher
type MockEmailDispatcher struct {
	mock.Mock
}

func (m *MockEmailDispatcher) SendAssignmentEmail(address string, ticket domain.Ticket) {
	m.Called(address, ticket)
}

func (m *MockEmailDispatcher) SendBreachEmail(address string, ticket domain.Ticket, breach domain.BreachType) {
	m.Called(address, ticket, breach)
}

// MockAssignmentUseCases is a mock implementation of handlers.AssignmentUseCases
type MockAssignmentUseCases struct {
	mock.Mock
}

func (m *MockAssignmentUseCases) AutoAssign(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockAssignmentUseCases) Assign(ctx context.Context, ticketID, agentID, actorID string) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID, agentID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockAssignmentUseCases) Unassign(ctx context.Context, ticketID, actorID string) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockAssignmentUseCases) BulkAssign(ctx context.Context, ticketIDs []string, agentID, actorID string) ([]domain.Ticket, error) {
	args := m.Called(ctx, ticketIDs, agentID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockAssignmentUseCases) AssignmentHistory(ctx context.Context, ticketID string) ([]domain.ActivityRecord, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ActivityRecord), args.Error(1)
}
