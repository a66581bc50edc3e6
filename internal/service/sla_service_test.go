package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/events"
	"github.com/spec-kit/assignment-engine/internal/mocks"
	apperrors "github.com/spec-kit/assignment-engine/pkg/util/errorutil"
)

var slaNow = time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

type slaFixture struct {
	store      *memStore
	svc        *SLAService
	dispatcher events.Dispatcher
	events     *eventLog
}

func newSLAFixture(t *testing.T) *slaFixture {
	t.Helper()
	store := newMemStore()
	dispatcher := events.NewInMemoryDispatcher()
	notifier := NewNotificationService(NotificationDependencies{
		Repo: memNotifications{store},
		Tx:   store,
	})
	svc := NewSLAService(SLADependencies{
		Tx:            store,
		TicketRepo:    memTickets{store},
		AgentRepo:     memAgents{store},
		SLAConfigRepo: memSLAConfigs{store},
		Notifier:      notifier,
		Dispatcher:    dispatcher,
		Now:           func() time.Time { return slaNow },
	})
	return &slaFixture{store: store, svc: svc, dispatcher: dispatcher, events: newEventLog(dispatcher)}
}

func overdue(responseAgo, resolutionAgo time.Duration) func(*domain.Ticket) {
	return func(t *domain.Ticket) {
		resp := slaNow.Add(-responseAgo)
		res := slaNow.Add(-resolutionAgo)
		t.SLAResponseDue = &resp
		t.SLAResolutionDue = &res
	}
}

func TestCalculateDueDates(t *testing.T) {
	f := newSLAFixture(t)
	f.store.slaConfigs[domain.TicketPriorityHigh] = domain.SLAConfig{
		Priority:        domain.TicketPriorityHigh,
		ResponseHours:   4,
		ResolutionHours: 24,
	}
	ticket := f.store.addTicket(nil)
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	due, err := f.svc.CalculateDueDates(context.Background(), ticket.ID, domain.TicketPriorityHigh, created)
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC), due.ResponseDue)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), due.ResolutionDue)

	stored := f.store.ticket(ticket.ID)
	require.NotNil(t, stored.SLAResponseDue)
	assert.True(t, stored.SLAResponseDue.Equal(due.ResponseDue))
	assert.True(t, stored.SLAResolutionDue.Equal(due.ResolutionDue))
}

func TestCalculateDueDatesWithoutConfig(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.store.addTicket(nil)

	due, err := f.svc.CalculateDueDates(context.Background(), ticket.ID, domain.TicketPriorityLow, slaNow)
	require.NoError(t, err)
	assert.Nil(t, due)
	assert.Nil(t, f.store.ticket(ticket.ID).SLAResponseDue)
}

func TestCalculateDueDatesValidation(t *testing.T) {
	f := newSLAFixture(t)

	_, err := f.svc.CalculateDueDates(context.Background(), "nope", domain.TicketPriorityLow, slaNow)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.svc.CalculateDueDates(context.Background(), uuid.NewString(), "URGENT", slaNow)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestUpsertConfigValidation(t *testing.T) {
	f := newSLAFixture(t)

	tests := []struct {
		name string
		cfg  domain.SLAConfig
		ok   bool
	}{
		{"valid", domain.SLAConfig{Priority: domain.TicketPriorityCritical, ResponseHours: 1, ResolutionHours: 4}, true},
		{"unknown priority", domain.SLAConfig{Priority: "URGENT", ResponseHours: 1, ResolutionHours: 4}, false},
		{"zero hours", domain.SLAConfig{Priority: domain.TicketPriorityLow, ResponseHours: 0, ResolutionHours: 4}, false},
		{"response after resolution", domain.SLAConfig{Priority: domain.TicketPriorityLow, ResponseHours: 8, ResolutionHours: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.UpsertConfig(context.Background(), tt.cfg)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.cfg.ResolutionHours, got.ResolutionHours)
				return
			}
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
		})
	}

	configs, err := f.svc.ListConfigs(context.Background())
	require.NoError(t, err)
	assert.Len(t, configs, 1)
}

func TestFlagBreachNotifiesAssigneeAndSupervisors(t *testing.T) {
	f := newSLAFixture(t)
	alice := f.store.addAgent("alice", domain.RoleAgent, 5)
	mona := f.store.addAgent("mona", domain.RoleManager, 5)
	adam := f.store.addAgent("adam", domain.RoleAdmin, 5)
	ticket := f.store.addTicket(func(t *domain.Ticket) {
		assignedTo(alice.ID)(t)
		overdue(time.Hour, -time.Hour)(t)
	})

	breach, flagged, err := f.svc.FlagBreach(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, flagged)
	assert.Equal(t, domain.BreachTypeResponse, breach)

	stored := f.store.ticket(ticket.ID)
	assert.True(t, stored.SLABreached)
	assert.True(t, stored.SLAResponseBreached)
	assert.False(t, stored.SLAResolutionBreached)

	for _, id := range []string{alice.ID, mona.ID, adam.ID} {
		notes := f.store.notificationsFor(id)
		require.Len(t, notes, 1, id)
		assert.Equal(t, domain.NotificationSLABreached, notes[0].Kind)
		assert.Equal(t, "SLA Breach: Response Time", notes[0].Title)
	}

	published := f.events.all()
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.SLABreachPayload)
	assert.Equal(t, alice.ID, payload.Recipients[0])
	assert.Len(t, payload.Recipients, 3)
	assert.Equal(t, alice.Email, payload.AssigneeEmail)
}

func TestFlagBreachIsIdempotent(t *testing.T) {
	f := newSLAFixture(t)
	mona := f.store.addAgent("mona", domain.RoleManager, 5)
	ticket := f.store.addTicket(overdue(time.Hour, -time.Hour))

	_, flagged, err := f.svc.FlagBreach(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.True(t, flagged)

	_, flagged, err = f.svc.FlagBreach(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, flagged)

	assert.Len(t, f.store.notificationsFor(mona.ID), 1)
	assert.Len(t, f.events.all(), 1)
}

func TestFlagBreachDeduplicatesSupervisorAssignee(t *testing.T) {
	f := newSLAFixture(t)
	mona := f.store.addAgent("mona", domain.RoleManager, 5)
	ticket := f.store.addTicket(func(t *domain.Ticket) {
		assignedTo(mona.ID)(t)
		overdue(time.Hour, -time.Hour)(t)
	})

	_, flagged, err := f.svc.FlagBreach(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.True(t, flagged)
	assert.Len(t, f.store.notificationsFor(mona.ID), 1)
}

func TestFlagBreachResponseBeforeResolution(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.store.addTicket(overdue(2*time.Hour, time.Hour))

	breach, flagged, err := f.svc.FlagBreach(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.True(t, flagged)
	assert.Equal(t, domain.BreachTypeResponse, breach)

	breach, flagged, err = f.svc.FlagBreach(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.True(t, flagged)
	assert.Equal(t, domain.BreachTypeResolution, breach)

	_, flagged, err = f.svc.FlagBreach(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, flagged)

	stored := f.store.ticket(ticket.ID)
	assert.True(t, stored.SLAResponseBreached)
	assert.True(t, stored.SLAResolutionBreached)
}

func TestFlagBreachSkipsSatisfiedAndTerminalTickets(t *testing.T) {
	f := newSLAFixture(t)
	responded := slaNow.Add(-3 * time.Hour)
	tests := []struct {
		name   string
		mutate func(*domain.Ticket)
	}{
		{"resolved", func(t *domain.Ticket) {
			overdue(time.Hour, time.Hour)(t)
			t.Status = domain.TicketStatusResolved
		}},
		{"responded in time", func(t *domain.Ticket) {
			overdue(time.Hour, -time.Hour)(t)
			t.FirstResponseAt = &responded
		}},
		{"not yet due", overdue(-time.Hour, -2*time.Hour)},
		{"no deadlines", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := f.store.addTicket(tt.mutate)
			_, flagged, err := f.svc.FlagBreach(context.Background(), ticket.ID)
			require.NoError(t, err)
			assert.False(t, flagged)
			assert.False(t, f.store.ticket(ticket.ID).SLABreached)
		})
	}
	assert.Empty(t, f.events.all())
}

func TestListBreachCandidates(t *testing.T) {
	f := newSLAFixture(t)
	due := f.store.addTicket(overdue(time.Hour, -time.Hour))
	f.store.addTicket(overdue(-time.Hour, -2*time.Hour))

	tickets, err := f.svc.ListBreachCandidates(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, due.ID, tickets[0].ID)
}

func TestFlagBreachFansOutToRealtimeAndEmail(t *testing.T) {
	f := newSLAFixture(t)
	alice := f.store.addAgent("alice", domain.RoleAgent, 5)
	mona := f.store.addAgent("mona", domain.RoleManager, 5)
	ticket := f.store.addTicket(func(t *domain.Ticket) {
		assignedTo(alice.ID)(t)
		overdue(time.Hour, -time.Hour)(t)
	})

	publisher := new(mocks.MockPublisher)
	publisher.On("Publish", mock.Anything, "notifications:"+alice.ID, mock.Anything).Return(nil).Once()
	publisher.On("Publish", mock.Anything, "notifications:"+mona.ID, mock.Anything).Return(nil).Once()
	emails := new(mocks.MockEmailDispatcher)
	emails.On("SendBreachEmail", alice.Email, mock.AnythingOfType("domain.Ticket"), domain.BreachTypeResponse).Once()

	notifications := NewNotificationService(NotificationDependencies{
		Repo:       memNotifications{f.store},
		Tx:         f.store,
		Dispatcher: f.dispatcher,
		Publisher:  publisher,
		Emails:     emails,
	})
	notifications.RegisterHandlers()

	_, flagged, err := f.svc.FlagBreach(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.True(t, flagged)

	publisher.AssertExpectations(t)
	emails.AssertExpectations(t)
}
