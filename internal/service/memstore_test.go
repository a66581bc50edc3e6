package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/repository"
	"github.com/spec-kit/assignment-engine/internal/rules"
)

// memStore is an in-memory store whose transactions run one at a time and
// roll back to a snapshot on error.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	tickets       map[string]domain.Ticket
	agents        map[string]domain.Agent
	activity      []domain.ActivityRecord
	notifications []domain.Notification
	slaConfigs    map[domain.TicketPriority]domain.SLAConfig

	failNotifications bool
	failActivity      bool
	nextNumber        int64
}

type memTxKey struct{}

type memSnapshot struct {
	tickets       map[string]domain.Ticket
	agents        map[string]domain.Agent
	activity      []domain.ActivityRecord
	notifications []domain.Notification
}

func newMemStore() *memStore {
	return &memStore{
		tickets:    make(map[string]domain.Ticket),
		agents:     make(map[string]domain.Agent),
		slaConfigs: make(map[domain.TicketPriority]domain.SLAConfig),
		nextNumber: 1000,
	}
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		tickets:       make(map[string]domain.Ticket, len(s.tickets)),
		agents:        make(map[string]domain.Agent, len(s.agents)),
		activity:      append([]domain.ActivityRecord(nil), s.activity...),
		notifications: append([]domain.Notification(nil), s.notifications...),
	}
	for k, v := range s.tickets {
		snap.tickets[k] = v
	}
	for k, v := range s.agents {
		snap.agents[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = snap.tickets
	s.agents = snap.agents
	s.activity = snap.activity
	s.notifications = snap.notifications
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// fixtures

func (s *memStore) addAgent(name string, role domain.Role, maxTickets int) domain.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := domain.Agent{
		ID:                uuid.NewString(),
		Name:              name,
		Email:             fmt.Sprintf("%s@example.com", name),
		Role:              role,
		Active:            true,
		MaxTickets:        maxTickets,
		AutoAssignEnabled: true,
		CreatedAt:         time.Now(),
	}
	s.agents[a.ID] = a
	return a
}

func (s *memStore) addTicket(mutate func(*domain.Ticket)) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNumber++
	t := domain.Ticket{
		ID:           uuid.NewString(),
		TicketNumber: s.nextNumber,
		Title:        fmt.Sprintf("Ticket %d", s.nextNumber),
		Status:       domain.TicketStatusOpen,
		Priority:     domain.TicketPriorityMedium,
		CreatedAt:    time.Now().Add(-time.Hour),
	}
	if mutate != nil {
		mutate(&t)
	}
	if t.AssigneeID != nil && t.Status == domain.TicketStatusOpen {
		t.Status = domain.TicketStatusAssigned
	}
	s.tickets[t.ID] = t
	return t
}

func (s *memStore) ticket(id string) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[id]
}

func (s *memStore) activityFor(ticketID string) []domain.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ActivityRecord
	for _, r := range s.activity {
		if r.TicketID == ticketID {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) notificationsFor(userID string) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *memStore) activeCount(agentID string) int {
	n := 0
	for _, t := range s.tickets {
		if t.IsAssignedTo(agentID) && t.Status.IsActive() {
			n++
		}
	}
	return n
}

// ticket repository

type memTickets struct{ s *memStore }

var _ repository.TicketRepository = memTickets{}

func (r memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r memTickets) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r memTickets) ListForUpdate(_ context.Context, ids []string) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, id := range ids {
		if t, ok := r.s.tickets[id]; ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memTickets) UpdateAssignment(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	t.AssigneeID = ticket.AssigneeID
	t.Status = ticket.Status
	t.UpdatedAt = time.Now()
	ticket.UpdatedAt = t.UpdatedAt
	r.s.tickets[t.ID] = t
	return nil
}

func (r memTickets) SetSLADueDates(_ context.Context, id string, due domain.SLADueDates) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	resp, res := due.ResponseDue, due.ResolutionDue
	t.SLAResponseDue, t.SLAResolutionDue = &resp, &res
	r.s.tickets[id] = t
	return nil
}

func (r memTickets) ListBreachCandidates(_ context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if _, ok := t.PendingBreach(now); ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNumber < out[j].TicketNumber })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memTickets) MarkBreached(_ context.Context, id string, breach domain.BreachType, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok || t.Status.IsTerminal() {
		return false, nil
	}
	switch breach {
	case domain.BreachTypeResponse:
		if t.SLAResponseBreached || t.FirstResponseAt != nil || t.SLAResponseDue == nil || !t.SLAResponseDue.Before(now) {
			return false, nil
		}
		t.SLAResponseBreached = true
	case domain.BreachTypeResolution:
		if t.SLAResolutionBreached || t.ResolvedAt != nil || t.SLAResolutionDue == nil || !t.SLAResolutionDue.Before(now) {
			return false, nil
		}
		t.SLAResolutionBreached = true
	default:
		return false, fmt.Errorf("unknown breach type %q", breach)
	}
	t.SLABreached = true
	r.s.tickets[id] = t
	return true, nil
}

func (r memTickets) ListStaleUnassigned(_ context.Context, createdBefore time.Time, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for _, t := range r.s.tickets {
		if t.AssigneeID == nil && t.Status == domain.TicketStatusOpen && t.CreatedAt.Before(createdBefore) {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// agent repository

type memAgents struct{ s *memStore }

var _ repository.AgentRepository = memAgents{}

func (r memAgents) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (r memAgents) ListWithWorkload(_ context.Context) ([]domain.AgentWorkload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.AgentWorkload
	for _, a := range r.s.agents {
		if a.Active && a.Role.IsStaff() {
			out = append(out, domain.AgentWorkload{Agent: a, ActiveTickets: r.s.activeCount(a.ID)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAgents) EligibleAgents(_ context.Context, q repository.EligibilityQuery) ([]domain.AgentWorkload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	roles := make(map[domain.Role]bool)
	for _, role := range q.Roles {
		roles[role] = true
	}
	var out []domain.AgentWorkload
	for _, a := range r.s.agents {
		if !a.Active || !a.AutoAssignEnabled || !roles[a.Role] {
			continue
		}
		if q.Category != "" && !a.PrefersCategory(q.Category) {
			continue
		}
		count := r.s.activeCount(a.ID)
		if count >= a.MaxTickets || (q.Ceiling > 0 && count >= q.Ceiling) {
			continue
		}
		out = append(out, domain.AgentWorkload{Agent: a, ActiveTickets: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAgents) LockWorkload(_ context.Context, agentID string) (*domain.AgentWorkload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.agents[agentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.AgentWorkload{Agent: a, ActiveTickets: r.s.activeCount(agentID)}, nil
}

func (r memAgents) ListActiveSupervisors(_ context.Context) ([]domain.Agent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Agent
	for _, a := range r.s.agents {
		if a.Active && a.Role.IsSupervisor() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAgents) UpsertPreferences(_ context.Context, prefs domain.AgentPreferences) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.agents[prefs.AgentID]
	if !ok {
		return pgx.ErrNoRows
	}
	a.MaxTickets = prefs.MaxTickets
	a.PreferredCategories = prefs.Categories
	a.PreferredPriorities = prefs.Priorities
	a.AutoAssignEnabled = prefs.AutoAssignEnabled
	r.s.agents[a.ID] = a
	return nil
}

func (r memAgents) Statistics(_ context.Context, agentID string) (*domain.AgentStatistics, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := domain.AgentStatistics{AgentID: agentID}
	for _, t := range r.s.tickets {
		if !t.IsAssignedTo(agentID) {
			continue
		}
		stats.TotalAssigned++
		if t.Status.IsActive() {
			stats.ActiveTickets++
		}
		if t.Status.IsTerminal() {
			stats.Resolved++
		}
		if t.SLABreached {
			stats.Breached++
		}
	}
	return &stats, nil
}

// activity, notification and SLA config repositories

type memActivity struct{ s *memStore }

func (r memActivity) Create(_ context.Context, record *domain.ActivityRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failActivity {
		return errors.New("activity insert failed")
	}
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now()
	r.s.activity = append(r.s.activity, *record)
	return nil
}

func (r memActivity) ListByTicket(_ context.Context, ticketID string) ([]domain.ActivityRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ActivityRecord
	for i := len(r.s.activity) - 1; i >= 0; i-- {
		if r.s.activity[i].TicketID == ticketID {
			out = append(out, r.s.activity[i])
		}
	}
	return out, nil
}

type memNotifications struct{ s *memStore }

func (r memNotifications) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failNotifications {
		return errors.New("notifications table unavailable")
	}
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r memNotifications) ListByUser(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	out := r.s.notificationsFor(userID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memSLAConfigs struct{ s *memStore }

func (r memSLAConfigs) GetByPriority(_ context.Context, p domain.TicketPriority) (*domain.SLAConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cfg, ok := r.s.slaConfigs[p]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &cfg, nil
}

func (r memSLAConfigs) List(_ context.Context) ([]domain.SLAConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.SLAConfig
	for _, c := range r.s.slaConfigs {
		out = append(out, c)
	}
	return out, nil
}

func (r memSLAConfigs) Upsert(_ context.Context, cfg *domain.SLAConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cfg.UpdatedAt = time.Now()
	r.s.slaConfigs[cfg.Priority] = *cfg
	return nil
}

// selectorFunc adapts a function to AgentSelector.
type selectorFunc func(ctx context.Context, t *domain.Ticket) (rules.Selection, error)

func (f selectorFunc) SelectAgent(ctx context.Context, t *domain.Ticket) (rules.Selection, error) {
	return f(ctx, t)
}

func selectAgent(agentID string) selectorFunc {
	return func(context.Context, *domain.Ticket) (rules.Selection, error) {
		return rules.Selection{AgentID: agentID, Rule: &domain.AssignmentRule{Name: "test rule"}}, nil
	}
}

func noCandidate(context.Context, *domain.Ticket) (rules.Selection, error) {
	return rules.Selection{}, nil
}
