package domain

import "time"

// Role enumerates user roles known to the portal.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAgent    Role = "AGENT"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// DefaultMaxTickets applies when an agent has no preferences row.
const DefaultMaxTickets = 20

// StaffRoles may hold ticket assignments.
var StaffRoles = []Role{RoleAgent, RoleManager, RoleAdmin}

// SupervisorRoles receive SLA breach escalations.
var SupervisorRoles = []Role{RoleManager, RoleAdmin}

// IsStaff reports whether the role can hold assignments.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleManager || r == RoleAdmin
}

// IsSupervisor reports whether the role can assign tickets to others.
func (r Role) IsSupervisor() bool {
	return r == RoleManager || r == RoleAdmin
}

// Agent models a staff user who can hold ticket assignments.
type Agent struct {
	ID                  string
	Name                string
	Email               string
	Role                Role
	Active              bool
	MaxTickets          int
	PreferredCategories []string
	PreferredPriorities []TicketPriority
	AutoAssignEnabled   bool
	CreatedAt           time.Time
}

// PrefersCategory reports whether category is among the agent's skills.
func (a *Agent) PrefersCategory(category string) bool {
	if category == "" {
		return false
	}
	for _, c := range a.PreferredCategories {
		if c == category {
			return true
		}
	}
	return false
}

// PrefersPriority reports whether priority is among the agent's preferences.
func (a *Agent) PrefersPriority(priority TicketPriority) bool {
	for _, p := range a.PreferredPriorities {
		if p == priority {
			return true
		}
	}
	return false
}

// AgentWorkload is an agent with its derived active ticket count.
type AgentWorkload struct {
	Agent
	ActiveTickets int
	MatchScore    int
}

// RemainingCapacity is how many more active tickets the agent may take.
func (w *AgentWorkload) RemainingCapacity() int {
	remaining := w.MaxTickets - w.ActiveTickets
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AtCapacity reports whether the agent cannot take another ticket.
func (w *AgentWorkload) AtCapacity() bool {
	return w.ActiveTickets >= w.MaxTickets
}

// AgentPreferences is the editable part of an agent's routing profile.
type AgentPreferences struct {
	AgentID           string
	MaxTickets        int
	Categories        []string
	Priorities        []TicketPriority
	AutoAssignEnabled bool
}

// AgentStatistics summarises an agent's assignment history.
type AgentStatistics struct {
	AgentID       string
	ActiveTickets int
	TotalAssigned int
	Resolved      int
	Breached      int
	MaxTickets    int
	Utilization   float64
	ComputedAt    time.Time
}
