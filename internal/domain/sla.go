package domain

import "time"

// BreachType distinguishes which SLA deadline was missed.
type BreachType string

const (
	BreachTypeResponse   BreachType = "response"
	BreachTypeResolution BreachType = "resolution"
)

// Label is the human-readable name used in messages.
func (b BreachType) Label() string {
	switch b {
	case BreachTypeResponse:
		return "Response Time"
	case BreachTypeResolution:
		return "Resolution Time"
	}
	return string(b)
}

// SLAConfig holds per-priority deadlines in hours.
type SLAConfig struct {
	Priority        TicketPriority
	ResponseHours   int
	ResolutionHours int
	UpdatedAt       time.Time
}

// SLADueDates are the computed deadlines for a ticket.
type SLADueDates struct {
	ResponseDue   time.Time
	ResolutionDue time.Time
}

// DueDates offsets createdAt by the configured hours.
func (c SLAConfig) DueDates(createdAt time.Time) SLADueDates {
	return SLADueDates{
		ResponseDue:   createdAt.Add(time.Duration(c.ResponseHours) * time.Hour),
		ResolutionDue: createdAt.Add(time.Duration(c.ResolutionHours) * time.Hour),
	}
}
