package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/mailer"
	"github.com/spec-kit/assignment-engine/internal/observability"
)

var assignmentTemplate = template.Must(template.New("assignment").Parse(`<div style="font-family: sans-serif; color: #333;">
  <h2 style="color: #C00000;">New Ticket Assignment</h2>
  <p>You have been assigned a new support ticket.</p>
  <div style="margin: 20px 0; padding: 15px; border-left: 4px solid #C00000; background-color: #f8f8f8;">
    <p><strong>Ticket #{{.Number}}:</strong> {{.Title}}</p>
    <p><strong>Priority:</strong> {{.Priority}}</p>
    <p><strong>Status:</strong> {{.Status}}</p>
    <p><strong>Description:</strong> {{.Description}}</p>
  </div>
  <p>Please respond to this ticket within the required SLA time frame.</p>
  <a href="{{.Link}}">View Ticket</a>
</div>`))

var breachTemplate = template.Must(template.New("breach").Parse(`<div style="font-family: sans-serif; color: #333;">
  <h2 style="color: #C00000;">SLA Breach Alert</h2>
  <p>A ticket assigned to you has breached its {{.Breach}} SLA.</p>
  <div style="margin: 20px 0; padding: 15px; border-left: 4px solid #C00000; background-color: #f8f8f8;">
    <p><strong>Ticket #{{.Number}}:</strong> {{.Title}}</p>
    <p><strong>Priority:</strong> {{.Priority}}</p>
    <p><strong>Status:</strong> {{.Status}}</p>
    <p><strong>SLA Breach:</strong> {{.Breach}}</p>
    {{if .Due}}<p><strong>{{.DueLabel}}:</strong> {{.Due}}</p>{{end}}
  </div>
  <p>Please take immediate action to address this ticket.</p>
  <a href="{{.Link}}">View Ticket</a>
</div>`))

type emailView struct {
	Number      int64
	Title       string
	Priority    string
	Status      string
	Description string
	Breach      string
	DueLabel    string
	Due         string
	Link        string
}

// EmailService renders notification emails and delivers them from a bounded
// queue at a limited rate. Callers never block on delivery.
type EmailService struct {
	sender  mailer.Sender
	limiter *rate.Limiter
	queue   chan mailer.Message
	baseURL string
	logger  *zap.Logger
	metrics *observability.Metrics
}

// EmailDependencies bundles email collaborators.
type EmailDependencies struct {
	Sender     mailer.Sender
	BaseURL    string
	RatePerSec float64
	Burst      int
	QueueSize  int
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewEmailService creates the service. Run must be started to drain the queue.
func NewEmailService(deps EmailDependencies) *EmailService {
	if deps.RatePerSec <= 0 {
		deps.RatePerSec = 2
	}
	if deps.Burst <= 0 {
		deps.Burst = 1
	}
	if deps.QueueSize <= 0 {
		deps.QueueSize = 256
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailService{
		sender:  deps.Sender,
		limiter: rate.NewLimiter(rate.Limit(deps.RatePerSec), deps.Burst),
		queue:   make(chan mailer.Message, deps.QueueSize),
		baseURL: strings.TrimRight(deps.BaseURL, "/"),
		logger:  logger.Named("email"),
		metrics: deps.Metrics,
	}
}

// SendAssignmentEmail queues the new-assignment email.
func (s *EmailService) SendAssignmentEmail(address string, ticket domain.Ticket) {
	body, err := s.render(assignmentTemplate, s.view(ticket))
	if err != nil {
		s.logger.Error("render assignment email", zap.Error(err))
		return
	}
	s.enqueue(mailer.Message{
		To:       []string{address},
		Subject:  fmt.Sprintf("Ticket Assigned: #%d - %s", ticket.TicketNumber, ticket.Title),
		HTMLBody: body,
	})
}

// SendBreachEmail queues the SLA breach alert.
func (s *EmailService) SendBreachEmail(address string, ticket domain.Ticket, breach domain.BreachType) {
	view := s.view(ticket)
	view.Breach = breach.Label()
	switch breach {
	case domain.BreachTypeResponse:
		view.DueLabel = "Response Due"
		view.Due = formatDue(ticket.SLAResponseDue)
	case domain.BreachTypeResolution:
		view.DueLabel = "Resolution Due"
		view.Due = formatDue(ticket.SLAResolutionDue)
	}

	body, err := s.render(breachTemplate, view)
	if err != nil {
		s.logger.Error("render breach email", zap.Error(err))
		return
	}
	s.enqueue(mailer.Message{
		To:       []string{address},
		Subject:  fmt.Sprintf("URGENT: SLA Breach on Ticket #%d", ticket.TicketNumber),
		HTMLBody: body,
	})
}

// Run delivers queued messages until ctx is cancelled.
func (s *EmailService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.queue:
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			s.deliver(ctx, msg)
		}
	}
}

func (s *EmailService) deliver(ctx context.Context, msg mailer.Message) {
	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.sender.Send(sendCtx, msg); err != nil {
		s.metrics.RecordEmail("failed")
		s.logger.Warn("email delivery failed",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return
	}
	s.metrics.RecordEmail("sent")
}

func (s *EmailService) enqueue(msg mailer.Message) {
	if len(msg.To) == 0 || msg.To[0] == "" {
		return
	}
	select {
	case s.queue <- msg:
	default:
		s.metrics.RecordEmail("dropped")
		s.logger.Warn("email queue full, dropping message", zap.String("subject", msg.Subject))
	}
}

func (s *EmailService) view(ticket domain.Ticket) emailView {
	return emailView{
		Number:      ticket.TicketNumber,
		Title:       ticket.Title,
		Priority:    priorityText(ticket.Priority),
		Status:      strings.ReplaceAll(string(ticket.Status), "_", " "),
		Description: ticket.Description,
		Link:        fmt.Sprintf("%s/tickets/%s", s.baseURL, ticket.ID),
	}
}

func (s *EmailService) render(tmpl *template.Template, view emailView) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func priorityText(p domain.TicketPriority) string {
	switch p {
	case domain.TicketPriorityLow:
		return "Low"
	case domain.TicketPriorityMedium:
		return "Medium"
	case domain.TicketPriorityHigh:
		return "High"
	case domain.TicketPriorityCritical:
		return "Critical"
	}
	return "Unknown"
}

func formatDue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC1123)
}
