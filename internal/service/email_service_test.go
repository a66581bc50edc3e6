package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/mailer"
)

type captureSender struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (c *captureSender) Send(_ context.Context, msg mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) messages() []mailer.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]mailer.Message(nil), c.sent...)
}

func TestEmailServiceDeliversQueuedMessages(t *testing.T) {
	sender := &captureSender{}
	svc := NewEmailService(EmailDependencies{
		Sender:     sender,
		BaseURL:    "https://support.example.com/",
		RatePerSec: 100,
		Burst:      10,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	due := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	ticket := domain.Ticket{
		ID:             "t-1",
		TicketNumber:   42,
		Title:          "VPN <down>",
		Status:         domain.TicketStatusInProgress,
		Priority:       domain.TicketPriorityHigh,
		SLAResponseDue: &due,
	}
	svc.SendAssignmentEmail("alice@example.com", ticket)
	svc.SendBreachEmail("alice@example.com", ticket, domain.BreachTypeResponse)

	require.Eventually(t, func() bool { return len(sender.messages()) == 2 }, time.Second, 10*time.Millisecond)
	msgs := sender.messages()

	assert.Equal(t, "Ticket Assigned: #42 - VPN <down>", msgs[0].Subject)
	assert.Equal(t, []string{"alice@example.com"}, msgs[0].To)
	assert.Contains(t, msgs[0].HTMLBody, "VPN &lt;down&gt;")
	assert.Contains(t, msgs[0].HTMLBody, "High")
	assert.Contains(t, msgs[0].HTMLBody, "IN PROGRESS")
	assert.Contains(t, msgs[0].HTMLBody, "https://support.example.com/tickets/t-1")

	assert.Equal(t, "URGENT: SLA Breach on Ticket #42", msgs[1].Subject)
	assert.Contains(t, msgs[1].HTMLBody, "Response Time")
	assert.Contains(t, msgs[1].HTMLBody, "Mon, 01 Jan 2024 14:00:00 UTC")
}

func TestEmailServiceDropsWhenQueueFull(t *testing.T) {
	sender := &captureSender{}
	svc := NewEmailService(EmailDependencies{Sender: sender, QueueSize: 1})

	ticket := domain.Ticket{ID: "t-1", TicketNumber: 1, Title: "a"}
	svc.SendAssignmentEmail("a@example.com", ticket)
	svc.SendAssignmentEmail("b@example.com", ticket)
	svc.SendAssignmentEmail("", ticket)

	assert.Len(t, svc.queue, 1)
	msg := <-svc.queue
	assert.Equal(t, []string{"a@example.com"}, msg.To)
}
