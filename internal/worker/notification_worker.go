package worker

import (
	"context"

	"github.com/spec-kit/assignment-engine/internal/service"
)

// StartNotificationWorker registers notification handlers and drains the
// email queue until ctx is cancelled.
func StartNotificationWorker(ctx context.Context, notifications *service.NotificationService, emails *service.EmailService) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if emails != nil {
		go emails.Run(ctx)
	}
}
