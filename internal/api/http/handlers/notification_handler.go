package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/assignment-engine/internal/domain"
	apperrors "github.com/spec-kit/assignment-engine/pkg/util/errorutil"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	notifications NotificationReader
}

// NewNotificationHandler constructs handler.
func NewNotificationHandler(notifications NotificationReader) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List GET /notifications?limit=N.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID := actorID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	items, err := h.notifications.ListForUser(c.UserContext(), userID, c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return c.JSON(fiber.Map{"data": items})
}
