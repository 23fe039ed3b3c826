package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/amruthadental/clinic-backend/internal/services"
	"github.com/amruthadental/clinic-backend/internal/storage"
)

// WebhookHandler receives carrier delivery receipts
type WebhookHandler struct {
	notifier *services.Notifier
}

func NewWebhookHandler(notifier *services.Notifier) *WebhookHandler {
	return &WebhookHandler{notifier: notifier}
}

// TwilioStatus applies a Twilio message status callback to the delivery log
func (h *WebhookHandler) TwilioStatus(c *fiber.Ctx) error {
	sid := c.FormValue("MessageSid")
	status := c.FormValue("MessageStatus")
	if sid == "" || status == "" {
		return errorResponse(c, fiber.StatusBadRequest, "invalid_request", "MessageSid and MessageStatus are required")
	}

	err := h.notifier.ApplyCarrierStatus(c.UserContext(), sid, status, c.FormValue("ErrorCode"))
	if errors.Is(err, storage.ErrNotFound) {
		// OTP messages are not in the delivery log
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err != nil {
		log.Printf("⚠️  Twilio status for %s not applied: %v", sid, err)
		return mapError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
