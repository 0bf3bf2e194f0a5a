package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/washplan/washplan/internal/pkg/env"
	"github.com/washplan/washplan/internal/pkg/payments"
)

// HandlePaymentWebhook receives provider webhook deliveries. The event is
// recorded in the ledger synchronously and processed asynchronously; a 200
// acknowledges receipt, not successful processing. Duplicate deliveries are
// acknowledged without re-enqueueing.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	body := c.Body()
	secret := env.GetEnv("PAYMENT_WEBHOOK_SECRET", "")
	signature := c.Get("Washplan-Signature")

	if !payments.VerifyWebhookSignature(body, signature, secret) {
		log.Warnf("[Webhook] Rejected delivery with invalid signature from %s", c.IP())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature", "message": "Webhook signature verification failed"})
	}

	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed event payload"})
	}

	created, _, err := services.Payments.RecordEvent(c.Context(), envelope.ID, envelope.Type, body, true)
	if err != nil {
		log.Errorf("[Webhook] Failed to record event %s: %v", envelope.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to record event"})
	}

	if created {
		// Enqueue failures are recovered by the unprocessed-event sweep.
		if err := services.Scheduler.EnqueuePaymentEvent(envelope.ID); err != nil {
			log.Errorf("[Webhook] Failed to enqueue event %s: %v", envelope.ID, err)
		}
	}

	return c.JSON(fiber.Map{"received": true, "duplicate": !created})
}
