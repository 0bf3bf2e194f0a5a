package controllers

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/internal/pkg/lifecycle"
	"github.com/washplan/washplan/internal/pkg/payments"
	"github.com/washplan/washplan/internal/pkg/reservation"
	"github.com/washplan/washplan/internal/pkg/wizard"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.Equal(t, now.UTC().Format(time.RFC3339), formatted)
}

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"booking not found", wizard.ErrBookingNotFound, fiber.StatusNotFound, "not_found"},
		{"slot not found", reservation.ErrSlotNotFound, fiber.StatusNotFound, "slot_not_found"},
		{"slot full", reservation.ErrSlotFull, fiber.StatusConflict, "slot_full"},
		{"validation", &wizard.ValidationError{Fields: map[string]string{"zip": "required"}}, fiber.StatusUnprocessableEntity, "validation_failed"},
		{"bad request", &wizard.BadRequestError{Reason: "step out of range"}, fiber.StatusBadRequest, "bad_request"},
		{"conflict", &wizard.ConflictError{Reason: "booking is terminal"}, fiber.StatusConflict, "conflict"},
		{"invalid transition", &lifecycle.InvalidTransitionError{From: models.BookingStatusDraft, To: models.BookingStatusActive}, fiber.StatusConflict, "invalid_transition"},
		{"unexpected", errors.New("boom"), fiber.StatusInternalServerError, "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/fail", func(c *fiber.Ctx) error {
				return respondDomainError(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, readErr := io.ReadAll(resp.Body)
			require.NoError(t, readErr)
			assert.Contains(t, string(body), tt.wantError)
		})
	}
}

func TestBookingSnapshotMaxStep(t *testing.T) {
	price := 4500
	fee := 9900
	booking := &models.Booking{
		PublicID:          "pub-1",
		Status:            models.BookingStatusScheduled,
		CurrentStep:       6,
		PackageType:       models.PackageWasher,
		TermType:          models.TermSixMonth,
		MonthlyPriceCents: &price,
		SetupFeeCents:     &fee,
	}

	snapshot := bookingSnapshot(booking, nil, nil)
	assert.Equal(t, lifecycle.MaxStepForStatus(models.BookingStatusScheduled), snapshot["max_step"])
	assert.Equal(t, "pub-1", snapshot["public_id"])
	assert.NotContains(t, snapshot, "customer")
	assert.NotContains(t, snapshot, "delivery_slot")
}

func TestPaymentCheckoutInput(t *testing.T) {
	price := 5900
	fee := 0
	booking := &models.Booking{
		PublicID:          "pub-2",
		PackageType:       models.PackageWasherDryer,
		MonthlyPriceCents: &price,
		SetupFeeCents:     &fee,
	}

	in := paymentCheckoutInput(booking, "https://ok", "https://back")
	assert.Equal(t, "pub-2", in.BookingPublicID)
	assert.Equal(t, models.PackageWasherDryer, in.PackageType)
	assert.Equal(t, 5900, in.MonthlyPriceCents)
	assert.Equal(t, 0, in.SetupFeeCents)
	assert.Equal(t, "https://ok", in.SuccessURL)
	assert.Equal(t, "https://back", in.CancelURL)
}

func TestHandlePaymentWebhookRejectsInvalidSignature(t *testing.T) {
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec_test")

	app := fiber.New()
	app.Post("/webhook", HandlePaymentWebhook)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"id":"evt_1","type":"invoice.paid"}`))
	req.Header.Set("Washplan-Signature", "deadbeef")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), "invalid_signature")
}

func TestHandlePaymentWebhookRejectsMissingEventID(t *testing.T) {
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec_test")

	app := fiber.New()
	app.Post("/webhook", HandlePaymentWebhook)

	payload := []byte(`{"type":"invoice.paid"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Washplan-Signature", payments.SignPayload(payload, "whsec_test"))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), "bad_request")
}
