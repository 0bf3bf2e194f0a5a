package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/internal/pkg/lifecycle"
	"github.com/washplan/washplan/internal/pkg/payments"
	"github.com/washplan/washplan/internal/pkg/reservation"
	"github.com/washplan/washplan/internal/pkg/wizard"
	"github.com/washplan/washplan/internal/pkg/worker"
)

// Services holds the domain services the handlers delegate to. Wired once
// at startup.
type Services struct {
	Orchestrator *wizard.Orchestrator
	Engine       *reservation.Engine
	Payments     *payments.Service
	Scheduler    *worker.Scheduler
	Provider     payments.Provider
}

var services Services

// SetServices installs the handler dependencies. Call before routing.
func SetServices(s Services) {
	services = s
}

// respondDomainError maps domain errors onto HTTP responses.
func respondDomainError(c *fiber.Ctx, err error) error {
	var validationErr *wizard.ValidationError
	var badRequestErr *wizard.BadRequestError
	var conflictErr *wizard.ConflictError
	var transitionErr *lifecycle.InvalidTransitionError

	switch {
	case errors.Is(err, wizard.ErrBookingNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Booking not found"})
	case errors.Is(err, reservation.ErrSlotNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "slot_not_found", "message": "Delivery slot not found or inactive"})
	case errors.Is(err, reservation.ErrSlotFull):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "slot_full", "message": "Delivery slot has no remaining capacity"})
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": validationErr.Fields})
	case errors.As(err, &badRequestErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": badRequestErr.Reason})
	case errors.As(err, &conflictErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": conflictErr.Reason})
	case errors.As(err, &transitionErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "invalid_transition", "message": transitionErr.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Something went wrong"})
	}
}

func paymentCheckoutInput(b *models.Booking, successURL, cancelURL string) payments.CheckoutInput {
	return payments.CheckoutInput{
		BookingPublicID:   b.PublicID,
		PackageType:       b.PackageType,
		MonthlyPriceCents: *b.MonthlyPriceCents,
		SetupFeeCents:     *b.SetupFeeCents,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
	}
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// bookingSnapshot renders the booking state a token-holder is allowed to
// see, including how far the wizard may be re-entered.
func bookingSnapshot(booking *models.Booking, customer *models.Customer, slot *models.DeliverySlot) fiber.Map {
	snapshot := fiber.Map{
		"public_id":           booking.PublicID,
		"status":              booking.Status,
		"current_step":        booking.CurrentStep,
		"max_step":            lifecycle.MaxStepForStatus(booking.Status),
		"service_zip":         booking.ServiceZip,
		"has_hookups":         booking.HasHookups,
		"package_type":        booking.PackageType,
		"term_type":           booking.TermType,
		"monthly_price_cents": booking.MonthlyPriceCents,
		"setup_fee_cents":     booking.SetupFeeCents,
		"minimum_term_months": booking.MinimumTermMonths,
		"plug_type":           booking.PlugType,
		"has_power_outlet":    booking.HasPowerOutlet,
		"has_water_hookups":   booking.HasWaterHookups,
		"pay_at_delivery":     booking.PayAtDelivery,
		"payment_consent_at":  formatTimePtr(booking.PaymentConsentAt),
		"contract_signed_at":  formatTimePtr(booking.ContractSignedAt),
		"signer_name":         booking.SignerName,
		"created_at":          booking.CreatedAt.UTC().Format(time.RFC3339),
	}
	if customer != nil {
		snapshot["customer"] = fiber.Map{
			"first_name":   customer.FirstName,
			"last_name":    customer.LastName,
			"email":        customer.Email,
			"phone":        customer.Phone,
			"street":       customer.Street,
			"unit":         customer.Unit,
			"city":         customer.City,
			"zip":          customer.Zip,
			"access_notes": customer.AccessNotes,
		}
	}
	if slot != nil {
		snapshot["delivery_slot"] = fiber.Map{
			"id":           slot.ID,
			"date":         slot.Date.Format("2006-01-02"),
			"window_label": slot.WindowLabel,
			"window_start": slot.WindowStart,
			"window_end":   slot.WindowEnd,
		}
	}
	return snapshot
}
