package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/app/repository"
	"github.com/washplan/washplan/internal/pkg/bookingcontext"
	"github.com/washplan/washplan/internal/pkg/wizard"
)

// HandleCreateBooking starts a new booking. The access token is returned
// exactly once; only its hash is stored.
func HandleCreateBooking(c *fiber.Ctx) error {
	booking, token := models.NewBooking()

	repo := repository.GetGlobalFactory().GetBookingRepository()
	if err := repo.Create(booking); err != nil {
		log.Errorf("[Booking] Failed to create booking: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create booking"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"public_id":    booking.PublicID,
		"access_token": token,
		"status":       booking.Status,
		"current_step": booking.CurrentStep,
	})
}

// HandleGetBooking returns the authenticated booking's current snapshot.
func HandleGetBooking(c *fiber.Ctx) error {
	booking, err := loadContextBooking(c)
	if err != nil {
		return respondDomainError(c, err)
	}
	customer, slot := loadBookingRelations(booking)
	return c.JSON(bookingSnapshot(booking, customer, slot))
}

// HandleApplyStep validates and applies one wizard step submission.
func HandleApplyStep(c *fiber.Ctx) error {
	if !bookingcontext.IsAuthenticated(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing booking token"})
	}
	bookingID := bookingcontext.GetBookingID(c)

	step, err := c.ParamsInt("step")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Step must be a number"})
	}

	meta := wizard.RequestMeta{
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	}

	booking, err := services.Orchestrator.ApplyStep(c.Context(), bookingID, step, c.Body(), meta)
	if err != nil {
		return respondDomainError(c, err)
	}

	customer, slot := loadBookingRelations(booking)
	return c.JSON(bookingSnapshot(booking, customer, slot))
}

// HandleListDeliverySlots returns upcoming slots with remaining capacity,
// for the delivery selection step. Counts are informational; the actual
// capacity decision happens inside the reservation transaction.
func HandleListDeliverySlots(c *fiber.Ctx) error {
	slotRepo := repository.GetGlobalFactory().GetDeliverySlotRepository()
	slots, err := slotRepo.ListUpcoming(50)
	if err != nil {
		log.Errorf("[Booking] Failed to list slots: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load delivery slots"})
	}

	result := make([]fiber.Map, 0, len(slots))
	for i := range slots {
		slot := &slots[i]
		booked, err := slotRepo.BookedCount(slot.ID)
		if err != nil {
			booked = 0
		}
		held, err := slotRepo.LiveHoldCount(slot.ID)
		if err != nil {
			held = 0
		}
		remaining := int64(slot.Capacity) - booked - held
		if remaining < 0 {
			remaining = 0
		}
		result = append(result, fiber.Map{
			"id":           slot.ID,
			"date":         slot.Date.Format("2006-01-02"),
			"window_label": slot.WindowLabel,
			"window_start": slot.WindowStart,
			"window_end":   slot.WindowEnd,
			"remaining":    remaining,
		})
	}
	return c.JSON(fiber.Map{"slots": result})
}

// HandleCreateCheckoutSession creates a hosted checkout redirect for the
// setup payment. This talks to the payment provider, so it runs outside
// any database transaction.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	booking, err := loadContextBooking(c)
	if err != nil {
		return respondDomainError(c, err)
	}

	if booking.Status != models.BookingStatusScheduled {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Checkout requires a scheduled booking"})
	}
	if booking.PaymentConsentAt == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Checkout requires recurring payment consent"})
	}
	if booking.MonthlyPriceCents == nil || booking.SetupFeeCents == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Checkout requires a priced package selection"})
	}

	var body struct {
		SuccessURL string `json:"success_url"`
		CancelURL  string `json:"cancel_url"`
	}
	// Body is optional; ignore parse errors and fall back to defaults.
	_ = c.BodyParser(&body)

	url, err := services.Provider.CreateCheckoutSession(c.Context(), paymentCheckoutInput(booking, body.SuccessURL, body.CancelURL))
	if err != nil {
		log.Errorf("[Booking] Checkout session creation failed for %s: %v", booking.PublicID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_error", "message": "Payment provider unavailable"})
	}

	return c.JSON(fiber.Map{"checkout_url": url})
}

func loadContextBooking(c *fiber.Ctx) (*models.Booking, error) {
	if !bookingcontext.IsAuthenticated(c) {
		return nil, wizard.ErrBookingNotFound
	}
	return repository.GetGlobalFactory().GetBookingRepository().GetByID(bookingcontext.GetBookingID(c))
}

func loadBookingRelations(booking *models.Booking) (*models.Customer, *models.DeliverySlot) {
	repos := repository.GetGlobalFactory().GetRepositories()

	var customer *models.Customer
	if cust, err := repos.Booking.GetCustomer(booking.ID); err == nil {
		customer = cust
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("[Booking] Failed to load customer for booking %d: %v", booking.ID, err)
	}

	var slot *models.DeliverySlot
	if booking.DeliverySlotID != nil {
		if s, err := repos.Slot.GetByID(*booking.DeliverySlotID); err == nil {
			slot = s
		}
	}
	return customer, slot
}
