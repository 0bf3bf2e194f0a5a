package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/app/repository"
	"github.com/washplan/washplan/internal/pkg/database"
	"github.com/washplan/washplan/internal/pkg/jobqueue"
	"github.com/washplan/washplan/internal/pkg/lifecycle"
	"github.com/washplan/washplan/internal/pkg/reservation"
	"github.com/washplan/washplan/internal/pkg/statistics"
)

type slotPayload struct {
	Date        string `json:"date"`
	WindowLabel string `json:"window_label"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	Capacity    *int   `json:"capacity"`
	IsActive    *bool  `json:"is_active"`
}

// HandleAdminListSlots lists upcoming slots with their utilization.
func HandleAdminListSlots(c *fiber.Ctx) error {
	slotRepo := repository.GetGlobalFactory().GetDeliverySlotRepository()
	slots, err := slotRepo.ListUpcoming(200)
	if err != nil {
		return respondDomainError(c, err)
	}

	result := make([]fiber.Map, 0, len(slots))
	for i := range slots {
		slot := &slots[i]
		booked, _ := slotRepo.BookedCount(slot.ID)
		held, _ := slotRepo.LiveHoldCount(slot.ID)
		result = append(result, fiber.Map{
			"id":           slot.ID,
			"date":         slot.Date.Format("2006-01-02"),
			"window_label": slot.WindowLabel,
			"window_start": slot.WindowStart,
			"window_end":   slot.WindowEnd,
			"capacity":     slot.Capacity,
			"is_active":    slot.IsActive,
			"booked":       booked,
			"held":         held,
		})
	}
	return c.JSON(fiber.Map{"slots": result})
}

// HandleAdminCreateSlot creates a delivery slot.
func HandleAdminCreateSlot(c *fiber.Ctx) error {
	var payload slotPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed slot payload"})
	}

	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Date must be formatted YYYY-MM-DD"})
	}

	slot := &models.DeliverySlot{
		Date:        date,
		WindowLabel: payload.WindowLabel,
		WindowStart: payload.WindowStart,
		WindowEnd:   payload.WindowEnd,
		IsActive:    true,
	}
	if payload.Capacity != nil {
		slot.Capacity = *payload.Capacity
	}
	if payload.IsActive != nil {
		slot.IsActive = *payload.IsActive
	}

	if err := slot.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := repository.GetGlobalFactory().GetDeliverySlotRepository().Create(slot); err != nil {
		log.Errorf("[Admin] Failed to create slot: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create slot"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": slot.ID})
}

// HandleAdminUpdateSlot updates window, capacity, or active flag of a slot.
// Capacity can never drop below the number of bookings already placed.
func HandleAdminUpdateSlot(c *fiber.Ctx) error {
	slotID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Slot id must be a number"})
	}

	slotRepo := repository.GetGlobalFactory().GetDeliverySlotRepository()
	slot, err := slotRepo.GetByID(uint(slotID))
	if err != nil {
		return respondDomainError(c, err)
	}

	var payload slotPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed slot payload"})
	}

	if payload.Date != "" {
		date, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Date must be formatted YYYY-MM-DD"})
		}
		slot.Date = date
	}
	if payload.WindowLabel != "" {
		slot.WindowLabel = payload.WindowLabel
	}
	if payload.WindowStart != "" {
		slot.WindowStart = payload.WindowStart
	}
	if payload.WindowEnd != "" {
		slot.WindowEnd = payload.WindowEnd
	}
	if payload.Capacity != nil {
		floor, err := slotCapacityFloor(slotRepo, slot.ID)
		if err != nil {
			return respondDomainError(c, err)
		}
		if int64(*payload.Capacity) < floor {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Capacity cannot drop below booked plus held count"})
		}
		slot.Capacity = *payload.Capacity
	}
	if payload.IsActive != nil {
		slot.IsActive = *payload.IsActive
	}

	if err := slot.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := slotRepo.Update(slot); err != nil {
		log.Errorf("[Admin] Failed to update slot %d: %v", slot.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update slot"})
	}
	return c.JSON(fiber.Map{"id": slot.ID})
}

// slotCapacityFloor is the lowest capacity a slot may be shrunk to:
// commitments already made against it, both booked and provisionally held.
func slotCapacityFloor(slotRepo repository.DeliverySlotRepository, slotID uint) (int64, error) {
	booked, err := slotRepo.BookedCount(slotID)
	if err != nil {
		return 0, err
	}
	held, err := slotRepo.LiveHoldCount(slotID)
	if err != nil {
		return 0, err
	}
	return booked + held, nil
}

// HandleAdminDeleteSlot deletes a slot that no booking or live hold
// references.
func HandleAdminDeleteSlot(c *fiber.Ctx) error {
	slotID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Slot id must be a number"})
	}

	slotRepo := repository.GetGlobalFactory().GetDeliverySlotRepository()
	if _, err := slotRepo.GetByID(uint(slotID)); err != nil {
		return respondDomainError(c, err)
	}

	refs, err := slotRepo.CountReferences(uint(slotID))
	if err != nil {
		return respondDomainError(c, err)
	}
	holds, err := slotRepo.LiveHoldCount(uint(slotID))
	if err != nil {
		return respondDomainError(c, err)
	}
	if refs > 0 || holds > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Slot is referenced by bookings or live holds"})
	}

	if err := slotRepo.Delete(uint(slotID)); err != nil {
		log.Errorf("[Admin] Failed to delete slot %d: %v", slotID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to delete slot"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAdminListBookings pages through bookings, newest first.
func HandleAdminListBookings(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	repo := repository.GetGlobalFactory().GetBookingRepository()
	bookings, err := repo.List(offset, limit)
	if err != nil {
		return respondDomainError(c, err)
	}
	total, err := repo.Count()
	if err != nil {
		return respondDomainError(c, err)
	}

	rows := make([]fiber.Map, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		rows = append(rows, fiber.Map{
			"id":           b.ID,
			"public_id":    b.PublicID,
			"status":       b.Status,
			"current_step": b.CurrentStep,
			"package_type": b.PackageType,
			"term_type":    b.TermType,
			"created_at":   b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{"bookings": rows, "total": total, "offset": offset, "limit": limit})
}

var adminTransitionTargets = map[string]string{
	"mark_active": models.BookingStatusActive,
	"cancel":      models.BookingStatusCanceled,
	"close":       models.BookingStatusClosed,
}

// HandleAdminTransitionBooking applies an operator lifecycle action.
func HandleAdminTransitionBooking(c *fiber.Ctx) error {
	bookingID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Booking id must be a number"})
	}

	var payload struct {
		Action string `json:"action"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed payload"})
	}
	target, ok := adminTransitionTargets[payload.Action]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Unknown action"})
	}

	booking, err := repository.GetGlobalFactory().GetBookingRepository().GetByID(uint(bookingID))
	if err != nil {
		return respondDomainError(c, err)
	}

	if err := transitionBooking(booking, target); err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{"id": booking.ID, "status": target})
}

// transitionBooking applies a legal transition and, for terminal targets,
// releases any live hold in the same transaction.
func transitionBooking(booking *models.Booking, target string) error {
	if err := lifecycle.AssertTransition(booking.Status, target); err != nil {
		return err
	}

	db := database.GetDB()
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).
			Update("status", target).Error; err != nil {
			return err
		}
		if target == models.BookingStatusCanceled || target == models.BookingStatusClosed {
			return reservation.ReleaseForBooking(tx, booking.ID)
		}
		return nil
	})
}

// HandleAdminBulkCancel cancels a batch of bookings, reporting per-booking
// outcomes instead of failing the batch on the first illegal transition.
func HandleAdminBulkCancel(c *fiber.Ctx) error {
	var payload struct {
		IDs []uint `json:"ids"`
	}
	if err := c.BodyParser(&payload); err != nil || len(payload.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Provide booking ids to cancel"})
	}

	repo := repository.GetGlobalFactory().GetBookingRepository()
	succeeded := make([]uint, 0, len(payload.IDs))
	skipped := make([]fiber.Map, 0)

	for _, id := range payload.IDs {
		booking, err := repo.GetByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				skipped = append(skipped, fiber.Map{"id": id, "reason": "not found"})
				continue
			}
			skipped = append(skipped, fiber.Map{"id": id, "reason": "lookup failed"})
			continue
		}
		if err := transitionBooking(booking, models.BookingStatusCanceled); err != nil {
			skipped = append(skipped, fiber.Map{"id": id, "reason": err.Error()})
			continue
		}
		succeeded = append(succeeded, id)
	}

	return c.JSON(fiber.Map{"succeeded": succeeded, "skipped": skipped})
}

// HandleAdminPurgeBooking hard-deletes a terminal booking and its dependent
// rows. The payment event ledger keeps its entries; they are provider-scoped.
func HandleAdminPurgeBooking(c *fiber.Ctx) error {
	bookingID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Booking id must be a number"})
	}

	booking, err := repository.GetGlobalFactory().GetBookingRepository().GetByID(uint(bookingID))
	if err != nil {
		return respondDomainError(c, err)
	}
	if !booking.IsTerminal() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Only canceled or closed bookings can be purged"})
	}

	db := database.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ?", booking.ID).Delete(&models.SlotHold{}).Error; err != nil {
			return err
		}
		if err := tx.Where("booking_id = ?", booking.ID).Delete(&models.Customer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("booking_id = ?", booking.ID).Delete(&models.PaymentRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Booking{}, booking.ID).Error
	})
	if err != nil {
		log.Errorf("[Admin] Failed to purge booking %d: %v", booking.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to purge booking"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAdminStats reports booking funnel, slot utilization, and queue
// depth in one operator dashboard payload.
func HandleAdminStats(c *fiber.Ctx) error {
	stats, err := statistics.Collect(database.GetDB())
	if err != nil {
		log.Errorf("[Admin] Failed to collect statistics: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to collect statistics"})
	}

	queue := jobqueue.GetManager().GetQueue()
	jobStats, err := queue.GetJobStats(c.Context())
	if err != nil {
		jobStats = map[jobqueue.JobStatus]int64{}
	}
	pending, _ := queue.GetQueueSize(c.Context())
	delayed, _ := queue.GetDelayedSize(c.Context())
	processing, _ := queue.GetProcessingSize(c.Context())

	return c.JSON(fiber.Map{
		"bookings": fiber.Map{
			"total":     stats.TotalBookings,
			"today":     stats.TodayBookings,
			"by_status": stats.BookingsByStatus,
		},
		"slots": stats.SlotUtilization,
		"queue": fiber.Map{
			"pending":    pending,
			"delayed":    delayed,
			"processing": processing,
			"stats":      jobStats,
		},
	})
}
