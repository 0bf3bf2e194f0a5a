package reservation

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/washplan/washplan/app/models"
)

// ExpireHold reclaims a hold's capacity when its booking never completed
// payment in time. Both outcomes run in one transaction:
//   - booking progressed to PAID_SETUP or beyond: the hold is released but
//     the booking keeps its slot reference (the slot stays claimed through
//     the booking itself);
//   - otherwise: the hold is released AND the booking's slot reference is
//     cleared, freeing the capacity.
//
// A missing or already-released hold is a no-op; another path cleaned up.
func (e *Engine) ExpireHold(ctx context.Context, holdID uint) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var hold models.SlotHold
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&hold, holdID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Debugf("[Reservation] Hold %d gone before expiry, nothing to do", holdID)
				return nil
			}
			return err
		}
		if hold.Released {
			return nil
		}

		// Lock the booking row so the status check cannot race a payment
		// event committing PAID_SETUP: a snapshot read here could see the
		// pre-payment status and clear the slot reference of a booking
		// that paid in time.
		var booking models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&booking, hold.BookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Orphaned hold; just release it.
				return tx.Model(&hold).Update("released", true).Error
			}
			return err
		}

		if err := tx.Model(&hold).Update("released", true).Error; err != nil {
			return err
		}

		switch booking.Status {
		case models.BookingStatusPaidSetup, models.BookingStatusContractSigned, models.BookingStatusActive:
			// Paid in time; slot stays claimed via the booking's own reference.
			log.Infof("[Reservation] Hold %d expired after payment, slot %d stays claimed by booking %d",
				holdID, hold.DeliverySlotID, booking.ID)
			return nil
		default:
			log.Infof("[Reservation] Hold %d expired unpaid, freeing slot %d from booking %d",
				holdID, hold.DeliverySlotID, booking.ID)
			return tx.Model(&booking).Update("delivery_slot_id", nil).Error
		}
	})
}
