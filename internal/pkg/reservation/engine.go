// Package reservation guards delivery-slot capacity. All capacity
// accounting runs inside a single serializable transaction holding a row
// lock on the slot, so two concurrent claims on the last unit can never
// both succeed.
package reservation

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/washplan/washplan/app/models"
)

// DefaultHoldDuration is how long a slot hold blocks capacity before the
// expiry worker reclaims it.
const DefaultHoldDuration = 15 * time.Minute

const txRetries = 3

var (
	// ErrSlotNotFound means the slot does not exist or was deactivated.
	ErrSlotNotFound = errors.New("delivery slot not found")
	// ErrSlotFull means booked capacity plus live holds already reach the
	// slot's capacity. No mutation happened.
	ErrSlotFull = errors.New("delivery slot is full")
)

// Engine performs capacity-checked slot reservations and hold releases.
type Engine struct {
	db           *gorm.DB
	holdDuration time.Duration
}

// NewEngine creates a reservation engine. A non-positive holdDuration
// falls back to DefaultHoldDuration.
func NewEngine(db *gorm.DB, holdDuration time.Duration) *Engine {
	if holdDuration <= 0 {
		holdDuration = DefaultHoldDuration
	}
	return &Engine{db: db, holdDuration: holdDuration}
}

// HoldDuration returns the configured hold lifetime.
func (e *Engine) HoldDuration() time.Duration {
	return e.holdDuration
}

// ReserveSlot claims one unit of capacity on a slot for a booking. On
// success any prior unreleased hold of the booking is released and a fresh
// hold expiring after the configured duration is returned. ErrSlotNotFound
// and ErrSlotFull are expected outcomes; transaction conflicts are retried
// a bounded number of times before surfacing.
func (e *Engine) ReserveSlot(ctx context.Context, bookingID, slotID uint) (*models.SlotHold, error) {
	var hold *models.SlotHold
	var err error

	for attempt := 0; attempt < txRetries; attempt++ {
		hold, err = e.reserveOnce(ctx, bookingID, slotID)
		if err == nil || errors.Is(err, ErrSlotNotFound) || errors.Is(err, ErrSlotFull) {
			return hold, err
		}
		if !isRetryableTxError(err) {
			return nil, err
		}
		log.Warnf("[Reservation] Transaction conflict reserving slot %d for booking %d (attempt %d/%d): %v",
			slotID, bookingID, attempt+1, txRetries, err)
		time.Sleep(time.Duration(attempt+1) * 25 * time.Millisecond)
	}
	return nil, err
}

func (e *Engine) reserveOnce(ctx context.Context, bookingID, slotID uint) (*models.SlotHold, error) {
	var created *models.SlotHold

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		// Lock the slot row; every reservation for this slot serializes here.
		var slot models.DeliverySlot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlotNotFound
			}
			return err
		}
		if !slot.IsActive {
			return ErrSlotNotFound
		}

		// Bookings claiming the slot, excluding terminal/draft ones and the
		// requesting booking itself (re-selection must not self-count).
		var booked int64
		if err := tx.Model(&models.Booking{}).
			Where("delivery_slot_id = ? AND id <> ? AND status NOT IN ?", slotID, bookingID,
				[]string{models.BookingStatusCanceled, models.BookingStatusClosed, models.BookingStatusDraft}).
			Count(&booked).Error; err != nil {
			return err
		}

		// Live holds from other bookings.
		var held int64
		if err := tx.Model(&models.SlotHold{}).
			Where("delivery_slot_id = ? AND booking_id <> ? AND released = ? AND expires_at > ?",
				slotID, bookingID, false, now).
			Count(&held).Error; err != nil {
			return err
		}

		if booked+held >= int64(slot.Capacity) {
			return ErrSlotFull
		}

		// Release any prior hold of this booking so slot revisions do not
		// accumulate stale claims.
		if err := tx.Model(&models.SlotHold{}).
			Where("booking_id = ? AND released = ?", bookingID, false).
			Update("released", true).Error; err != nil {
			return err
		}

		hold := &models.SlotHold{
			BookingID:      bookingID,
			DeliverySlotID: slotID,
			ExpiresAt:      now.Add(e.holdDuration),
		}
		if err := tx.Create(hold).Error; err != nil {
			return err
		}
		created = hold
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil {
		return nil, err
	}
	return created, nil
}

// ReleaseForBooking releases all live holds of a booking and clears its
// slot reference inside the caller's transaction. Used as a side effect of
// administrative cancellation.
func ReleaseForBooking(tx *gorm.DB, bookingID uint) error {
	if err := tx.Model(&models.SlotHold{}).
		Where("booking_id = ? AND released = ?", bookingID, false).
		Update("released", true).Error; err != nil {
		return err
	}
	return tx.Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("delivery_slot_id", nil).Error
}

// isRetryableTxError reports whether the error is a MySQL serialization
// conflict worth retrying (deadlock or lock wait timeout).
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Deadlock found") ||
		strings.Contains(msg, "Lock wait timeout") ||
		strings.Contains(msg, "try restarting transaction")
}
