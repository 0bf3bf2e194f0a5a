package repository

import (
	"time"

	"github.com/washplan/washplan/app/models"
	"gorm.io/gorm"
)

// deliverySlotRepository implements the DeliverySlotRepository interface
type deliverySlotRepository struct {
	db *gorm.DB
}

// NewDeliverySlotRepository creates a new delivery slot repository instance
func NewDeliverySlotRepository(db *gorm.DB) DeliverySlotRepository {
	return &deliverySlotRepository{db: db}
}

// Create creates a new delivery slot
func (r *deliverySlotRepository) Create(slot *models.DeliverySlot) error {
	return r.db.Create(slot).Error
}

// GetByID retrieves a delivery slot by its ID
func (r *deliverySlotRepository) GetByID(id uint) (*models.DeliverySlot, error) {
	var slot models.DeliverySlot
	err := r.db.First(&slot, id).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Update saves changes to an existing delivery slot
func (r *deliverySlotRepository) Update(slot *models.DeliverySlot) error {
	return r.db.Save(slot).Error
}

// Delete removes a delivery slot. Callers must check for references first.
func (r *deliverySlotRepository) Delete(id uint) error {
	return r.db.Delete(&models.DeliverySlot{}, id).Error
}

// ListUpcoming retrieves active slots from today onward, soonest first
func (r *deliverySlotRepository) ListUpcoming(limit int) ([]models.DeliverySlot, error) {
	var slots []models.DeliverySlot
	err := r.db.Where("is_active = ? AND date >= ?", true, time.Now().Truncate(24*time.Hour)).
		Order("date ASC, window_start ASC").
		Limit(limit).
		Find(&slots).Error
	return slots, err
}

// CountReferences counts bookings currently linked to a slot. Used to block
// deletion of referenced slots.
func (r *deliverySlotRepository) CountReferences(slotID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Booking{}).
		Where("delivery_slot_id = ?", slotID).
		Count(&count).Error
	return count, err
}

// LiveHoldCount counts unreleased, unexpired holds on a slot. Informational
// only; capacity decisions happen inside the reservation engine transaction.
func (r *deliverySlotRepository) LiveHoldCount(slotID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.SlotHold{}).
		Where("delivery_slot_id = ? AND released = ? AND expires_at > ?", slotID, false, time.Now()).
		Count(&count).Error
	return count, err
}

// BookedCount counts non-terminal, non-draft bookings claiming a slot.
// Informational only, see LiveHoldCount.
func (r *deliverySlotRepository) BookedCount(slotID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Booking{}).
		Where("delivery_slot_id = ? AND status NOT IN ?", slotID,
			[]string{models.BookingStatusCanceled, models.BookingStatusClosed, models.BookingStatusDraft}).
		Count(&count).Error
	return count, err
}
