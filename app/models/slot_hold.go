package models

import "time"

// SlotHold is a provisional, time-boxed claim on a DeliverySlot. At most
// one unreleased, unexpired hold exists per booking; creating a new hold
// releases the prior one.
type SlotHold struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	BookingID      uint          `gorm:"not null;index" json:"booking_id"`
	DeliverySlotID uint          `gorm:"not null;index" json:"delivery_slot_id"`
	DeliverySlot   *DeliverySlot `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ExpiresAt      time.Time     `gorm:"type:timestamp;not null;index" json:"expires_at"`
	Released       bool          `gorm:"default:false;index" json:"released"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}
