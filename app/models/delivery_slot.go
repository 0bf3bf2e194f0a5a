package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// DeliverySlot is a finite-capacity delivery window. The sum of
// non-terminal bookings referencing the slot plus live holds must never
// exceed Capacity; all capacity accounting goes through the reservation
// engine's transaction.
type DeliverySlot struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Date        time.Time `gorm:"type:date;not null;index" json:"date" validate:"required"`
	WindowLabel string    `gorm:"type:varchar(50);not null" json:"window_label" validate:"required,max=50"`
	WindowStart string    `gorm:"type:varchar(5);not null" json:"window_start" validate:"required,len=5"`
	WindowEnd   string    `gorm:"type:varchar(5);not null" json:"window_end" validate:"required,len=5"`
	Capacity    int       `gorm:"not null" json:"capacity" validate:"required,min=1"`
	IsActive    bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *DeliverySlot) Validate() error {
	v := validator.New()

	return v.Struct(s)
}
