package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Customer holds the contact and address data collected in wizard step 3.
// Keyed by booking: first submission creates it, resubmission updates it.
type Customer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BookingID   uint      `gorm:"not null;uniqueIndex" json:"booking_id"`
	FirstName   string    `gorm:"type:varchar(100);not null" json:"first_name" validate:"required,min=1,max=100"`
	LastName    string    `gorm:"type:varchar(100);not null" json:"last_name" validate:"required,min=1,max=100"`
	Email       string    `gorm:"type:varchar(200);not null;index" json:"email" validate:"required,email,max=200"`
	Phone       string    `gorm:"type:varchar(30);default:''" json:"phone" validate:"max=30"`
	Street      string    `gorm:"type:varchar(200);not null" json:"street" validate:"required,max=200"`
	Unit        string    `gorm:"type:varchar(50);default:''" json:"unit" validate:"max=50"`
	City        string    `gorm:"type:varchar(100);not null" json:"city" validate:"required,max=100"`
	Zip         string    `gorm:"type:varchar(10);not null" json:"zip" validate:"required,min=5,max=10"`
	AccessNotes string    `gorm:"type:text" json:"access_notes" validate:"max=1000"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) Validate() error {
	v := validator.New()

	return v.Struct(c)
}
