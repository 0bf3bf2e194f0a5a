package repository

import (
	"github.com/washplan/washplan/app/models"
	"gorm.io/gorm"
)

// BookingRepository defines the interface for booking-related database operations
type BookingRepository interface {
	Create(booking *models.Booking) error
	GetByID(id uint) (*models.Booking, error)
	GetByPublicID(publicID string) (*models.Booking, error)
	GetByAccessTokenHash(hash string) (*models.Booking, error)
	GetBySubscriptionID(providerSubscriptionID string) (*models.Booking, error)
	Update(booking *models.Booking) error
	Delete(id uint) error
	List(offset, limit int) ([]models.Booking, error)
	Count() (int64, error)
	CountByStatus() (map[string]int64, error)
	GetCustomer(bookingID uint) (*models.Customer, error)
	SaveCustomer(customer *models.Customer) error
}

// DeliverySlotRepository defines the interface for delivery-slot database operations
type DeliverySlotRepository interface {
	Create(slot *models.DeliverySlot) error
	GetByID(id uint) (*models.DeliverySlot, error)
	Update(slot *models.DeliverySlot) error
	Delete(id uint) error
	ListUpcoming(limit int) ([]models.DeliverySlot, error)
	CountReferences(slotID uint) (int64, error)
	LiveHoldCount(slotID uint) (int64, error)
	BookedCount(slotID uint) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Booking BookingRepository
	Slot    DeliverySlotRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Booking: NewBookingRepository(db),
		Slot:    NewDeliverySlotRepository(db),
	}
}
