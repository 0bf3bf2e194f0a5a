package repository

import (
	"strings"

	"github.com/washplan/washplan/app/models"
	"gorm.io/gorm"
)

// bookingRepository implements the BookingRepository interface
type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository creates a new booking repository instance
func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

// Create creates a new booking in the database
func (r *bookingRepository) Create(booking *models.Booking) error {
	return r.db.Create(booking).Error
}

// GetByID retrieves a booking by its ID
func (r *bookingRepository) GetByID(id uint) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.First(&booking, id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByPublicID retrieves a booking by its public UUID
func (r *bookingRepository) GetByPublicID(publicID string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Where("public_id = ?", publicID).First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByAccessTokenHash resolves an access-token hash to its booking.
func (r *bookingRepository) GetByAccessTokenHash(hash string) (*models.Booking, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var booking models.Booking
	err := r.db.Where("access_token_hash = ?", trimmed).First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBySubscriptionID resolves a provider subscription reference to its booking.
func (r *bookingRepository) GetBySubscriptionID(providerSubscriptionID string) (*models.Booking, error) {
	if strings.TrimSpace(providerSubscriptionID) == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var booking models.Booking
	err := r.db.Where("provider_subscription_id = ?", providerSubscriptionID).First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Update saves changes to an existing booking
func (r *bookingRepository) Update(booking *models.Booking) error {
	return r.db.Save(booking).Error
}

// Delete removes a booking from the database
func (r *bookingRepository) Delete(id uint) error {
	return r.db.Delete(&models.Booking{}, id).Error
}

// List retrieves bookings with pagination, newest first
func (r *bookingRepository) List(offset, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&bookings).Error
	return bookings, err
}

// Count returns the total number of bookings
func (r *bookingRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Booking{}).Count(&count).Error
	return count, err
}

// CountByStatus returns booking counts grouped by status
func (r *bookingRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&models.Booking{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}

// GetCustomer retrieves the customer record attached to a booking
func (r *bookingRepository) GetCustomer(bookingID uint) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Where("booking_id = ?", bookingID).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// SaveCustomer creates or updates a customer record
func (r *bookingRepository) SaveCustomer(customer *models.Customer) error {
	return r.db.Save(customer).Error
}
