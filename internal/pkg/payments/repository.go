package payments

import (
	"time"

	"github.com/washplan/washplan/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the payment event service.
type Repository interface {
	CreateEventIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error)
	GetEventByProviderID(providerEventID string) (*models.PaymentEvent, error)
	MarkEventProcessed(id uint, processingError string) error
	GetBookingBySubscriptionID(providerSubscriptionID string) (*models.Booking, error)
	GetCustomer(bookingID uint) (*models.Customer, error)
	UpsertPaymentRecord(record *models.PaymentRecord) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateEventIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentEvent
	if err := r.db.Where("provider_event_id = ?", event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) GetEventByProviderID(providerEventID string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	if err := r.db.Where("provider_event_id = ?", providerEventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormRepository) MarkEventProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed":        processingError == "",
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) GetBookingBySubscriptionID(providerSubscriptionID string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.Where("provider_subscription_id = ?", providerSubscriptionID).
		First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *gormRepository) GetCustomer(bookingID uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.Where("booking_id = ?", bookingID).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *gormRepository) UpsertPaymentRecord(record *models.PaymentRecord) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"booking_id",
			"amount_cents",
			"currency",
			"paid_at",
			"receipt_url",
			"hosted_invoice_url",
			"updated_at",
		}),
	}).Create(record).Error; err != nil {
		return err
	}

	return r.db.Where("provider_invoice_id = ?", record.ProviderInvoiceID).
		First(record).Error
}
