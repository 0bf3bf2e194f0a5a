package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory lazily builds the repository set over one database handle and
// hands out the same instances afterwards.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a repository factory over db.
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns the singleton repository set.
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetBookingRepository returns the booking repository.
func (f *Factory) GetBookingRepository() BookingRepository {
	return f.GetRepositories().Booking
}

// GetDeliverySlotRepository returns the delivery slot repository.
func (f *Factory) GetDeliverySlotRepository() DeliverySlotRepository {
	return f.GetRepositories().Slot
}

var (
	globalFactory *Factory
	factoryOnce   sync.Once
)

// InitializeFactory wires the global factory. Called once at startup,
// before any handler runs.
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory.
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}
