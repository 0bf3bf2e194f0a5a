// Package statistics aggregates operator dashboard numbers: booking funnel
// counts and delivery slot utilization. The funnel total is cached in Redis
// so the dashboard does not hammer the database.
package statistics

import (
	"log"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/app/repository"
	"github.com/washplan/washplan/internal/pkg/cache"
)

const (
	CacheKeyBookingsTotal = "statistics:bookings:total"
	CacheKeyBookingsToday = "statistics:bookings:today"
	CacheExpiration       = 5 * time.Minute
)

// SlotUtilization describes one upcoming slot's occupancy.
type SlotUtilization struct {
	SlotID      uint   `json:"slot_id"`
	Date        string `json:"date"`
	WindowLabel string `json:"window_label"`
	Capacity    int    `json:"capacity"`
	Booked      int64  `json:"booked"`
	Held        int64  `json:"held"`
}

// Stats is the aggregate dashboard payload.
type Stats struct {
	TotalBookings    int64             `json:"total_bookings"`
	TodayBookings    int64             `json:"today_bookings"`
	BookingsByStatus map[string]int64  `json:"bookings_by_status"`
	SlotUtilization  []SlotUtilization `json:"slot_utilization"`
}

// Collect gathers all dashboard numbers in one pass.
func Collect(db *gorm.DB) (*Stats, error) {
	stats := &Stats{}

	stats.TotalBookings = TotalBookings(db)
	stats.TodayBookings = TodayBookings(db)

	byStatus, err := repository.NewBookingRepository(db).CountByStatus()
	if err != nil {
		return nil, err
	}
	stats.BookingsByStatus = byStatus

	utilization, err := collectSlotUtilization(db)
	if err != nil {
		return nil, err
	}
	stats.SlotUtilization = utilization

	return stats, nil
}

// TotalBookings returns the booking count from cache or database.
func TotalBookings(db *gorm.DB) int64 {
	if val, err := cache.Get(CacheKeyBookingsTotal); err == nil {
		if count, err := strconv.ParseInt(val, 10, 64); err == nil {
			return count
		}
	}

	var count int64
	if err := db.Model(&models.Booking{}).Count(&count).Error; err != nil {
		log.Printf("Error counting bookings: %v", err)
		return 0
	}
	if err := cache.Set(CacheKeyBookingsTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.Printf("Error caching booking count: %v", err)
	}
	return count
}

// TodayBookings returns the number of bookings started today.
func TodayBookings(db *gorm.DB) int64 {
	if val, err := cache.Get(CacheKeyBookingsToday); err == nil {
		if count, err := strconv.ParseInt(val, 10, 64); err == nil {
			return count
		}
	}

	todayStart, _ := time.Parse("2006-01-02", time.Now().Format("2006-01-02"))
	todayEnd := todayStart.Add(24 * time.Hour)

	var count int64
	if err := db.Model(&models.Booking{}).
		Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).
		Count(&count).Error; err != nil {
		log.Printf("Error counting today's bookings: %v", err)
		return 0
	}
	if err := cache.Set(CacheKeyBookingsToday, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's booking count: %v", err)
	}
	return count
}

func collectSlotUtilization(db *gorm.DB) ([]SlotUtilization, error) {
	var slots []models.DeliverySlot
	if err := db.
		Where("is_active = ? AND date >= ?", true, time.Now().Truncate(24*time.Hour)).
		Order("date ASC, window_start ASC").
		Limit(50).
		Find(&slots).Error; err != nil {
		return nil, err
	}

	result := make([]SlotUtilization, 0, len(slots))
	for i := range slots {
		slot := &slots[i]

		var booked int64
		if err := db.Model(&models.Booking{}).
			Where("delivery_slot_id = ? AND status NOT IN ?", slot.ID,
				[]string{models.BookingStatusCanceled, models.BookingStatusClosed, models.BookingStatusDraft}).
			Count(&booked).Error; err != nil {
			return nil, err
		}

		var held int64
		if err := db.Model(&models.SlotHold{}).
			Where("delivery_slot_id = ? AND released = ? AND expires_at > ?", slot.ID, false, time.Now()).
			Count(&held).Error; err != nil {
			return nil, err
		}

		result = append(result, SlotUtilization{
			SlotID:      slot.ID,
			Date:        slot.Date.Format("2006-01-02"),
			WindowLabel: slot.WindowLabel,
			Capacity:    slot.Capacity,
			Booked:      booked,
			Held:        held,
		})
	}
	return result, nil
}
