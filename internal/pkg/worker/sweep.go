package worker

import (
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/washplan/washplan/app/models"
)

// SweepOverdueHolds re-enqueues expiry jobs for live holds whose deadline
// already passed. The per-hold dedup key makes this safe to run alongside
// the jobs scheduled at reservation time; it exists to catch holds whose
// scheduled job was lost (process crash, Redis flush).
func SweepOverdueHolds(db *gorm.DB, scheduler *Scheduler) error {
	var holds []models.SlotHold
	if err := db.
		Where("released = ? AND expires_at <= ?", false, time.Now()).
		Limit(500).
		Find(&holds).Error; err != nil {
		return err
	}

	for i := range holds {
		if err := scheduler.ScheduleHoldExpiry(&holds[i]); err != nil {
			log.Errorf("[Worker] Failed to re-enqueue expiry for hold %d: %v", holds[i].ID, err)
		}
	}
	if len(holds) > 0 {
		log.Infof("[Worker] Swept %d overdue holds", len(holds))
	}
	return nil
}

// SweepUnprocessedEvents re-enqueues webhook events that were recorded but
// never processed, usually because the enqueue after recording failed. The
// grace period keeps it from racing the normal enqueue path.
func SweepUnprocessedEvents(db *gorm.DB, scheduler *Scheduler) error {
	cutoff := time.Now().Add(-2 * time.Minute)

	var events []models.PaymentEvent
	if err := db.
		Where("processed = ? AND processing_error = ? AND created_at < ?", false, "", cutoff).
		Limit(200).
		Find(&events).Error; err != nil {
		return err
	}

	for i := range events {
		if err := scheduler.EnqueuePaymentEvent(events[i].ProviderEventID); err != nil {
			log.Errorf("[Worker] Failed to re-enqueue event %s: %v", events[i].ProviderEventID, err)
		}
	}
	if len(events) > 0 {
		log.Infof("[Worker] Re-enqueued %d unprocessed payment events", len(events))
	}
	return nil
}
