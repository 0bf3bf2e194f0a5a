package worker

import (
	"fmt"
	"time"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/internal/pkg/jobqueue"
)

// Scheduler enqueues domain jobs. It satisfies both the wizard's expiry
// scheduling hook and the payment service's notifier.
type Scheduler struct {
	queue *jobqueue.Queue
}

// NewScheduler creates a scheduler on top of a queue.
func NewScheduler(queue *jobqueue.Queue) *Scheduler {
	return &Scheduler{queue: queue}
}

// ScheduleHoldExpiry enqueues a delayed job that reclaims the hold's slot
// capacity once the hold deadline passes. The dedup key keeps rescheduling
// attempts (and the periodic sweep) from stacking duplicate jobs.
func (s *Scheduler) ScheduleHoldExpiry(hold *models.SlotHold) error {
	payload := jobqueue.HoldExpiryJobPayload{
		HoldID:    hold.ID,
		BookingID: hold.BookingID,
		SlotID:    hold.DeliverySlotID,
	}
	_, err := s.queue.EnqueueJobAt(
		jobqueue.JobTypeHoldExpiry,
		payload.ToMap(),
		hold.ExpiresAt,
		fmt.Sprintf("hold_expiry:%d", hold.ID),
	)
	return err
}

// EnqueuePaymentEvent queues asynchronous processing of a recorded webhook
// event. Redelivered events collapse onto the pending job via the dedup key.
func (s *Scheduler) EnqueuePaymentEvent(providerEventID string) error {
	payload := jobqueue.PaymentEventJobPayload{ProviderEventID: providerEventID}
	_, err := s.queue.EnqueueJobAt(
		jobqueue.JobTypePaymentEvent,
		payload.ToMap(),
		time.Now(),
		"payment_event:"+providerEventID,
	)
	return err
}

// QueueNotification queues a customer notification for delivery.
func (s *Scheduler) QueueNotification(kind string, bookingID uint, email string) error {
	payload := jobqueue.NotificationJobPayload{
		Kind:      kind,
		BookingID: bookingID,
		Email:     email,
	}
	_, err := s.queue.EnqueueJob(jobqueue.JobTypeNotification, payload.ToMap())
	return err
}
