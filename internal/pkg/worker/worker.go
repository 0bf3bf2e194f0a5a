// Package worker wires the job queue to the domain services: it registers
// the job processors and exposes the scheduling side used to enqueue them.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/internal/pkg/jobqueue"
	"github.com/washplan/washplan/internal/pkg/notifications"
	"github.com/washplan/washplan/internal/pkg/payments"
	"github.com/washplan/washplan/internal/pkg/reservation"
)

// Deps holds the services the job processors delegate to.
type Deps struct {
	DB       *gorm.DB
	Engine   *reservation.Engine
	Payments *payments.Service
}

// Register binds all job processors onto the queue. Call before the queue
// starts so no job is dequeued without a handler.
func Register(q *jobqueue.Queue, deps Deps) {
	q.RegisterProcessor(jobqueue.JobTypeHoldExpiry, holdExpiryProcessor(deps))
	q.RegisterProcessor(jobqueue.JobTypePaymentEvent, paymentEventProcessor(deps))
	q.RegisterProcessor(jobqueue.JobTypeNotification, notificationProcessor(deps))
}

func holdExpiryProcessor(deps Deps) jobqueue.ProcessorFunc {
	return func(ctx context.Context, job *jobqueue.Job) error {
		payload, err := jobqueue.HoldExpiryJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid hold expiry payload: %w", err)
		}
		if payload.HoldID == 0 {
			return errors.New("hold expiry payload is missing hold_id")
		}
		return deps.Engine.ExpireHold(ctx, payload.HoldID)
	}
}

func paymentEventProcessor(deps Deps) jobqueue.ProcessorFunc {
	return func(ctx context.Context, job *jobqueue.Job) error {
		payload, err := jobqueue.PaymentEventJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid payment event payload: %w", err)
		}
		if payload.ProviderEventID == "" {
			return errors.New("payment event payload is missing provider_event_id")
		}
		return deps.Payments.ProcessEvent(ctx, payload.ProviderEventID)
	}
}

func notificationProcessor(deps Deps) jobqueue.ProcessorFunc {
	return func(ctx context.Context, job *jobqueue.Job) error {
		payload, err := jobqueue.NotificationJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid notification payload: %w", err)
		}

		var booking models.Booking
		if err := deps.DB.WithContext(ctx).First(&booking, payload.BookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warnf("[Worker] notification for unknown booking %d, dropping", payload.BookingID)
				return nil
			}
			return err
		}

		email := payload.Email
		if email == "" {
			var customer models.Customer
			if err := deps.DB.WithContext(ctx).
				Where("booking_id = ?", booking.ID).First(&customer).Error; err == nil {
				email = customer.Email
			}
		}
		return notifications.Send(payload.Kind, email, &booking)
	}
}
