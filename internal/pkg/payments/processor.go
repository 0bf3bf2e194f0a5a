package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/internal/pkg/lifecycle"
	"github.com/washplan/washplan/internal/pkg/reservation"
)

// Notification kinds queued as side effects of payment events.
const (
	NotificationPaymentFailed       = "payment_failed"
	NotificationSubscriptionEnded   = "subscription_ended"
	NotificationSetupPaymentReceipt = "setup_payment_receipt"
)

// Notifier queues a customer notification for asynchronous delivery.
// Queue failures must not fail event processing.
type Notifier interface {
	QueueNotification(kind string, bookingID uint, email string) error
}

// Service records provider webhook events exactly once and applies their
// business effect to bookings. Processing is idempotent: replays of an
// already processed event are no-ops.
type Service struct {
	db       *gorm.DB
	repo     Repository
	provider Provider
	notifier Notifier
}

// NewService creates a payment event service with explicit collaborators.
func NewService(db *gorm.DB, provider Provider, notifier Notifier) *Service {
	return &Service{
		db:       db,
		repo:     NewRepository(db),
		provider: provider,
		notifier: notifier,
	}
}

// RecordEvent persists an incoming webhook event in the ledger. The unique
// provider event id makes redelivery a detectable duplicate rather than a
// second row.
func (s *Service) RecordEvent(ctx context.Context, providerEventID, eventType string, payload []byte, signatureValid bool) (bool, *models.PaymentEvent, error) {
	_ = ctx
	if providerEventID == "" {
		return false, nil, errors.New("provider event id is required")
	}

	event := &models.PaymentEvent{
		ProviderEventID: providerEventID,
		EventType:       eventType,
		PayloadJSON:     string(payload),
		SignatureValid:  signatureValid,
	}
	return s.repo.CreateEventIfNotExists(event)
}

// ProcessEvent applies the business effect of a recorded event and marks it
// processed. On failure the error is persisted on the ledger row and
// returned so the caller can retry.
func (s *Service) ProcessEvent(ctx context.Context, providerEventID string) error {
	event, err := s.repo.GetEventByProviderID(providerEventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Payments] event %s not found in ledger, skipping", providerEventID)
			return nil
		}
		return err
	}
	if event.Processed {
		return nil
	}

	if procErr := s.dispatch(ctx, event); procErr != nil {
		if markErr := s.repo.MarkEventProcessed(event.ID, procErr.Error()); markErr != nil {
			log.Errorf("[Payments] failed to persist processing error for %s: %v", providerEventID, markErr)
		}
		return procErr
	}
	return s.repo.MarkEventProcessed(event.ID, "")
}

func (s *Service) dispatch(ctx context.Context, event *models.PaymentEvent) error {
	payload := []byte(event.PayloadJSON)
	switch EventType(event.EventType) {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, payload)
	case EventInvoiceCreated:
		return s.handleInvoiceCreated(ctx, payload)
	case EventInvoicePaid:
		return s.handleInvoicePaid(ctx, payload)
	case EventInvoiceFailed:
		return s.handleInvoiceFailed(ctx, payload)
	case EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, payload)
	default:
		log.Infof("[Payments] ignoring unrecognized event type %s (%s)", event.EventType, event.ProviderEventID)
		return nil
	}
}

// handleCheckoutCompleted stamps provider references onto the booking and
// moves it to PAID_SETUP. Pay-at-delivery bookings only get the references.
func (s *Service) handleCheckoutCompleted(ctx context.Context, payload []byte) error {
	_ = ctx
	var session checkoutSessionObject
	if err := decodeEventObject(payload, &session); err != nil {
		return err
	}
	publicID := session.BookingPublicID()
	if publicID == "" {
		return errors.New("checkout session carries no booking_id metadata")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("public_id = ?", publicID).First(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warnf("[Payments] checkout session %s references unknown booking %s", session.ID, publicID)
				return nil
			}
			return err
		}

		switch {
		case lifecycle.CanTransition(booking.Status, models.BookingStatusPaidSetup):
			booking.Status = models.BookingStatusPaidSetup
			booking.ProviderCustomerID = session.Customer
			booking.ProviderSubscriptionID = session.Subscription
			booking.CheckoutSessionID = session.ID
			if booking.CurrentStep < lifecycle.StepContract {
				booking.CurrentStep = lifecycle.StepContract
			}
		case booking.PayAtDelivery && !booking.HasProviderReferences():
			booking.ProviderCustomerID = session.Customer
			booking.ProviderSubscriptionID = session.Subscription
			booking.CheckoutSessionID = session.ID
		default:
			log.Infof("[Payments] checkout completed for booking %s in status %s, nothing to apply", publicID, booking.Status)
			return nil
		}
		return tx.Save(&booking).Error
	})
}

// handleInvoiceCreated annotates the first draft invoice of a recognized
// subscription with a customer-facing descriptor.
func (s *Service) handleInvoiceCreated(ctx context.Context, payload []byte) error {
	var invoice invoiceObject
	if err := decodeEventObject(payload, &invoice); err != nil {
		return err
	}
	// Only the subscription's first invoice gets the descriptor; renewal
	// drafts carry billing_reason subscription_cycle and pass through.
	if invoice.Subscription == "" || invoice.Status != "draft" || invoice.BillingReason != "subscription_create" {
		return nil
	}

	booking, err := s.repo.GetBookingBySubscriptionID(invoice.Subscription)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Payments] invoice %s references unknown subscription %s", invoice.ID, invoice.Subscription)
			return nil
		}
		return err
	}

	description := fmt.Sprintf("Washplan %s rental, booking %s", booking.PackageType, booking.PublicID)
	return s.provider.AnnotateInvoice(ctx, invoice.ID, description)
}

// handleInvoicePaid records the payment and recovers a past-due booking.
func (s *Service) handleInvoicePaid(ctx context.Context, payload []byte) error {
	_ = ctx
	var invoice invoiceObject
	if err := decodeEventObject(payload, &invoice); err != nil {
		return err
	}
	if invoice.ID == "" || invoice.Subscription == "" {
		return errors.New("paid invoice is missing id or subscription reference")
	}

	booking, err := s.repo.GetBookingBySubscriptionID(invoice.Subscription)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Payments] paid invoice %s references unknown subscription %s", invoice.ID, invoice.Subscription)
			return nil
		}
		return err
	}

	now := time.Now()
	record := &models.PaymentRecord{
		ProviderInvoiceID: invoice.ID,
		BookingID:         booking.ID,
		AmountCents:       invoice.AmountPaid,
		Currency:          invoice.Currency,
		PaidAt:            &now,
		ReceiptURL:        invoice.ReceiptURL,
		HostedInvoiceURL:  invoice.HostedInvoiceURL,
	}
	if err := s.repo.UpsertPaymentRecord(record); err != nil {
		return err
	}

	if booking.Status == models.BookingStatusPastDue &&
		lifecycle.CanTransition(booking.Status, models.BookingStatusActive) {
		booking.Status = models.BookingStatusActive
		return s.db.Save(booking).Error
	}
	return nil
}

// handleInvoiceFailed marks an active booking past due and queues a
// dunning notification.
func (s *Service) handleInvoiceFailed(ctx context.Context, payload []byte) error {
	_ = ctx
	var invoice invoiceObject
	if err := decodeEventObject(payload, &invoice); err != nil {
		return err
	}
	if invoice.Subscription == "" {
		return errors.New("failed invoice is missing subscription reference")
	}

	booking, err := s.repo.GetBookingBySubscriptionID(invoice.Subscription)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Payments] failed invoice %s references unknown subscription %s", invoice.ID, invoice.Subscription)
			return nil
		}
		return err
	}

	if !lifecycle.CanTransition(booking.Status, models.BookingStatusPastDue) {
		log.Infof("[Payments] payment failure for booking %s in status %s, no transition", booking.PublicID, booking.Status)
		return nil
	}
	booking.Status = models.BookingStatusPastDue
	if err := s.db.Save(booking).Error; err != nil {
		return err
	}

	s.queueNotification(NotificationPaymentFailed, booking)
	return nil
}

// handleSubscriptionDeleted cancels the booking and releases any live hold.
func (s *Service) handleSubscriptionDeleted(ctx context.Context, payload []byte) error {
	_ = ctx
	var sub subscriptionObject
	if err := decodeEventObject(payload, &sub); err != nil {
		return err
	}
	if sub.ID == "" {
		return errors.New("subscription event is missing subscription id")
	}

	booking, err := s.repo.GetBookingBySubscriptionID(sub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Payments] deleted subscription %s matches no booking", sub.ID)
			return nil
		}
		return err
	}

	if !lifecycle.CanTransition(booking.Status, models.BookingStatusCanceled) {
		log.Infof("[Payments] subscription %s ended for booking %s in status %s, no transition", sub.ID, booking.PublicID, booking.Status)
		return nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).
			Update("status", models.BookingStatusCanceled).Error; err != nil {
			return err
		}
		return reservation.ReleaseForBooking(tx, booking.ID)
	})
	if err != nil {
		return err
	}

	s.queueNotification(NotificationSubscriptionEnded, booking)
	return nil
}

func (s *Service) queueNotification(kind string, booking *models.Booking) {
	if s.notifier == nil {
		return
	}
	email := ""
	if customer, err := s.repo.GetCustomer(booking.ID); err == nil {
		email = customer.Email
	}
	if err := s.notifier.QueueNotification(kind, booking.ID, email); err != nil {
		log.Errorf("[Payments] failed to queue %s notification for booking %s: %v", kind, booking.PublicID, err)
	}
}
