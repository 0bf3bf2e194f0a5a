// Package wizard drives the multi-step booking intake. Each step is safe to
// re-submit: payloads are validated, status preconditions are enforced
// through the lifecycle tables, and currentStep never decreases.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/internal/pkg/lifecycle"
	"github.com/washplan/washplan/internal/pkg/pricing"
	"github.com/washplan/washplan/internal/pkg/reservation"
)

// ErrBookingNotFound means no booking exists for the given id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrNoContractVersion means step 7 was attempted before any contract
// version was published. This is a deployment/configuration problem, not a
// client error.
var ErrNoContractVersion = errors.New("no contract version available")

// ConflictError means a step precondition failed (wrong status, terminal
// booking). Maps to HTTP 409.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// BadRequestError means the step number or payload combination is not
// submittable. Maps to HTTP 400.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return e.Reason }

// RequestMeta carries request attribution stamped on contract signatures.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// ExpiryScheduler schedules the deferred hold-expiry task after a
// successful reservation.
type ExpiryScheduler interface {
	ScheduleHoldExpiry(hold *models.SlotHold) error
}

// Orchestrator validates and applies one wizard step at a time.
type Orchestrator struct {
	db        *gorm.DB
	engine    *reservation.Engine
	scheduler ExpiryScheduler
}

// NewOrchestrator wires the orchestrator with its collaborators.
func NewOrchestrator(db *gorm.DB, engine *reservation.Engine, scheduler ExpiryScheduler) *Orchestrator {
	return &Orchestrator{db: db, engine: engine, scheduler: scheduler}
}

// ApplyStep validates the payload for one wizard step and applies it to the
// booking. Preconditions are checked in a fixed order: booking exists,
// booking not terminal, step is defined, status is sufficient, payload is
// valid.
func (o *Orchestrator) ApplyStep(ctx context.Context, bookingID uint, step int, payload []byte, meta RequestMeta) (*models.Booking, error) {
	var booking models.Booking
	if err := o.db.WithContext(ctx).First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if booking.IsTerminal() {
		return nil, &ConflictError{Reason: "booking is no longer active"}
	}

	rule, ok := lifecycle.RuleForStep(step)
	if !ok {
		return nil, &BadRequestError{Reason: fmt.Sprintf("invalid wizard step: %d", step)}
	}

	if !lifecycle.IsAtLeast(booking.Status, rule.RequiredStatus) {
		return nil, &ConflictError{
			Reason: fmt.Sprintf("step %d requires status %s, booking is %s", step, rule.RequiredStatus, booking.Status),
		}
	}

	var err error
	switch step {
	case lifecycle.StepEligibility:
		err = o.applyStep1(ctx, &booking, payload)
	case lifecycle.StepPackageTerm:
		err = o.applyStep2(ctx, &booking, payload)
	case lifecycle.StepCustomer:
		err = o.applyStep3(ctx, &booking, payload)
	case lifecycle.StepHookups:
		err = o.applyStep4(ctx, &booking, payload)
	case lifecycle.StepDelivery:
		err = o.applyStep5(ctx, &booking, payload)
	case lifecycle.StepPaymentConsent:
		err = o.applyStep6(ctx, &booking, payload)
	case lifecycle.StepContract:
		err = o.applyStep7(ctx, &booking, payload, meta)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// advanceStatus moves the booking to the step's completed status when that
// transition is currently legal. Re-submissions where the booking already
// progressed keep their status untouched.
func advanceStatus(booking *models.Booking, completed string) {
	if booking.Status != completed && lifecycle.CanTransition(booking.Status, completed) {
		booking.Status = completed
	}
}

func bumpStep(booking *models.Booking, step int) {
	if step > booking.CurrentStep {
		booking.CurrentStep = step
	}
}

func (o *Orchestrator) applyStep1(ctx context.Context, booking *models.Booking, payload []byte) error {
	var p Step1Payload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}

	booking.ServiceZip = p.ServiceZip
	booking.HasHookups = p.HasHookups
	advanceStatus(booking, models.BookingStatusQualified)
	bumpStep(booking, 2)

	return o.db.WithContext(ctx).Save(booking).Error
}

func (o *Orchestrator) applyStep2(ctx context.Context, booking *models.Booking, payload []byte) error {
	var p Step2Payload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}

	hasPackage := p.PackageType != ""
	hasTerm := p.TermType != ""
	if hasPackage == hasTerm {
		return &BadRequestError{Reason: "provide exactly one of packageType or termType"}
	}

	if hasPackage {
		if !pricing.IsPackageType(p.PackageType) {
			return &ValidationError{Fields: map[string]string{"packageType": "unknown package type"}}
		}
		// Package change invalidates any previously computed pricing.
		booking.PackageType = p.PackageType
		booking.TermType = ""
		booking.MonthlyPriceCents = nil
		booking.SetupFeeCents = nil
		booking.MinimumTermMonths = nil
		return o.db.WithContext(ctx).Save(booking).Error
	}

	if booking.PackageType == "" {
		return &BadRequestError{Reason: "select a package before choosing a term"}
	}
	if !pricing.IsTermType(p.TermType) {
		return &ValidationError{Fields: map[string]string{"termType": "unknown term type"}}
	}
	quote, err := pricing.QuoteFor(booking.PackageType, p.TermType)
	if err != nil {
		return &BadRequestError{Reason: err.Error()}
	}

	booking.TermType = p.TermType
	booking.MonthlyPriceCents = &quote.MonthlyPriceCents
	booking.SetupFeeCents = &quote.SetupFeeCents
	booking.MinimumTermMonths = &quote.MinimumTermMonths
	bumpStep(booking, 3)

	return o.db.WithContext(ctx).Save(booking).Error
}

func (o *Orchestrator) applyStep3(ctx context.Context, booking *models.Booking, payload []byte) error {
	var p Step3Payload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}

	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		err := tx.Where("booking_id = ?", booking.ID).First(&customer).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		customer.BookingID = booking.ID
		customer.FirstName = p.FirstName
		customer.LastName = p.LastName
		customer.Email = p.Email
		customer.Phone = p.Phone
		customer.Street = p.Street
		customer.Unit = p.Unit
		customer.City = p.City
		customer.Zip = p.Zip
		customer.AccessNotes = p.AccessNotes
		if err := tx.Save(&customer).Error; err != nil {
			return err
		}

		bumpStep(booking, 4)
		return tx.Save(booking).Error
	})
}

func (o *Orchestrator) applyStep4(ctx context.Context, booking *models.Booking, payload []byte) error {
	var p Step4Payload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}

	booking.PlugType = p.PlugType
	booking.HasPowerOutlet = p.HasPowerOutlet
	booking.HasWaterHookups = p.HasWaterHookups
	bumpStep(booking, 5)

	return o.db.WithContext(ctx).Save(booking).Error
}

func (o *Orchestrator) applyStep5(ctx context.Context, booking *models.Booking, payload []byte) error {
	var p Step5Payload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}

	// The reservation engine owns capacity accounting; SlotFull/SlotNotFound
	// pass through unchanged and the booking is left untouched.
	hold, err := o.engine.ReserveSlot(ctx, booking.ID, p.DeliverySlotID)
	if err != nil {
		return err
	}

	slotID := p.DeliverySlotID
	booking.DeliverySlotID = &slotID
	advanceStatus(booking, models.BookingStatusScheduled)
	bumpStep(booking, 6)
	if err := o.db.WithContext(ctx).Save(booking).Error; err != nil {
		return err
	}

	if err := o.scheduler.ScheduleHoldExpiry(hold); err != nil {
		// The hold still expires by timestamp; only the eager reclaim is
		// delayed until the stuck sweep. Log and keep going.
		log.Errorf("[Wizard] Failed to schedule expiry for hold %d: %v", hold.ID, err)
	}
	return nil
}

func (o *Orchestrator) applyStep6(ctx context.Context, booking *models.Booking, payload []byte) error {
	var p Step6Payload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}

	// Status is advanced asynchronously by the payment event processor.
	now := time.Now()
	booking.PaymentConsentAt = &now
	booking.PayAtDelivery = p.PayAtDelivery
	bumpStep(booking, 6)

	return o.db.WithContext(ctx).Save(booking).Error
}

func (o *Orchestrator) applyStep7(ctx context.Context, booking *models.Booking, payload []byte, meta RequestMeta) error {
	var p Step7Payload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}

	cv, err := models.LatestContractVersion(o.db.WithContext(ctx))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoContractVersion
		}
		return err
	}

	// Signature metadata is immutable once stamped; a re-submission after
	// signing only re-runs the status/step bookkeeping.
	if booking.ContractSignedAt == nil {
		now := time.Now()
		booking.ContractSignedAt = &now
		booking.SignerName = p.SignatureName
		booking.SignerIP = meta.IP
		booking.SignerUserAgent = meta.UserAgent
		booking.ContractVersionID = &cv.ID
	}

	advanceStatus(booking, models.BookingStatusContractSigned)
	booking.CurrentStep = lifecycle.StepDone

	return o.db.WithContext(ctx).Save(booking).Error
}
