package wizard

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/internal/pkg/reservation"
)

type recordingScheduler struct {
	holds []*models.SlotHold
}

func (s *recordingScheduler) ScheduleHoldExpiry(hold *models.SlotHold) error {
	s.holds = append(s.holds, hold)
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set; skipping wizard integration tests")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("could not connect to test database: %v", err)
	}

	require.NoError(t, db.AutoMigrate(
		&models.Booking{},
		&models.Customer{},
		&models.DeliverySlot{},
		&models.SlotHold{},
		&models.ContractVersion{},
	))
	for _, table := range []string{"slot_holds", "customers", "bookings", "delivery_slots", "contract_versions"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}

	return db
}

func newTestOrchestrator(t *testing.T, db *gorm.DB) (*Orchestrator, *recordingScheduler) {
	t.Helper()
	scheduler := &recordingScheduler{}
	engine := reservation.NewEngine(db, 0)
	return NewOrchestrator(db, engine, scheduler), scheduler
}

func createDraftBooking(t *testing.T, db *gorm.DB) *models.Booking {
	t.Helper()
	booking, _ := models.NewBooking()
	require.NoError(t, db.Create(booking).Error)
	return booking
}

func TestApplyStepUnknownBooking(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)

	_, err := o.ApplyStep(context.Background(), 999999, 1, []byte(`{}`), RequestMeta{})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestApplyStepTerminalBooking(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)
	require.NoError(t, db.Model(booking).Update("status", models.BookingStatusCanceled).Error)

	_, err := o.ApplyStep(context.Background(), booking.ID, 1, []byte(`{}`), RequestMeta{})
	var conflict *ConflictError
	assert.True(t, errors.As(err, &conflict))
}

func TestApplyStepInvalidStepNumber(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)

	for _, step := range []int{0, 8, 12} {
		_, err := o.ApplyStep(context.Background(), booking.ID, step, []byte(`{}`), RequestMeta{})
		var badReq *BadRequestError
		assert.True(t, errors.As(err, &badReq), "step %d must be rejected", step)
	}
}

func TestApplyStepStatusPrecondition(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)

	// DRAFT booking cannot jump to the customer step.
	_, err := o.ApplyStep(context.Background(), booking.ID, 3, []byte(`{}`), RequestMeta{})
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Contains(t, conflict.Reason, models.BookingStatusQualified)
}

// TestWizardHappyPathPricing walks the eligibility and pricing steps of the
// wizard exactly as a client would.
func TestWizardHappyPathPricing(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)
	ctx := context.Background()

	updated, err := o.ApplyStep(ctx, booking.ID, 1, []byte(`{"serviceZip":"77001","hasHookups":true}`), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusQualified, updated.Status)
	assert.Equal(t, 2, updated.CurrentStep)

	updated, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"packageType":"WASHER_DRYER"}`), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentStep, "package selection alone does not advance the step")
	assert.Nil(t, updated.MonthlyPriceCents)

	updated, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"termType":"TWELVE_MONTH"}`), RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, updated.MonthlyPriceCents)
	assert.Equal(t, 5900, *updated.MonthlyPriceCents)
	assert.Equal(t, 0, *updated.SetupFeeCents)
	assert.Equal(t, 12, *updated.MinimumTermMonths)
	assert.Equal(t, 3, updated.CurrentStep)
}

func TestStep2PackageChangeClearsPricing(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)
	ctx := context.Background()

	_, err := o.ApplyStep(ctx, booking.ID, 1, []byte(`{"serviceZip":"77001","hasHookups":true}`), RequestMeta{})
	require.NoError(t, err)
	_, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"packageType":"WASHER_DRYER"}`), RequestMeta{})
	require.NoError(t, err)
	_, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"termType":"TWELVE_MONTH"}`), RequestMeta{})
	require.NoError(t, err)

	// Switching the package must clear the stale snapshot.
	updated, err := o.ApplyStep(ctx, booking.ID, 2, []byte(`{"packageType":"WASHER"}`), RequestMeta{})
	require.NoError(t, err)
	assert.Empty(t, updated.TermType)
	assert.Nil(t, updated.MonthlyPriceCents)
	assert.Nil(t, updated.SetupFeeCents)
	assert.Nil(t, updated.MinimumTermMonths)

	// Re-selecting a term recomputes from the new package row.
	updated, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"termType":"TWELVE_MONTH"}`), RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, updated.MonthlyPriceCents)
	assert.Equal(t, 3900, *updated.MonthlyPriceCents)
}

func TestStep2RequiresExactlyOneSelection(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)
	ctx := context.Background()

	_, err := o.ApplyStep(ctx, booking.ID, 1, []byte(`{"serviceZip":"77001","hasHookups":true}`), RequestMeta{})
	require.NoError(t, err)

	var badReq *BadRequestError
	_, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{}`), RequestMeta{})
	assert.True(t, errors.As(err, &badReq))

	_, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"packageType":"WASHER","termType":"SIX_MONTH"}`), RequestMeta{})
	assert.True(t, errors.As(err, &badReq))

	// Term before any package selection is rejected too.
	fresh := createDraftBooking(t, db)
	_, err = o.ApplyStep(ctx, fresh.ID, 1, []byte(`{"serviceZip":"77001","hasHookups":true}`), RequestMeta{})
	require.NoError(t, err)
	_, err = o.ApplyStep(ctx, fresh.ID, 2, []byte(`{"termType":"SIX_MONTH"}`), RequestMeta{})
	assert.True(t, errors.As(err, &badReq))
}

func TestStep2RejectsUnknownCatalogValues(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)
	ctx := context.Background()

	_, err := o.ApplyStep(ctx, booking.ID, 1, []byte(`{"serviceZip":"77001","hasHookups":true}`), RequestMeta{})
	require.NoError(t, err)

	var valErr *ValidationError
	_, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"packageType":"DISHWASHER"}`), RequestMeta{})
	require.True(t, errors.As(err, &valErr))
	assert.Contains(t, valErr.Fields, "packageType")

	_, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"packageType":"WASHER"}`), RequestMeta{})
	require.NoError(t, err)

	valErr = nil
	_, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"termType":"FOUR_YEAR"}`), RequestMeta{})
	require.True(t, errors.As(err, &valErr))
	assert.Contains(t, valErr.Fields, "termType")

	// An unknown value must not disturb the committed selection.
	var fresh models.Booking
	require.NoError(t, db.First(&fresh, booking.ID).Error)
	assert.Equal(t, models.PackageWasher, fresh.PackageType)
	assert.Empty(t, fresh.TermType)
}

func TestStep3UpsertsCustomer(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)
	ctx := context.Background()

	_, err := o.ApplyStep(ctx, booking.ID, 1, []byte(`{"serviceZip":"77001","hasHookups":true}`), RequestMeta{})
	require.NoError(t, err)

	payload := []byte(`{"firstName":"Ada","lastName":"Lund","email":"ada@example.com","street":"12 Main St","city":"Houston","zip":"77001"}`)
	updated, err := o.ApplyStep(ctx, booking.ID, 3, payload, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.CurrentStep)

	// Resubmission updates instead of duplicating.
	payload2 := []byte(`{"firstName":"Ada","lastName":"Lund","email":"ada.lund@example.com","street":"12 Main St","city":"Houston","zip":"77001"}`)
	_, err = o.ApplyStep(ctx, booking.ID, 3, payload2, RequestMeta{})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Customer{}).Where("booking_id = ?", booking.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var customer models.Customer
	require.NoError(t, db.Where("booking_id = ?", booking.ID).First(&customer).Error)
	assert.Equal(t, "ada.lund@example.com", customer.Email)
}

func TestStep5ReservesSlotAndSchedulesExpiry(t *testing.T) {
	db := setupTestDB(t)
	o, scheduler := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)
	ctx := context.Background()

	slot := &models.DeliverySlot{
		Date:        time.Now().AddDate(0, 0, 2),
		WindowLabel: "afternoon",
		WindowStart: "12:00",
		WindowEnd:   "16:00",
		Capacity:    1,
		IsActive:    true,
	}
	require.NoError(t, db.Create(slot).Error)

	_, err := o.ApplyStep(ctx, booking.ID, 1, []byte(`{"serviceZip":"77001","hasHookups":true}`), RequestMeta{})
	require.NoError(t, err)

	updated, err := o.ApplyStep(ctx, booking.ID, 5, []byte(`{"deliverySlotId":`+strconv.FormatUint(uint64(slot.ID), 10)+`}`), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusScheduled, updated.Status)
	assert.Equal(t, 6, updated.CurrentStep)
	require.NotNil(t, updated.DeliverySlotID)
	assert.Equal(t, slot.ID, *updated.DeliverySlotID)
	require.Len(t, scheduler.holds, 1)
	assert.Equal(t, booking.ID, scheduler.holds[0].BookingID)

	// Second booking hits a full slot and is left untouched.
	other := createDraftBooking(t, db)
	_, err = o.ApplyStep(ctx, other.ID, 1, []byte(`{"serviceZip":"77001","hasHookups":true}`), RequestMeta{})
	require.NoError(t, err)
	_, err = o.ApplyStep(ctx, other.ID, 5, []byte(`{"deliverySlotId":`+strconv.FormatUint(uint64(slot.ID), 10)+`}`), RequestMeta{})
	assert.ErrorIs(t, err, reservation.ErrSlotFull)

	var reloaded models.Booking
	require.NoError(t, db.First(&reloaded, other.ID).Error)
	assert.Nil(t, reloaded.DeliverySlotID)
	assert.Equal(t, models.BookingStatusQualified, reloaded.Status)
}

func TestStep7RequiresContractVersionAndStampsOnce(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)
	ctx := context.Background()

	require.NoError(t, db.Model(booking).Updates(map[string]interface{}{
		"status":       models.BookingStatusPaidSetup,
		"current_step": 7,
	}).Error)

	_, err := o.ApplyStep(ctx, booking.ID, 7, []byte(`{"signatureName":"Ada Lund"}`), RequestMeta{IP: "10.0.0.1", UserAgent: "test"})
	assert.ErrorIs(t, err, ErrNoContractVersion)

	require.NoError(t, db.Create(&models.ContractVersion{
		Version:     "2025-01",
		DocumentURL: "https://example.com/contract-2025-01.pdf",
		EffectiveAt: time.Now().AddDate(0, -1, 0),
	}).Error)

	updated, err := o.ApplyStep(ctx, booking.ID, 7, []byte(`{"signatureName":"Ada Lund"}`), RequestMeta{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusContractSigned, updated.Status)
	assert.Equal(t, 8, updated.CurrentStep)
	require.NotNil(t, updated.ContractSignedAt)
	firstSignedAt := *updated.ContractSignedAt
	assert.Equal(t, "Ada Lund", updated.SignerName)

	// Re-submission keeps the original signature metadata.
	updated, err = o.ApplyStep(ctx, booking.ID, 7, []byte(`{"signatureName":"Someone Else"}`), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lund", updated.SignerName)
	assert.True(t, updated.ContractSignedAt.Equal(firstSignedAt))
}

// TestCurrentStepNeverDecreases replays earlier steps and asserts the step
// pointer is monotonic.
func TestCurrentStepNeverDecreases(t *testing.T) {
	db := setupTestDB(t)
	o, _ := newTestOrchestrator(t, db)
	booking := createDraftBooking(t, db)
	ctx := context.Background()

	_, err := o.ApplyStep(ctx, booking.ID, 1, []byte(`{"serviceZip":"77001","hasHookups":true}`), RequestMeta{})
	require.NoError(t, err)
	_, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"packageType":"WASHER"}`), RequestMeta{})
	require.NoError(t, err)
	_, err = o.ApplyStep(ctx, booking.ID, 2, []byte(`{"termType":"SIX_MONTH"}`), RequestMeta{})
	require.NoError(t, err)

	// Re-running step 1 must not move the booking backwards.
	updated, err := o.ApplyStep(ctx, booking.ID, 1, []byte(`{"serviceZip":"77002","hasHookups":true}`), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.CurrentStep)
	assert.Equal(t, models.BookingStatusQualified, updated.Status)
}
