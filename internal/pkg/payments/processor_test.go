package payments

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/washplan/washplan/app/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set; skipping payments integration tests")
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
		&models.PaymentEvent{},
		&models.PaymentRecord{},
	))
	require.NoError(t, db.Exec("DELETE FROM payment_records").Error)
	require.NoError(t, db.Exec("DELETE FROM payment_events").Error)
	require.NoError(t, db.Exec("DELETE FROM slot_holds").Error)
	require.NoError(t, db.Exec("DELETE FROM customers").Error)
	require.NoError(t, db.Exec("DELETE FROM bookings").Error)
	require.NoError(t, db.Exec("DELETE FROM delivery_slots").Error)

	return db
}

type recordingProvider struct {
	annotated map[string]string
}

func (p *recordingProvider) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error) {
	return "https://pay.test/" + in.BookingPublicID, nil
}

func (p *recordingProvider) AnnotateInvoice(ctx context.Context, providerInvoiceID, description string) error {
	if p.annotated == nil {
		p.annotated = map[string]string{}
	}
	p.annotated[providerInvoiceID] = description
	return nil
}

type recordingNotifier struct {
	kinds []string
}

func (n *recordingNotifier) QueueNotification(kind string, bookingID uint, email string) error {
	n.kinds = append(n.kinds, kind)
	return nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingProvider, *recordingNotifier) {
	t.Helper()
	db := setupTestDB(t)
	provider := &recordingProvider{}
	notifier := &recordingNotifier{}
	return NewService(db, provider, notifier), db, provider, notifier
}

func createBooking(t *testing.T, db *gorm.DB, status, subscriptionID string) *models.Booking {
	t.Helper()
	booking, _ := models.NewBooking()
	booking.Status = status
	booking.ProviderSubscriptionID = subscriptionID
	require.NoError(t, db.Create(booking).Error)
	return booking
}

func recordAndProcess(t *testing.T, svc *Service, eventID, eventType, payload string) error {
	t.Helper()
	created, _, err := svc.RecordEvent(context.Background(), eventID, eventType, []byte(payload), true)
	require.NoError(t, err)
	require.True(t, created)
	return svc.ProcessEvent(context.Background(), eventID)
}

func TestRecordEventDuplicate(t *testing.T) {
	svc, db, _, _ := newTestService(t)

	payload := []byte(`{"id":"evt_dup","data":{"object":{}}}`)
	created, stored, err := svc.RecordEvent(context.Background(), "evt_dup", "invoice.paid", payload, true)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, stored)

	created, stored, err = svc.RecordEvent(context.Background(), "evt_dup", "invoice.paid", payload, true)
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, stored)

	var count int64
	require.NoError(t, db.Model(&models.PaymentEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProcessCheckoutCompleted(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	booking := createBooking(t, db, models.BookingStatusScheduled, "")

	payload := fmt.Sprintf(
		`{"data":{"object":{"id":"cs_1","customer":"cus_1","subscription":"sub_1","metadata":{"booking_id":"%s"}}}}`,
		booking.PublicID,
	)
	require.NoError(t, recordAndProcess(t, svc, "evt_checkout_1", string(EventCheckoutCompleted), payload))

	var fresh models.Booking
	require.NoError(t, db.First(&fresh, booking.ID).Error)
	assert.Equal(t, models.BookingStatusPaidSetup, fresh.Status)
	assert.Equal(t, "cus_1", fresh.ProviderCustomerID)
	assert.Equal(t, "sub_1", fresh.ProviderSubscriptionID)
	assert.Equal(t, "cs_1", fresh.CheckoutSessionID)
	assert.Equal(t, 7, fresh.CurrentStep)

	var event models.PaymentEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_checkout_1").First(&event).Error)
	assert.True(t, event.Processed)
	assert.NotNil(t, event.ProcessedAt)
	assert.Empty(t, event.ProcessingError)
}

func TestProcessEventReplayIsNoOp(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	booking := createBooking(t, db, models.BookingStatusScheduled, "")

	payload := fmt.Sprintf(
		`{"data":{"object":{"id":"cs_1","customer":"cus_1","subscription":"sub_1","metadata":{"booking_id":"%s"}}}}`,
		booking.PublicID,
	)
	require.NoError(t, recordAndProcess(t, svc, "evt_replay", string(EventCheckoutCompleted), payload))

	// Manually move the booking on and replay the event.
	require.NoError(t, db.Model(&models.Booking{}).Where("id = ?", booking.ID).
		Update("status", models.BookingStatusContractSigned).Error)
	require.NoError(t, svc.ProcessEvent(context.Background(), "evt_replay"))

	var fresh models.Booking
	require.NoError(t, db.First(&fresh, booking.ID).Error)
	assert.Equal(t, models.BookingStatusContractSigned, fresh.Status)
}

func TestProcessInvoiceCreatedAnnotatesDraft(t *testing.T) {
	svc, db, provider, _ := newTestService(t)
	booking := createBooking(t, db, models.BookingStatusPaidSetup, "sub_draft")
	booking.PackageType = models.PackageWasherDryer
	require.NoError(t, db.Save(booking).Error)

	payload := `{"data":{"object":{"id":"in_draft","subscription":"sub_draft","status":"draft","billing_reason":"subscription_create"}}}`
	require.NoError(t, recordAndProcess(t, svc, "evt_inv_created", string(EventInvoiceCreated), payload))

	require.Contains(t, provider.annotated, "in_draft")
	assert.Contains(t, provider.annotated["in_draft"], booking.PublicID)
}

func TestProcessInvoiceCreatedSkipsRenewalDraft(t *testing.T) {
	svc, db, provider, _ := newTestService(t)
	createBooking(t, db, models.BookingStatusActive, "sub_cycle")

	payload := `{"data":{"object":{"id":"in_cycle","subscription":"sub_cycle","status":"draft","billing_reason":"subscription_cycle"}}}`
	require.NoError(t, recordAndProcess(t, svc, "evt_inv_cycle", string(EventInvoiceCreated), payload))

	assert.NotContains(t, provider.annotated, "in_cycle")
}

func TestProcessInvoicePaidRecoversPastDue(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	booking := createBooking(t, db, models.BookingStatusPastDue, "sub_paid")

	payload := `{"data":{"object":{"id":"in_1","subscription":"sub_paid","status":"paid","amount_paid":5900,"currency":"usd","hosted_invoice_url":"https://pay.test/in_1"}}}`
	require.NoError(t, recordAndProcess(t, svc, "evt_inv_paid", string(EventInvoicePaid), payload))

	var fresh models.Booking
	require.NoError(t, db.First(&fresh, booking.ID).Error)
	assert.Equal(t, models.BookingStatusActive, fresh.Status)

	var record models.PaymentRecord
	require.NoError(t, db.Where("provider_invoice_id = ?", "in_1").First(&record).Error)
	assert.Equal(t, booking.ID, record.BookingID)
	assert.Equal(t, 5900, record.AmountCents)
	assert.NotNil(t, record.PaidAt)
}

func TestProcessInvoicePaidDuplicateKeepsOneRecord(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	booking := createBooking(t, db, models.BookingStatusActive, "sub_dup_inv")

	payload := `{"data":{"object":{"id":"in_dup","subscription":"sub_dup_inv","amount_paid":4900,"currency":"usd"}}}`
	require.NoError(t, recordAndProcess(t, svc, "evt_inv_a", string(EventInvoicePaid), payload))
	require.NoError(t, recordAndProcess(t, svc, "evt_inv_b", string(EventInvoicePaid), payload))

	var count int64
	require.NoError(t, db.Model(&models.PaymentRecord{}).
		Where("booking_id = ?", booking.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProcessInvoiceFailed(t *testing.T) {
	svc, db, _, notifier := newTestService(t)
	booking := createBooking(t, db, models.BookingStatusActive, "sub_fail")
	require.NoError(t, db.Create(&models.Customer{
		BookingID: booking.ID,
		FirstName: "Pat",
		LastName:  "Doe",
		Email:     "pat@example.com",
		Street:    "1 Main St",
		City:      "Houston",
		Zip:       "77001",
	}).Error)

	payload := `{"data":{"object":{"id":"in_fail","subscription":"sub_fail","status":"open"}}}`
	require.NoError(t, recordAndProcess(t, svc, "evt_inv_fail", string(EventInvoiceFailed), payload))

	var fresh models.Booking
	require.NoError(t, db.First(&fresh, booking.ID).Error)
	assert.Equal(t, models.BookingStatusPastDue, fresh.Status)
	assert.Contains(t, notifier.kinds, NotificationPaymentFailed)
}

func TestProcessSubscriptionDeleted(t *testing.T) {
	svc, db, _, notifier := newTestService(t)
	booking := createBooking(t, db, models.BookingStatusActive, "sub_gone")

	slot := &models.DeliverySlot{
		Date:        time.Now().AddDate(0, 0, 5),
		WindowLabel: "afternoon",
		WindowStart: "12:00",
		WindowEnd:   "16:00",
		Capacity:    2,
		IsActive:    true,
	}
	require.NoError(t, db.Create(slot).Error)
	require.NoError(t, db.Create(&models.SlotHold{
		BookingID:      booking.ID,
		DeliverySlotID: slot.ID,
		ExpiresAt:      time.Now().Add(10 * time.Minute),
	}).Error)

	payload := `{"data":{"object":{"id":"sub_gone","customer":"cus_9"}}}`
	require.NoError(t, recordAndProcess(t, svc, "evt_sub_del", string(EventSubscriptionDeleted), payload))

	var fresh models.Booking
	require.NoError(t, db.First(&fresh, booking.ID).Error)
	assert.Equal(t, models.BookingStatusCanceled, fresh.Status)

	var live int64
	require.NoError(t, db.Model(&models.SlotHold{}).
		Where("booking_id = ? AND released = ?", booking.ID, false).Count(&live).Error)
	assert.Equal(t, int64(0), live)
	assert.Contains(t, notifier.kinds, NotificationSubscriptionEnded)
}

func TestProcessUnknownEventType(t *testing.T) {
	svc, db, _, _ := newTestService(t)

	require.NoError(t, recordAndProcess(t, svc, "evt_unknown", "charge.refunded", `{"data":{"object":{}}}`))

	var event models.PaymentEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_unknown").First(&event).Error)
	assert.True(t, event.Processed)
	assert.Empty(t, event.ProcessingError)
}

func TestProcessFailurePersistsError(t *testing.T) {
	svc, db, _, _ := newTestService(t)

	err := recordAndProcess(t, svc, "evt_bad", string(EventInvoicePaid), `{"data":{"object":{"status":"paid"}}}`)
	require.Error(t, err)

	var event models.PaymentEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_bad").First(&event).Error)
	assert.False(t, event.Processed)
	assert.NotEmpty(t, event.ProcessingError)
}
