package controllers

import (
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/app/repository"
)

// setupAdminTestDB connects to the MySQL instance named by TEST_DATABASE_DSN,
// migrates a clean schema, and binds the global repository factory to it.
// Tests skip when no database is reachable.
func setupAdminTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set; skipping admin controller integration tests")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("could not connect to test database: %v", err)
	}

	require.NoError(t, db.AutoMigrate(
		&models.Booking{},
		&models.DeliverySlot{},
		&models.SlotHold{},
	))
	require.NoError(t, db.Exec("DELETE FROM slot_holds").Error)
	require.NoError(t, db.Exec("DELETE FROM bookings").Error)
	require.NoError(t, db.Exec("DELETE FROM delivery_slots").Error)

	repository.InitializeFactory(db)
	return db
}

func createAdminTestSlot(t *testing.T, db *gorm.DB, capacity int) *models.DeliverySlot {
	t.Helper()
	slot := &models.DeliverySlot{
		Date:        time.Now().AddDate(0, 0, 3),
		WindowLabel: "morning",
		WindowStart: "08:00",
		WindowEnd:   "12:00",
		Capacity:    capacity,
		IsActive:    true,
	}
	require.NoError(t, db.Create(slot).Error)
	return slot
}

func newAdminSlotApp() *fiber.App {
	app := fiber.New()
	app.Patch("/admin/slots/:id", HandleAdminUpdateSlot)
	return app
}

func patchSlotCapacity(t *testing.T, app *fiber.App, slotID uint, capacity int) int {
	t.Helper()
	req := httptest.NewRequest("PATCH", "/admin/slots/"+strconv.Itoa(int(slotID)),
		strings.NewReader(`{"capacity":`+strconv.Itoa(capacity)+`}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAdminUpdateSlotCapacityFloorCountsHolds(t *testing.T) {
	db := setupAdminTestDB(t)
	app := newAdminSlotApp()

	slot := createAdminTestSlot(t, db, 5)

	// One placed booking plus one live hold commit two units of capacity.
	booked, _ := models.NewBooking()
	booked.Status = models.BookingStatusScheduled
	booked.DeliverySlotID = &slot.ID
	require.NoError(t, db.Create(booked).Error)

	holder, _ := models.NewBooking()
	holder.Status = models.BookingStatusQualified
	require.NoError(t, db.Create(holder).Error)
	require.NoError(t, db.Create(&models.SlotHold{
		BookingID:      holder.ID,
		DeliverySlotID: slot.ID,
		ExpiresAt:      time.Now().Add(10 * time.Minute),
	}).Error)

	assert.Equal(t, fiber.StatusConflict, patchSlotCapacity(t, app, slot.ID, 1))
	assert.Equal(t, fiber.StatusOK, patchSlotCapacity(t, app, slot.ID, 2))

	var fresh models.DeliverySlot
	require.NoError(t, db.First(&fresh, slot.ID).Error)
	assert.Equal(t, 2, fresh.Capacity)
}

func TestAdminUpdateSlotCapacityIgnoresDeadHolds(t *testing.T) {
	db := setupAdminTestDB(t)
	app := newAdminSlotApp()

	slot := createAdminTestSlot(t, db, 5)

	// Expired and released holds no longer commit capacity.
	expired, _ := models.NewBooking()
	expired.Status = models.BookingStatusQualified
	require.NoError(t, db.Create(expired).Error)
	require.NoError(t, db.Create(&models.SlotHold{
		BookingID:      expired.ID,
		DeliverySlotID: slot.ID,
		ExpiresAt:      time.Now().Add(-time.Minute),
	}).Error)

	released, _ := models.NewBooking()
	released.Status = models.BookingStatusQualified
	require.NoError(t, db.Create(released).Error)
	require.NoError(t, db.Create(&models.SlotHold{
		BookingID:      released.ID,
		DeliverySlotID: slot.ID,
		ExpiresAt:      time.Now().Add(10 * time.Minute),
		Released:       true,
	}).Error)

	assert.Equal(t, fiber.StatusOK, patchSlotCapacity(t, app, slot.ID, 1))
}
