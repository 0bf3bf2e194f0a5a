package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/app/repository"
	"github.com/washplan/washplan/internal/pkg/bookingcontext"
	"github.com/washplan/washplan/internal/pkg/database"
)

// BookingAuthMiddleware authenticates requests carrying a booking access token.
// The token is only returned once at booking creation; it is stored hashed.
func BookingAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBookingTokenFromHeader(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing booking token"})
		}

		db := database.GetDB()
		if db == nil {
			log.Print("booking auth middleware: database unavailable")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
		}

		hash := models.HashAccessToken(token)
		repo := repository.GetGlobalFactory().GetBookingRepository()
		booking, err := repo.GetByAccessTokenHash(hash)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid booking token"})
			}
			log.Printf("booking token lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Token verification failed"})
		}

		bookingCtx := bookingcontext.BookingContext{
			BookingID: booking.ID,
			PublicID:  booking.PublicID,
			Status:    booking.Status,
		}
		c.Locals(bookingcontext.KeyBookingContext, bookingCtx)
		c.Locals(bookingcontext.KeyAuthenticated, true)
		c.Locals(bookingcontext.KeyBookingID, booking.ID)

		return c.Next()
	}
}

func extractBookingTokenFromHeader(c *fiber.Ctx) string {
	token := strings.TrimSpace(c.Get("X-Booking-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
