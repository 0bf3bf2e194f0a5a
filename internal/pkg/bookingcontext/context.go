package bookingcontext

import "github.com/gofiber/fiber/v2"

// BookingContext identifies the booking a token-authenticated request acts on
type BookingContext struct {
	BookingID uint   `json:"booking_id"`
	PublicID  string `json:"public_id"`
	Status    string `json:"status"`
}

// GetBookingContext retrieves the booking context from fiber context
// Returns a zero context if the request was not authenticated
func GetBookingContext(c *fiber.Ctx) BookingContext {
	if ctx := c.Locals(KeyBookingContext); ctx != nil {
		return ctx.(BookingContext)
	}
	return BookingContext{}
}

// IsAuthenticated checks if the request carries a valid booking token
func IsAuthenticated(c *fiber.Ctx) bool {
	return GetBookingContext(c).BookingID != 0
}

// GetBookingID returns the authenticated booking's ID, or 0
func GetBookingID(c *fiber.Ctx) uint {
	return GetBookingContext(c).BookingID
}
