package bookingcontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyBookingContext = "BOOKING_CONTEXT"
	KeyBookingID      = "booking_id"
	KeyAuthenticated  = "booking_authenticated"
)
