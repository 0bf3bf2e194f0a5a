package constants

// Route prefixes shared between the router and tests
const (
	APIv1Route    = "/api/v1"
	BookingsRoute = "/api/v1/bookings"
	WebhookRoute  = "/api/v1/webhooks/payment"
	AdminRoute    = "/admin/api"
)
