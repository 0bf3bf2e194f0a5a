package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/washplan/washplan/app/controllers"
	"github.com/washplan/washplan/internal/pkg/constants"
	"github.com/washplan/washplan/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIv1Route)

	// Booking creation has no token yet; the limiter falls back to per-IP.
	api.Post("/bookings", middleware.BookingRateLimiter(), controllers.HandleCreateBooking)

	// Webhook deliveries authenticate by signature, not token.
	api.Post("/webhooks/payment", controllers.HandlePaymentWebhook)

	// Everything under /bookings/current requires the booking access token.
	current := api.Group("/bookings/current", middleware.BookingAuthMiddleware(), middleware.BookingRateLimiter())
	current.Get("/", controllers.HandleGetBooking)
	current.Post("/steps/:step", controllers.HandleApplyStep)
	current.Get("/delivery-slots", controllers.HandleListDeliverySlots)
	current.Post("/checkout", controllers.HandleCreateCheckoutSession)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
