package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/washplan/washplan/app/controllers"
	"github.com/washplan/washplan/internal/pkg/constants"
	"github.com/washplan/washplan/internal/pkg/middleware"
)

type AdminRouter struct {
}

func (h AdminRouter) InstallRouter(app *fiber.App) {
	admin := app.Group(constants.AdminRoute, middleware.AdminAuthMiddleware())

	admin.Get("/slots", controllers.HandleAdminListSlots)
	admin.Post("/slots", controllers.HandleAdminCreateSlot)
	admin.Patch("/slots/:id", controllers.HandleAdminUpdateSlot)
	admin.Delete("/slots/:id", controllers.HandleAdminDeleteSlot)

	admin.Get("/bookings", controllers.HandleAdminListBookings)
	admin.Post("/bookings/bulk-cancel", controllers.HandleAdminBulkCancel)
	admin.Post("/bookings/:id/transition", controllers.HandleAdminTransitionBooking)
	admin.Delete("/bookings/:id", controllers.HandleAdminPurgeBooking)

	admin.Get("/stats", controllers.HandleAdminStats)
}

func NewAdminRouter() *AdminRouter {
	return &AdminRouter{}
}
