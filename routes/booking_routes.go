package routes

import (
	"github.com/anjiri1684/talent_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api")

	api.Get("/bookings/:id", middleware.Protected(d.JWTSecret), d.Handler.GetBooking)

	organizer := api.Group("/organizer/bookings", middleware.Protected(d.JWTSecret), middleware.OrganizerRequired())
	organizer.Post("", d.Handler.CreateBooking)
	organizer.Put("/:id", d.Handler.OrganizerBookingAction)
	organizer.Delete("/:id", d.Handler.CancelBooking)

	talent := api.Group("/talent/bookings", middleware.Protected(d.JWTSecret), middleware.TalentRequired())
	talent.Patch("/:id", d.Handler.TalentBookingAction)
}
