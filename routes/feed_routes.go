package routes

import (
	"github.com/anjiri1684/talent_booking/handlers"
	"github.com/anjiri1684/talent_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func FeedRoutes(app *fiber.App, d Deps) {
	ws := app.Group("/ws", handlers.RequireUpgrade)
	ws.Get("/admin/payouts", middleware.ProtectedSocket(d.JWTSecret), middleware.AdminRequired(), d.Handler.PayoutFeed())
}
