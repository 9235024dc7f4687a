package routes

import (
	"github.com/anjiri1684/talent_booking/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func PublicRoutes(app *fiber.App, d Deps) {
	app.Get("/health", d.Handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Post("/referrals/validate", d.throttle(), middleware.Optional(d.JWTSecret), d.Handler.ValidateReferralCode)
}
