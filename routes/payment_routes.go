package routes

import (
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api")

	api.Post("/webhooks/paystack", d.Handler.PaystackWebhook)
}
