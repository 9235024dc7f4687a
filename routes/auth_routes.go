package routes

import (
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api")

	auth := api.Group("/auth", d.throttle())
	auth.Post("/register", d.Handler.Register)
	auth.Post("/login", d.Handler.Login)
}
