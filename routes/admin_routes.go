package routes

import (
	"github.com/anjiri1684/talent_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api")

	admin := api.Group("/admin", middleware.Protected(d.JWTSecret), middleware.AdminRequired())

	disputes := admin.Group("/disputes")
	disputes.Get("/:id", d.Handler.GetDispute)
	disputes.Post("/:id", d.Handler.ResolveDispute)
	disputes.Post("/:id/review", d.Handler.ReviewDispute)

	payouts := admin.Group("/payouts")
	payouts.Get("/process", d.Handler.ListPendingPayouts)
	payouts.Post("/process", d.Handler.InitiatePayout)
	payouts.Patch("/process", d.Handler.FinalizePayout)
	payouts.Post("/:id/verify", d.Handler.VerifyPayout)

	kyc := admin.Group("/kyc")
	kyc.Get("", d.Handler.ListPendingKyc)
	kyc.Post("/:id/review", d.Handler.ReviewKyc)

	admin.Post("/users/:id/mpesa/verify", d.Handler.VerifyMpesa)
}
