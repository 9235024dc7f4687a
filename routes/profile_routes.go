package routes

import (
	"github.com/anjiri1684/talent_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api")

	me := api.Group("/me", middleware.Protected(d.JWTSecret))
	me.Get("", d.Handler.Me)
	me.Put("/mpesa", d.Handler.RegisterMpesa)
	me.Get("/kyc-submit", d.Handler.GetKycStatus)
	me.Post("/kyc-submit", d.Handler.SubmitKyc)
	me.Get("/referrals", d.Handler.ReferralStats)
}
