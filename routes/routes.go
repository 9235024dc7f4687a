package routes

import (
	"github.com/anjiri1684/talent_booking/handlers"
	"github.com/anjiri1684/talent_booking/limiter"
	"github.com/anjiri1684/talent_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

// Deps carries what the route groups need besides the app itself.
type Deps struct {
	Handler   *handlers.Handler
	JWTSecret string
	// Public throttles unauthenticated endpoints per client IP. Nil disables it.
	Public *limiter.KeyedLimiter
}

// Register mounts every route group on app.
func Register(app *fiber.App, d Deps) {
	PublicRoutes(app, d)
	AuthRoutes(app, d)
	ProfileRoutes(app, d)
	BookingRoutes(app, d)
	AdminRoutes(app, d)
	PaymentRoutes(app, d)
	FeedRoutes(app, d)
}

func (d Deps) throttle() fiber.Handler {
	if d.Public == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.RateLimit(d.Public)
}
