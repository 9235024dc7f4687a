package middleware

import (
	"github.com/anjiri1684/talent_booking/limiter"
	"github.com/gofiber/fiber/v2"
)

// RateLimit throttles requests per client IP.
func RateLimit(l *limiter.KeyedLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
