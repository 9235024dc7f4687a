package handlers

import (
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// RequireUpgrade rejects plain HTTP requests on websocket routes.
func RequireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// PayoutFeed streams payout status changes to the admin authenticated before the upgrade.
func (h *Handler) PayoutFeed() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		a, ok := c.Locals("actor").(workflow.Actor)
		if !ok || !a.IsAdmin() {
			_ = c.WriteJSON(fiber.Map{"error": "admin access required"})
			_ = c.Close()
			return
		}
		h.Feed.Serve(c, a.ID)
	})
}
