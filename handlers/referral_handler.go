package handlers

import (
	"github.com/anjiri1684/talent_booking/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ValidateReferralRequest struct {
	Code string `json:"code" validate:"required,alphanum,max=10"`
}

// ValidateReferralCode is public; a signed-in caller cannot validate their own code.
func (h *Handler) ValidateReferralCode(c *fiber.Ctx) error {
	var req ValidateReferralRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	caller := uuid.Nil
	if a, ok := middleware.ActorFrom(c); ok {
		caller = a.ID
	}
	check, err := h.Referrals.ValidateCode(c.UserContext(), req.Code, caller)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(check)
}

func (h *Handler) ReferralStats(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	stats, err := h.Referrals.Stats(c.UserContext(), a)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(stats)
}
