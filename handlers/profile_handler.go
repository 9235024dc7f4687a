package handlers

import (
	"github.com/anjiri1684/talent_booking/models"
	"github.com/gofiber/fiber/v2"
)

type MpesaRequest struct {
	MpesaNumber string `json:"mpesa_number" validate:"required,max=20"`
}

type ProfileResponse struct {
	UserResponse
	MpesaNumber   string  `json:"mpesa_number,omitempty"`
	MpesaVerified bool    `json:"mpesa_verified"`
	CreditBalance float64 `json:"credit_balance"`
}

func profileResponse(u *models.User) ProfileResponse {
	r := ProfileResponse{
		UserResponse:  userResponse(u),
		MpesaVerified: u.MpesaVerified,
		CreditBalance: u.CreditBalance,
	}
	if u.MpesaNumber != nil {
		r.MpesaNumber = *u.MpesaNumber
	}
	return r
}

func (h *Handler) Me(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	u, err := h.Users.Me(c.UserContext(), a)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(profileResponse(u))
}

func (h *Handler) RegisterMpesa(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req MpesaRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	u, err := h.Users.RegisterMpesaNumber(c.UserContext(), a, req.MpesaNumber)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(profileResponse(u))
}

func (h *Handler) VerifyMpesa(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	u, err := h.Users.VerifyMpesaNumber(c.UserContext(), a, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(profileResponse(u))
}
