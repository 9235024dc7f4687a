package handlers

import (
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/gofiber/fiber/v2"
)

type ResolveDisputeRequest struct {
	ResolutionType string  `json:"resolution_type" validate:"required,oneof=organizer_favor talent_favor partial_resolution"`
	RefundAmount   float64 `json:"refund_amount"`
	PayoutAmount   float64 `json:"payout_amount"`
	Notes          string  `json:"resolution_notes" validate:"max=2000"`
}

func (h *Handler) GetDispute(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	d, err := h.Disputes.Get(c.UserContext(), a, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(d)
}

func (h *Handler) ReviewDispute(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	d, err := h.Disputes.Review(c.UserContext(), a, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(d)
}

func (h *Handler) ResolveDispute(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req ResolveDisputeRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	d, err := h.Disputes.Resolve(c.UserContext(), a, id, workflow.Resolution{
		Type:         models.ResolutionType(req.ResolutionType),
		RefundAmount: req.RefundAmount,
		PayoutAmount: req.PayoutAmount,
		Notes:        req.Notes,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(d)
}
