package handlers

import (
	"github.com/anjiri1684/talent_booking/payments"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InitiatePayoutRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
}

type FinalizePayoutRequest struct {
	TransferCode string `json:"transfer_code" validate:"required,max=100"`
	OTP          string `json:"otp" validate:"required,numeric,min=4,max=8"`
}

func (h *Handler) ListPendingPayouts(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	out, err := h.Payouts.ListPending(c.UserContext(), a)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) InitiatePayout(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req InitiatePayoutRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	bookingID, _ := uuid.Parse(req.BookingID)

	p, err := h.Payouts.Initiate(c.UserContext(), a, bookingID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"payout": p, "requires_otp": p.TransferCode != nil})
}

func (h *Handler) FinalizePayout(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req FinalizePayoutRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	p, err := h.Payouts.Finalize(c.UserContext(), a, req.TransferCode, req.OTP)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"payout": p})
}

func (h *Handler) VerifyPayout(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	res, err := h.Payouts.Verify(c.UserContext(), a, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// PaystackWebhook acknowledges signed transfer events and reconciles the payout they name.
// The event status is not trusted; the payout service asks the provider again.
func (h *Handler) PaystackWebhook(c *fiber.Ctx) error {
	body := c.Body()
	if h.Webhooks == nil || !h.Webhooks.VerifySignature(body, c.Get("x-paystack-signature")) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})
	}
	ev, err := payments.ParseWebhookEvent(body)
	if err != nil {
		return h.fail(c, err)
	}
	if !ev.IsTransfer() || ev.Data.Reference == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	if _, err := h.Payouts.ReconcileReference(c.UserContext(), ev.Data.Reference); err != nil {
		h.logger().Warn().Err(err).Str("event", ev.Event).Str("reference", ev.Data.Reference).Msg("webhook reconciliation failed")
		// Provider retries on non-2xx; unknown references are acknowledged.
		if isClientError(err) {
			return c.SendStatus(fiber.StatusOK)
		}
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
