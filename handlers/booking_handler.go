package handlers

import (
	"time"

	"github.com/anjiri1684/talent_booking/services"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	TalentID        string     `json:"talent_id" validate:"required,uuid"`
	Title           string     `json:"title" validate:"required,max=255"`
	Location        string     `json:"location" validate:"max=255"`
	Amount          float64    `json:"amount" validate:"required,gt=0"`
	EventDate       time.Time  `json:"event_date" validate:"required"`
	DurationMinutes int        `json:"duration_minutes" validate:"required,gt=0"`
	EventEndAt      *time.Time `json:"event_end_at,omitempty"`
}

func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req CreateBookingRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	talentID, _ := uuid.Parse(req.TalentID)

	b, err := h.Bookings.Create(c.UserContext(), a, services.CreateBookingInput{
		TalentID:        talentID,
		Title:           req.Title,
		Location:        req.Location,
		Amount:          req.Amount,
		EventDate:       req.EventDate,
		DurationMinutes: req.DurationMinutes,
		EventEndAt:      req.EventEndAt,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

func (h *Handler) GetBooking(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	b, err := h.Bookings.Get(c.UserContext(), a, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(b)
}

type TalentActionRequest struct {
	Action string `json:"action" validate:"required,oneof=accept decline cancel complete dispute"`
	Reason string `json:"reason" validate:"max=2000"`
}

// TalentBookingAction handles PATCH /api/talent/bookings/:id.
func (h *Handler) TalentBookingAction(c *fiber.Ctx) error {
	var req TalentActionRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	return h.transition(c, workflow.BookingAction(req.Action), services.TransitionOptions{Reason: req.Reason})
}

type OrganizerActionRequest struct {
	Action           string `json:"action" validate:"required,oneof=edit capture_payment complete dispute cancel"`
	Reason           string `json:"reason" validate:"max=2000"`
	PaymentReference string `json:"payment_reference" validate:"max=100"`

	Title           *string    `json:"title,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Amount          *float64   `json:"amount,omitempty"`
	EventDate       *time.Time `json:"event_date,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	EventEndAt      *time.Time `json:"event_end_at,omitempty"`
}

// OrganizerBookingAction handles PUT /api/organizer/bookings/:id.
func (h *Handler) OrganizerBookingAction(c *fiber.Ctx) error {
	var req OrganizerActionRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	if req.Action != "edit" {
		return h.transition(c, workflow.BookingAction(req.Action), services.TransitionOptions{
			Reason:           req.Reason,
			PaymentReference: req.PaymentReference,
		})
	}

	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	b, err := h.Bookings.Edit(c.UserContext(), a, id, services.EditBookingInput{
		Title:           req.Title,
		Location:        req.Location,
		Amount:          req.Amount,
		EventDate:       req.EventDate,
		DurationMinutes: req.DurationMinutes,
		EventEndAt:      req.EventEndAt,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(b)
}

// CancelBooking handles DELETE /api/organizer/bookings/:id.
func (h *Handler) CancelBooking(c *fiber.Ctx) error {
	return h.transition(c, workflow.ActionCancel, services.TransitionOptions{Reason: c.Query("reason")})
}

func (h *Handler) transition(c *fiber.Ctx, action workflow.BookingAction, opts services.TransitionOptions) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	res, err := h.Bookings.Transition(c.UserContext(), a, id, action, opts)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}
