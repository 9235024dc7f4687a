package handlers

import (
	"errors"

	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/middleware"
	"github.com/anjiri1684/talent_booking/services"
	"github.com/anjiri1684/talent_booking/websocket"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var validate = validator.New()

// WebhookVerifier authenticates provider callbacks.
type WebhookVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

type Handler struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Bookings  *services.BookingService
	Disputes  *services.DisputeService
	Payouts   *services.PayoutService
	Kyc       *services.KycService
	Referrals *services.ReferralService
	Webhooks  WebhookVerifier
	Feed      *websocket.Hub

	// MaxDocumentBytes bounds how much of each uploaded KYC file is read.
	MaxDocumentBytes int64
	Logger           *zerolog.Logger
}

func (h *Handler) logger() *zerolog.Logger {
	if h.Logger == nil {
		return logging.Nop()
	}
	return h.Logger
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return workflow.Invalid("body", "cannot parse JSON")
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return workflow.Invalid(verrs[0].Field(), "failed %s validation", verrs[0].Tag())
		}
		return workflow.Invalid("body", "%v", err)
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, workflow.Invalid(name, "must be a UUID")
	}
	return id, nil
}

func actor(c *fiber.Ctx) (workflow.Actor, error) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		return workflow.Actor{}, fiber.ErrUnauthorized
	}
	return a, nil
}

// fail writes err as {"error": message} with the status its type maps to.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var (
		validation *workflow.ValidationError
		forbidden  *workflow.ForbiddenError
		notFound   *workflow.NotFoundError
		invalid    *workflow.InvalidTransitionError
		prereq     *workflow.PayoutPrerequisiteError
		provider   *workflow.ExternalProviderError
		attempts   *workflow.TooManyAttemptsError
		fiberErr   *fiber.Error
	)
	switch {
	case errors.As(err, &validation):
		body := fiber.Map{"error": validation.Error()}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.As(err, &forbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": forbidden.Error()})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFound.Error()})
	case errors.As(err, &invalid):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": invalid.Error(),
			"from":  invalid.From,
			"to":    invalid.To,
		})
	case errors.As(err, &prereq):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":        prereq.Error(),
			"prerequisite": prereq.Prerequisite,
		})
	case errors.As(err, &provider):
		h.logger().Warn().Err(err).Str("path", c.Path()).Msg("provider call failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":     provider.Error(),
			"retryable": provider.Retryable,
		})
	case errors.As(err, &attempts):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": attempts.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}
	h.logger().Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func isClientError(err error) bool {
	var (
		validation *workflow.ValidationError
		notFound   *workflow.NotFoundError
		invalid    *workflow.InvalidTransitionError
	)
	return errors.As(err, &validation) || errors.As(err, &notFound) || errors.As(err, &invalid)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
