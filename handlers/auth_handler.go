package handlers

import (
	"time"

	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/services"
	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	FullName     string `json:"full_name" validate:"required,min=3,max=255"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	Role         string `json:"role" validate:"required,oneof=organizer talent"`
	ReferralCode string `json:"referral_code,omitempty" validate:"omitempty,alphanum,max=10"`
}

type UserResponse struct {
	ID                 string    `json:"id"`
	FullName           string    `json:"full_name"`
	Email              string    `json:"email"`
	Role               string    `json:"role"`
	ReferralCode       string    `json:"referral_code,omitempty"`
	VerificationStatus string    `json:"verification_status"`
	CreatedAt          time.Time `json:"created_at"`
}

func userResponse(u *models.User) UserResponse {
	r := UserResponse{
		ID:                 u.ID.String(),
		FullName:           u.FullName,
		Email:              u.Email,
		Role:               string(u.Role),
		VerificationStatus: string(u.VerificationStatus),
		CreatedAt:          u.CreatedAt,
	}
	if u.ReferralCode != nil {
		r.ReferralCode = *u.ReferralCode
	}
	return r
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	u, err := h.Auth.Register(c.UserContext(), services.RegisterInput{
		FullName:     req.FullName,
		Email:        req.Email,
		Password:     req.Password,
		Role:         models.Role(req.Role),
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(userResponse(u))
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	token, u, err := h.Auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": userResponse(u)})
}
