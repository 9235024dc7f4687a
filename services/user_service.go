package services

import (
	"context"

	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/payments"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type UserService struct {
	db     *gorm.DB
	logger *zerolog.Logger
}

func NewUserService(db *gorm.DB, logger *zerolog.Logger) *UserService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &UserService{db: db, logger: logger}
}

func (s *UserService) Me(ctx context.Context, actor workflow.Actor) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", actor.ID).Error; err != nil {
		return nil, notFound(err, "user", actor.ID)
	}
	return &u, nil
}

// RegisterMpesaNumber stores the caller's payout number. Changing the number clears its verification.
func (s *UserService) RegisterMpesaNumber(ctx context.Context, actor workflow.Actor, raw string) (*models.User, error) {
	number, err := payments.SanitizeMpesaNumber(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}
	if u.MpesaNumber != nil && *u.MpesaNumber == number {
		return u, nil
	}

	err = s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", u.ID).
		Updates(map[string]interface{}{"mpesa_number": number, "mpesa_verified": false}).Error
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("mpesa number registered")
	return s.Me(ctx, actor)
}

// VerifyMpesaNumber marks a user's registered number as confirmed.
func (s *UserService) VerifyMpesaNumber(ctx context.Context, actor workflow.Actor, userID uuid.UUID) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, &workflow.ForbiddenError{Action: "verify M-Pesa number", Reason: "admin only"}
	}
	db := s.db.WithContext(ctx)
	var u models.User
	if err := db.First(&u, "id = ?", userID).Error; err != nil {
		return nil, notFound(err, "user", userID)
	}
	if u.MpesaNumber == nil {
		return nil, &workflow.PayoutPrerequisiteError{Prerequisite: workflow.PrerequisiteMpesaNumber}
	}
	res := db.Model(&models.User{}).Where("id = ? AND mpesa_number = ?", u.ID, *u.MpesaNumber).Update("mpesa_verified", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &workflow.InvalidTransitionError{Entity: "mpesa", From: "unverified", To: "verified", Reason: "number changed concurrently"}
	}
	if err := db.First(&u, "id = ?", userID).Error; err != nil {
		return nil, notFound(err, "user", userID)
	}
	return &u, nil
}
