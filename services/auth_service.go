package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/notifications"
	"github.com/anjiri1684/talent_booking/utils"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type RegisterInput struct {
	FullName     string
	Email        string
	Password     string
	Role         models.Role
	ReferralCode string
}

type AuthService struct {
	db        *gorm.DB
	referrals *ReferralService
	notifier  Notifier
	cfg       configs.JWTConfig
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewAuthService(db *gorm.DB, referrals *ReferralService, notifier Notifier, cfg configs.JWTConfig, logger *zerolog.Logger) *AuthService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &AuthService{db: db, referrals: referrals, notifier: notifier, cfg: cfg, logger: logger, now: utcNow}
}

// Register creates an organizer or talent account. A supplied referral code must be valid; the
// referral row is written in the same transaction as the user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Role != models.RoleOrganizer && in.Role != models.RoleTalent {
		return nil, workflow.Invalid("role", "must be organizer or talent")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return workflow.Invalid("email", "is already registered")
		}

		code, err := utils.GenerateUniqueReferralCode(tx)
		if err != nil {
			return err
		}
		user = models.User{
			FullName:     strings.TrimSpace(in.FullName),
			Email:        email,
			Password:     string(hashed),
			Role:         in.Role,
			ReferralCode: &code,
			IsActive:     true,
		}
		referredBy := strings.ToUpper(strings.TrimSpace(in.ReferralCode))
		if referredBy != "" {
			user.ReferredByCode = &referredBy
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return workflow.Invalid("email", "is already registered")
			}
			return err
		}
		if referredBy != "" && s.referrals != nil {
			return s.referrals.createReferral(tx, &user, referredBy)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("user registered")
	send(s.notifier, &user, notifications.Message{
		Subject: "Welcome!",
		HTML:    "<h1>Welcome!</h1><p>Thank you for registering.</p>",
	})
	return &user, nil
}

// Login checks the password and returns a signed token carrying user_id and role claims.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, &workflow.ForbiddenError{Action: "log in", Reason: "account is disabled"}
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    string(user.Role),
		"exp":     s.now().Add(s.cfg.TTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
