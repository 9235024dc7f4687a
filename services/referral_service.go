package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/metrics"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/notifications"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type ReferralService struct {
	db       *gorm.DB
	cfg      configs.ReferralConfig
	notifier Notifier
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewReferralService(db *gorm.DB, cfg configs.ReferralConfig, notifier Notifier, logger *zerolog.Logger) *ReferralService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ReferralService{db: db, cfg: cfg, notifier: notifier, logger: logger, now: utcNow}
}

type CodeCheck struct {
	Valid        bool   `json:"valid"`
	ReferrerName string `json:"referrer_name,omitempty"`
}

// ValidateCode reports whether code belongs to an active user other than the caller.
func (s *ReferralService) ValidateCode(ctx context.Context, code string, callerID uuid.UUID) (*CodeCheck, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, workflow.Invalid("code", "is required")
	}

	var referrer models.User
	err := s.db.WithContext(ctx).Where("referral_code = ? AND is_active = ?", code, true).First(&referrer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &CodeCheck{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up referral code: %w", err)
	}
	if callerID != uuid.Nil && referrer.ID == callerID {
		return &CodeCheck{}, nil
	}
	return &CodeCheck{Valid: true, ReferrerName: referrer.FullName}, nil
}

// createReferral links a newly registered user to the owner of code. It runs inside the signup transaction.
func (s *ReferralService) createReferral(tx *gorm.DB, referred *models.User, code string) error {
	var referrer models.User
	err := tx.Where("referral_code = ? AND is_active = ?", code, true).First(&referrer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return workflow.Invalid("referral_code", "is not valid")
	}
	if err != nil {
		return fmt.Errorf("look up referral code: %w", err)
	}
	if referrer.ID == referred.ID {
		return workflow.Invalid("referral_code", "cannot refer yourself")
	}
	return tx.Create(&models.Referral{ReferrerID: referrer.ID, ReferredID: referred.ID}).Error
}

// CheckConversion converts the PENDING referral of userID if the trigger qualifies. It reports
// whether this call did the conversion; concurrent callers race on a single conditional update so
// at most one of them wins.
func (s *ReferralService) CheckConversion(ctx context.Context, userID uuid.UUID, ct models.ConversionType, bookingID *uuid.UUID) (bool, error) {
	if _, err := models.ParseConversionType(string(ct)); err != nil {
		return false, workflow.Invalid("conversion_type", "%v", err)
	}
	db := s.db.WithContext(ctx)

	switch ct {
	case models.ConversionBookingPayment:
		if bookingID == nil {
			return false, workflow.Invalid("booking_id", "is required for booking payments")
		}
		var b models.Booking
		if err := db.First(&b, "id = ?", *bookingID).Error; err != nil {
			return false, notFound(err, "booking", *bookingID)
		}
		if b.OrganizerID != userID && b.TalentID != userID {
			return false, &workflow.ForbiddenError{Action: "convert referral", Reason: "user is not a party to the booking"}
		}
		if cents(b.Amount) < cents(s.cfg.MinBookingAmount) {
			return false, nil
		}
	case models.ConversionTalentPayout:
		if bookingID != nil {
			var b models.Booking
			if err := db.First(&b, "id = ?", *bookingID).Error; err != nil {
				return false, notFound(err, "booking", *bookingID)
			}
			if b.TalentID != userID {
				return false, &workflow.ForbiddenError{Action: "convert referral", Reason: "user is not the booking's talent"}
			}
		}
	}

	now := s.now()
	res := db.Model(&models.Referral{}).
		Where("referred_id = ? AND status = ?", userID, models.ReferralPending).
		Updates(map[string]interface{}{
			"status":                models.ReferralConverted,
			"reward_status":         models.RewardPending,
			"referrer_reward":       round2(s.cfg.ReferrerReward),
			"referred_reward":       round2(s.cfg.ReferredReward),
			"conversion_type":       ct,
			"conversion_booking_id": bookingID,
			"converted_at":          now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("convert referral: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	metrics.IncTransition("referral", string(models.ReferralPending), string(models.ReferralConverted))
	metrics.IncReferralConversion(string(ct))
	s.logger.Info().Str("referred_id", userID.String()).Str("conversion_type", string(ct)).Msg("referral converted")

	var ref models.Referral
	if err := db.Preload("Referrer").Preload("Referred").Where("referred_id = ?", userID).First(&ref).Error; err == nil && ref.Referrer != nil {
		referredName := ""
		if ref.Referred != nil {
			referredName = ref.Referred.FullName
		}
		send(s.notifier, ref.Referrer, notifications.ReferralConverted(ref.Referrer.FullName, referredName, ref.ReferrerReward))
	}
	return true, nil
}

type CreditSummary struct {
	Credited int `json:"credited"`
	Failed   int `json:"failed"`
}

// CreditPendingRewards credits converted referrals whose reward is still pending. Each referral is
// claimed PENDING -> CREDITED in the same transaction that adds to the balances, so running the job
// twice never credits a referral twice.
func (s *ReferralService) CreditPendingRewards(ctx context.Context) (CreditSummary, error) {
	var summary CreditSummary
	var batch []models.Referral
	err := s.db.WithContext(ctx).
		Where("status = ? AND reward_status = ?", models.ReferralConverted, models.RewardPending).
		Order("converted_at").
		Limit(s.cfg.CreditBatchSize).
		Find(&batch).Error
	if err != nil {
		return summary, fmt.Errorf("load pending rewards: %w", err)
	}

	for i := range batch {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		credited, err := s.credit(ctx, &batch[i])
		switch {
		case err != nil:
			summary.Failed++
			metrics.IncRewardCredit("failed")
			s.logger.Error().Err(err).Str("referral_id", batch[i].ID.String()).Msg("reward credit failed")
			s.markFailed(ctx, batch[i].ID, err)
		case credited:
			summary.Credited++
			metrics.IncRewardCredit("credited")
		}
	}
	return summary, nil
}

func (s *ReferralService) credit(ctx context.Context, ref *models.Referral) (bool, error) {
	credited := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Referral{}).
			Where("id = ? AND status = ? AND reward_status = ?", ref.ID, models.ReferralConverted, models.RewardPending).
			Updates(map[string]interface{}{"reward_status": models.RewardCredited, "credited_at": s.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		for _, c := range []struct {
			user   uuid.UUID
			amount float64
		}{{ref.ReferrerID, ref.ReferrerReward}, {ref.ReferredID, ref.ReferredReward}} {
			if c.amount <= 0 {
				continue
			}
			res := tx.Model(&models.User{}).Where("id = ?", c.user).
				Update("credit_balance", gorm.Expr("credit_balance + ?", c.amount))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &workflow.NotFoundError{Entity: "user", ID: c.user.String()}
			}
		}
		credited = true
		return nil
	})
	return credited, err
}

func (s *ReferralService) markFailed(ctx context.Context, id uuid.UUID, cause error) {
	reason := cause.Error()
	err := s.db.WithContext(ctx).Model(&models.Referral{}).
		Where("id = ? AND reward_status = ?", id, models.RewardPending).
		Updates(map[string]interface{}{"reward_status": models.RewardFailed, "failure_reason": reason}).Error
	if err != nil {
		s.logger.Error().Err(err).Str("referral_id", id.String()).Msg("could not mark reward failed")
	}
}

// CleanupExpired removes referrals that never converted within the expiry period.
func (s *ReferralService) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -s.cfg.ExpiryDays)
	res := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.ReferralPending, cutoff).
		Delete(&models.Referral{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired referrals: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Info().Int64("deleted", res.RowsAffected).Msg("expired referrals removed")
	}
	return res.RowsAffected, nil
}

type ReferralStats struct {
	Code      string  `json:"code"`
	Pending   int64   `json:"pending"`
	Converted int64   `json:"converted"`
	Balance   float64 `json:"credit_balance"`
}

// Stats returns the caller's referral code and conversion counts.
func (s *ReferralService) Stats(ctx context.Context, actor workflow.Actor) (*ReferralStats, error) {
	db := s.db.WithContext(ctx)
	var u models.User
	if err := db.First(&u, "id = ?", actor.ID).Error; err != nil {
		return nil, notFound(err, "user", actor.ID)
	}
	out := &ReferralStats{Balance: u.CreditBalance}
	if u.ReferralCode != nil {
		out.Code = *u.ReferralCode
	}
	if err := db.Model(&models.Referral{}).Where("referrer_id = ? AND status = ?", u.ID, models.ReferralPending).Count(&out.Pending).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Referral{}).Where("referrer_id = ? AND status = ?", u.ID, models.ReferralConverted).Count(&out.Converted).Error; err != nil {
		return nil, err
	}
	return out, nil
}
