package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/limiter"
	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/metrics"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/notifications"
	"github.com/anjiri1684/talent_booking/payments"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var otpPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

type PayoutService struct {
	db        *gorm.DB
	provider  payments.TransferProvider
	attempts  limiter.AttemptLimiter
	referrals *ReferralService
	notifier  Notifier
	feed      PayoutFeed
	cfg       configs.PayoutConfig
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewPayoutService(db *gorm.DB, provider payments.TransferProvider, attempts limiter.AttemptLimiter, referrals *ReferralService, notifier Notifier, feed PayoutFeed, cfg configs.PayoutConfig, logger *zerolog.Logger) *PayoutService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PayoutService{
		db:        db,
		provider:  provider,
		attempts:  attempts,
		referrals: referrals,
		notifier:  notifier,
		feed:      feed,
		cfg:       cfg,
		logger:    logger,
		now:       utcNow,
	}
}

type PendingPayouts struct {
	Payouts []models.Payout `json:"payouts"`
	// Bookings are completed bookings that have no payout row yet.
	Bookings []models.Booking `json:"bookings"`
}

func (s *PayoutService) ListPending(ctx context.Context, actor workflow.Actor) (*PendingPayouts, error) {
	if !actor.IsAdmin() {
		return nil, &workflow.ForbiddenError{Action: "list payouts", Reason: "admin only"}
	}
	db := s.db.WithContext(ctx)

	out := &PendingPayouts{}
	err := db.Preload("Talent").Preload("Booking").
		Where("status IN ?", []models.PayoutStatus{models.PayoutPending, models.PayoutProcessing}).
		Order("created_at").
		Find(&out.Payouts).Error
	if err != nil {
		return nil, err
	}

	err = db.Preload("Talent").
		Where("status = ?", models.BookingCompleted).
		Where("NOT EXISTS (SELECT 1 FROM payouts WHERE payouts.booking_id = bookings.id)").
		Order("completed_at").
		Find(&out.Bookings).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PayoutService) load(db *gorm.DB, query string, arg interface{}) (*models.Payout, error) {
	var p models.Payout
	if err := db.Preload("Talent").Preload("Booking").Where(query, arg).First(&p).Error; err != nil {
		return nil, notFound(err, "payout", arg)
	}
	return &p, nil
}

// Initiate starts the transfer for a booking's payout. The row is claimed PENDING -> PROCESSING
// before the provider is called, with the payout id as the provider reference, so a retry after a
// provider error reuses the same row and a row that already has a transfer code is never re-sent.
func (s *PayoutService) Initiate(ctx context.Context, actor workflow.Actor, bookingID uuid.UUID) (*models.Payout, error) {
	if !actor.IsAdmin() {
		return nil, &workflow.ForbiddenError{Action: "initiate payout", Reason: "admin only"}
	}
	db := s.db.WithContext(ctx)

	var b models.Booking
	if err := db.Preload("Talent").First(&b, "id = ?", bookingID).Error; err != nil {
		return nil, notFound(err, "booking", bookingID)
	}
	if err := workflow.CheckPayoutEligible(&b); err != nil {
		return nil, err
	}
	if b.Talent == nil {
		return nil, &workflow.NotFoundError{Entity: "talent", ID: b.TalentID.String()}
	}
	if err := workflow.CheckPayoutPrerequisites(b.Talent); err != nil {
		return nil, err
	}
	number, err := payments.SanitizeMpesaNumber(*b.Talent.MpesaNumber)
	if err != nil {
		return nil, err
	}

	var payout models.Payout
	var dec workflow.PayoutDecision
	err = db.Transaction(func(tx *gorm.DB) error {
		// Booking before payout, the same order Transition locks in, so a dispute or cancel
		// racing this call either sees the PROCESSING payout or makes the booking ineligible.
		var locked models.Booking
		if err := tx.Clauses(forUpdate).First(&locked, "id = ?", b.ID).Error; err != nil {
			return notFound(err, "booking", b.ID)
		}
		if err := workflow.CheckPayoutEligible(&locked); err != nil {
			return err
		}

		p := models.Payout{BookingID: locked.ID, TalentID: locked.TalentID, Amount: locked.TalentAmount, Currency: locked.Currency}
		if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "booking_id"}}, DoNothing: true}).Create(&p).Error; err != nil {
			return fmt.Errorf("create payout: %w", err)
		}
		if err := tx.Clauses(forUpdate).First(&payout, "booking_id = ?", b.ID).Error; err != nil {
			return notFound(err, "payout", b.ID)
		}

		var err error
		if dec, err = workflow.DecidePayout(workflow.PayoutRequest{Payout: &payout, Action: workflow.PayoutInitiate, Actor: actor}); err != nil {
			return err
		}
		if dec.Noop {
			return nil
		}

		res := tx.Model(&models.Payout{}).
			Where("id = ? AND status = ? AND attempts = ? AND transfer_code IS NULL", payout.ID, payout.Status, payout.Attempts).
			Updates(map[string]interface{}{
				"status":       dec.To,
				"attempts":     payout.Attempts + 1,
				"mpesa_number": number,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &workflow.InvalidTransitionError{
				Entity: "payout", From: string(payout.Status), To: string(dec.To), Action: string(workflow.PayoutInitiate),
				Reason: "payout is being initiated concurrently",
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if dec.Noop {
		return s.load(db, "id = ?", payout.ID)
	}
	if dec.From != dec.To {
		metrics.IncTransition("payout", string(dec.From), string(dec.To))
	}

	transfer, err := s.provider.InitiateTransfer(ctx, payments.TransferRequest{
		Reference:     payout.ID.String(),
		Amount:        payout.Amount,
		Currency:      payout.Currency,
		MpesaNumber:   number,
		RecipientName: b.Talent.FullName,
		Reason:        fmt.Sprintf("Payout for booking %s", b.Title),
	})
	if err != nil {
		metrics.IncProviderError("paystack", "initiate_transfer")
		s.logger.Error().Err(err).Str("payout_id", payout.ID.String()).Msg("transfer initiation failed, payout left processing")
		return nil, asProviderError(err, "initiate_transfer")
	}

	res := db.Model(&models.Payout{}).
		Where("id = ? AND transfer_code IS NULL", payout.ID).
		Update("transfer_code", transfer.TransferCode)
	if res.Error != nil {
		return nil, fmt.Errorf("store transfer code: %w", res.Error)
	}

	updated, err := s.load(db, "id = ?", payout.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("payout_id", updated.ID.String()).
		Str("transfer_code", transfer.TransferCode).
		Str("provider_status", transfer.Status).
		Msg("payout transfer initiated")
	s.publish(updated)
	return updated, nil
}

// Finalize confirms a transfer with the OTP the provider sent to the admin. Calling it again after
// success returns the completed payout without contacting the provider or writing anything.
func (s *PayoutService) Finalize(ctx context.Context, actor workflow.Actor, transferCode, otp string) (*models.Payout, error) {
	if !actor.IsAdmin() {
		return nil, &workflow.ForbiddenError{Action: "finalize payout", Reason: "admin only"}
	}
	if transferCode == "" {
		return nil, workflow.Invalid("transfer_code", "is required")
	}
	if !otpPattern.MatchString(otp) {
		return nil, workflow.Invalid("otp", "must be 4 to 8 digits")
	}
	db := s.db.WithContext(ctx)

	payout, err := s.load(db, "transfer_code = ?", transferCode)
	if err != nil {
		return nil, err
	}
	dec, err := workflow.DecidePayout(workflow.PayoutRequest{Payout: payout, Action: workflow.PayoutFinalize, Actor: actor})
	if err != nil {
		return nil, err
	}
	if dec.Noop {
		return payout, nil
	}

	if s.attempts != nil {
		ok, err := s.attempts.Allow(ctx, "payout_otp:"+transferCode, s.cfg.MaxOTPAttempts, s.cfg.OTPWindow)
		if err != nil {
			return nil, fmt.Errorf("count otp attempts: %w", err)
		}
		if !ok {
			return nil, &workflow.TooManyAttemptsError{Action: "OTP"}
		}
	}

	transfer, err := s.provider.FinalizeTransfer(ctx, transferCode, otp)
	if err != nil {
		metrics.IncProviderError("paystack", "finalize_transfer")
		s.logger.Warn().Err(err).Str("payout_id", payout.ID.String()).Msg("transfer finalization failed, payout left processing")
		return nil, asProviderError(err, "finalize_transfer")
	}

	switch transfer.Outcome {
	case workflow.TransferFailed, workflow.TransferReversed:
		return s.reconcile(ctx, payout, transfer)
	case workflow.TransferSuccess, workflow.TransferPending:
		// An accepted OTP is the provider's confirmation; a still-pending transfer is settled by verify.
		if transfer.Outcome == workflow.TransferPending {
			s.logger.Info().Str("payout_id", payout.ID.String()).Msg("otp accepted, transfer pending at provider")
		}
	}
	return s.complete(ctx, payout, transfer)
}

// complete records the payout transaction and moves PROCESSING -> COMPLETED in one transaction.
func (s *PayoutService) complete(ctx context.Context, payout *models.Payout, transfer *payments.Transfer) (*models.Payout, error) {
	db := s.db.WithContext(ctx)
	now := s.now()
	alreadyDone := false

	err := db.Transaction(func(tx *gorm.DB) error {
		err := casStatus(tx, &models.Payout{}, "payout", payout.ID, string(models.PayoutProcessing), string(models.PayoutCompleted),
			map[string]interface{}{"processed_at": now})
		if err != nil {
			var current models.Payout
			if lookupErr := tx.First(&current, "id = ?", payout.ID).Error; lookupErr == nil && current.Status == models.PayoutCompleted {
				alreadyDone = true
				return nil
			}
			return err
		}

		payoutID := payout.ID
		ref := transfer.TransferCode
		return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "payout_id"}}, DoNothing: true}).
			Create(&models.Transaction{
				Type:              models.TransactionPayout,
				Status:            models.TransactionSucceeded,
				BookingID:         payout.BookingID,
				PayoutID:          &payoutID,
				UserID:            payout.TalentID,
				Amount:            payout.Amount,
				Currency:          payout.Currency,
				ProviderReference: &ref,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.load(db, "id = ?", payout.ID)
	if err != nil {
		return nil, err
	}
	if alreadyDone {
		return updated, nil
	}

	metrics.IncTransition("payout", string(models.PayoutProcessing), string(models.PayoutCompleted))
	s.logger.Info().Str("payout_id", updated.ID.String()).Float64("amount", updated.Amount).Msg("payout completed")

	if s.referrals != nil {
		bookingID := updated.BookingID
		if _, err := s.referrals.CheckConversion(ctx, updated.TalentID, models.ConversionTalentPayout, &bookingID); err != nil {
			s.logger.Error().Err(err).Str("payout_id", updated.ID.String()).Msg("referral conversion check failed")
		}
	}
	send(s.notifier, updated.Talent, notifications.PayoutUpdate(talentName(updated), updated.Amount, string(updated.Status)))
	s.publish(updated)
	return updated, nil
}

type VerifyResult struct {
	Payout         *models.Payout             `json:"payout"`
	ProviderStatus string                     `json:"provider_status,omitempty"`
	Verification   workflow.VerificationState `json:"verification"`
}

// Verify asks the provider for the transfer status and reconciles the local row with it.
func (s *PayoutService) Verify(ctx context.Context, actor workflow.Actor, payoutID uuid.UUID) (*VerifyResult, error) {
	if !actor.IsAdmin() {
		return nil, &workflow.ForbiddenError{Action: "verify payout", Reason: "admin only"}
	}
	payout, err := s.load(s.db.WithContext(ctx), "id = ?", payoutID)
	if err != nil {
		return nil, err
	}
	return s.verify(ctx, payout)
}

// ReconcileReference is used by the provider webhook. The payload is only a hint: the status is
// always fetched again from the provider.
func (s *PayoutService) ReconcileReference(ctx context.Context, reference string) (*VerifyResult, error) {
	id, err := uuid.Parse(reference)
	if err != nil {
		return nil, workflow.Invalid("reference", "is not a payout reference")
	}
	payout, err := s.load(s.db.WithContext(ctx), "id = ?", id)
	if err != nil {
		return nil, err
	}
	return s.verify(ctx, payout)
}

// ReconcileStale verifies PROCESSING payouts that have not changed for a while.
func (s *PayoutService) ReconcileStale(ctx context.Context) (int, error) {
	var stale []models.Payout
	err := s.db.WithContext(ctx).
		Where("status = ? AND transfer_code IS NOT NULL AND updated_at < ?", models.PayoutProcessing, s.now().Add(-s.cfg.ReconcileAfter)).
		Order("updated_at").
		Limit(100).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range stale {
		res, err := s.verify(ctx, &stale[i])
		if err != nil {
			s.logger.Warn().Err(err).Str("payout_id", stale[i].ID.String()).Msg("payout reconciliation failed")
			continue
		}
		if res.Payout.Status != models.PayoutProcessing {
			changed++
		}
	}
	return changed, nil
}

func (s *PayoutService) verify(ctx context.Context, payout *models.Payout) (*VerifyResult, error) {
	if payout.Status != models.PayoutProcessing || payout.TransferCode == nil {
		return &VerifyResult{Payout: payout, Verification: workflow.PayoutVerification(payout.Status)}, nil
	}

	transfer, err := s.provider.VerifyTransfer(ctx, payout.ID.String())
	if err != nil {
		metrics.IncProviderError("paystack", "verify_transfer")
		return nil, asProviderError(err, "verify_transfer")
	}
	updated, err := s.reconcile(ctx, payout, transfer)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		Payout:         updated,
		ProviderStatus: transfer.Status,
		Verification:   workflow.PayoutVerification(updated.Status),
	}, nil
}

func (s *PayoutService) reconcile(ctx context.Context, payout *models.Payout, transfer *payments.Transfer) (*models.Payout, error) {
	dec, err := workflow.DecidePayout(workflow.PayoutRequest{
		Payout:  payout,
		Action:  workflow.PayoutReconcile,
		Actor:   workflow.System,
		Outcome: transfer.Outcome,
	})
	if err != nil {
		return nil, err
	}
	if dec.Noop {
		return payout, nil
	}

	switch dec.To {
	case models.PayoutCompleted:
		return s.complete(ctx, payout, transfer)
	case models.PayoutFailed:
		reason := transfer.FailureReason
		if reason == "" {
			reason = "transfer " + transfer.Status
		}
		db := s.db.WithContext(ctx)
		err := casStatus(db, &models.Payout{}, "payout", payout.ID, string(dec.From), string(dec.To),
			map[string]interface{}{"failure_reason": reason, "processed_at": s.now()})
		if err != nil {
			return nil, err
		}
		metrics.IncTransition("payout", string(dec.From), string(dec.To))
		updated, err := s.load(db, "id = ?", payout.ID)
		if err != nil {
			return nil, err
		}
		s.logger.Warn().Str("payout_id", updated.ID.String()).Str("reason", reason).Msg("payout failed")
		send(s.notifier, updated.Talent, notifications.PayoutUpdate(talentName(updated), updated.Amount, string(updated.Status)))
		s.publish(updated)
		return updated, nil
	}
	return payout, nil
}

func (s *PayoutService) publish(p *models.Payout) {
	if s.feed != nil {
		s.feed.PublishPayout(*p)
	}
}

func talentName(p *models.Payout) string {
	if p.Talent == nil {
		return ""
	}
	return p.Talent.FullName
}

func asProviderError(err error, op string) error {
	var perr *workflow.ExternalProviderError
	if errors.As(err, &perr) {
		return err
	}
	return &workflow.ExternalProviderError{Provider: "paystack", Op: op, Retryable: true, Err: err}
}
