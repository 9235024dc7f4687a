package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/metrics"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/notifications"
	"github.com/anjiri1684/talent_booking/payments"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type BookingService struct {
	db        *gorm.DB
	verifier  payments.PaymentVerifier
	referrals *ReferralService
	notifier  Notifier
	cfg       configs.BookingConfig
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewBookingService(db *gorm.DB, verifier payments.PaymentVerifier, referrals *ReferralService, notifier Notifier, cfg configs.BookingConfig, logger *zerolog.Logger) *BookingService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &BookingService{
		db:        db,
		verifier:  verifier,
		referrals: referrals,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		now:       utcNow,
	}
}

type CreateBookingInput struct {
	TalentID        uuid.UUID
	Title           string
	Location        string
	Amount          float64
	EventDate       time.Time
	DurationMinutes int
	EventEndAt      *time.Time
}

func (s *BookingService) Create(ctx context.Context, actor workflow.Actor, in CreateBookingInput) (*models.Booking, error) {
	if actor.Role != models.RoleOrganizer {
		return nil, &workflow.ForbiddenError{Action: "create booking", Reason: "only organizers create bookings"}
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, workflow.Invalid("title", "is required")
	}
	if in.Amount <= 0 {
		return nil, workflow.Invalid("amount", "must be positive")
	}
	if err := s.checkSchedule(in.EventDate, in.DurationMinutes, in.EventEndAt); err != nil {
		return nil, err
	}

	var talent models.User
	if err := s.db.WithContext(ctx).First(&talent, "id = ?", in.TalentID).Error; err != nil {
		return nil, notFound(err, "talent", in.TalentID)
	}
	if talent.Role != models.RoleTalent || !talent.IsActive {
		return nil, workflow.Invalid("talent_id", "is not an active talent")
	}

	b := models.Booking{
		OrganizerID:     actor.ID,
		TalentID:        talent.ID,
		Title:           strings.TrimSpace(in.Title),
		Location:        strings.TrimSpace(in.Location),
		Status:          models.BookingPending,
		Amount:          round2(in.Amount),
		TalentAmount:    talentShare(in.Amount, s.cfg.CommissionRate),
		EventDate:       in.EventDate.UTC(),
		DurationMinutes: in.DurationMinutes,
		EventEndAt:      in.EventEndAt,
	}
	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_id", b.ID.String()).Str("talent_id", talent.ID.String()).Msg("booking created")
	send(s.notifier, &talent, notifications.BookingUpdate(talent.FullName, b.Title, string(b.Status), "You have a new booking request."))
	return &b, nil
}

func (s *BookingService) checkSchedule(eventDate time.Time, duration int, end *time.Time) error {
	if duration <= 0 {
		return workflow.Invalid("duration_minutes", "must be positive")
	}
	if !eventDate.After(s.now()) {
		return workflow.Invalid("event_date", "must be in the future")
	}
	if end != nil && !end.After(eventDate) {
		return workflow.Invalid("event_end_at", "must be after event_date")
	}
	return nil
}

func (s *BookingService) load(db *gorm.DB, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := db.Preload("Organizer").Preload("Talent").First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "booking", id)
	}
	return &b, nil
}

func (s *BookingService) Get(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*models.Booking, error) {
	b, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !workflow.CanView(actor, b) {
		return nil, &workflow.ForbiddenError{Action: "view booking"}
	}
	return b, nil
}

type EditBookingInput struct {
	Title           *string
	Location        *string
	Amount          *float64
	EventDate       *time.Time
	DurationMinutes *int
	EventEndAt      *time.Time
}

// Edit changes the details of a PENDING booking.
func (s *BookingService) Edit(ctx context.Context, actor workflow.Actor, id uuid.UUID, in EditBookingInput) (*models.Booking, error) {
	db := s.db.WithContext(ctx)
	b, err := s.load(db, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckEdit(b, actor); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, workflow.Invalid("title", "must not be empty")
		}
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Location != nil {
		updates["location"] = strings.TrimSpace(*in.Location)
	}
	if in.Amount != nil {
		if *in.Amount <= 0 {
			return nil, workflow.Invalid("amount", "must be positive")
		}
		updates["amount"] = round2(*in.Amount)
		updates["talent_amount"] = talentShare(*in.Amount, s.cfg.CommissionRate)
	}
	if in.EventDate != nil || in.DurationMinutes != nil || in.EventEndAt != nil {
		date, duration, end := b.EventDate, b.DurationMinutes, b.EventEndAt
		if in.EventDate != nil {
			date = in.EventDate.UTC()
			updates["event_date"] = date
		}
		if in.DurationMinutes != nil {
			duration = *in.DurationMinutes
			updates["duration_minutes"] = duration
		}
		if in.EventEndAt != nil {
			end = in.EventEndAt
			updates["event_end_at"] = *end
		}
		if err := s.checkSchedule(date, duration, end); err != nil {
			return nil, err
		}
	}
	if len(updates) == 0 {
		return nil, workflow.Invalid("body", "nothing to update")
	}

	res := db.Model(&models.Booking{}).Where("id = ? AND status = ?", id, models.BookingPending).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &workflow.InvalidTransitionError{
			Entity: "booking", From: string(b.Status), To: string(b.Status), Action: "edit",
			Reason: "record was modified concurrently",
		}
	}
	return s.load(db, id)
}

type TransitionOptions struct {
	Reason           string
	PaymentReference string
}

type TransitionResult struct {
	Booking      *models.Booking            `json:"booking"`
	Dispute      *models.Dispute            `json:"dispute,omitempty"`
	Payout       *models.Payout             `json:"payout,omitempty"`
	Verification workflow.VerificationState `json:"verification"`
	Effects      []workflow.Effect          `json:"effects"`
}

// Transition applies a booking action. The stored status changes only if the action is legal
// for the status read inside the transaction.
func (s *BookingService) Transition(ctx context.Context, actor workflow.Actor, id uuid.UUID, action workflow.BookingAction, opts TransitionOptions) (*TransitionResult, error) {
	if action == workflow.ActionResolve {
		return nil, workflow.Invalid("action", "disputes are resolved through the dispute endpoints")
	}

	db := s.db.WithContext(ctx)
	current, err := s.load(db, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req := workflow.BookingRequest{
		Booking:       current,
		Action:        action,
		Actor:         actor,
		Now:           now,
		DisputeWindow: s.cfg.DisputeWindow,
	}
	// Reject illegal requests before any provider call.
	if _, err := workflow.DecideBooking(req); err != nil {
		return nil, err
	}

	var payment *payments.PaymentVerification
	switch action {
	case workflow.ActionCapturePayment:
		if payment, err = s.verifyPayment(ctx, current, opts.PaymentReference); err != nil {
			return nil, err
		}
	case workflow.ActionDispute:
		if err := workflow.ValidateDisputeReason(opts.Reason); err != nil {
			return nil, err
		}
	}

	result := &TransitionResult{}
	var decision workflow.BookingDecision
	err = db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.Clauses(forUpdate).First(&b, "id = ?", id).Error; err != nil {
			return notFound(err, "booking", id)
		}
		req.Booking = &b
		var err error
		if decision, err = workflow.DecideBooking(req); err != nil {
			return err
		}
		if action == workflow.ActionDispute || action == workflow.ActionCancel {
			if err := checkPayoutNotSent(tx, &b, action, decision.To); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		switch decision.To {
		case models.BookingAccepted:
			updates["accepted_at"] = now
		case models.BookingCompleted:
			updates["completed_at"] = now
		case models.BookingCancelled:
			updates["cancelled_at"] = now
		}
		if payment != nil {
			updates["payment_reference"] = payment.Reference
		}
		if err := casStatus(tx, &models.Booking{}, "booking", b.ID, string(decision.From), string(decision.To), updates); err != nil {
			return err
		}

		for _, e := range decision.Effects {
			switch e {
			case workflow.EffectRecordPayment:
				ref := payment.Reference
				if err := tx.Create(&models.Transaction{
					Type:              models.TransactionBookingPayment,
					Status:            models.TransactionSucceeded,
					BookingID:         b.ID,
					UserID:            b.OrganizerID,
					Amount:            payment.Amount,
					Currency:          b.Currency,
					ProviderReference: &ref,
				}).Error; err != nil {
					return err
				}
			case workflow.EffectOpenDispute:
				d := models.Dispute{
					BookingID:  b.ID,
					RaisedByID: actor.ID,
					Status:     models.DisputeOpen,
					Reason:     strings.TrimSpace(opts.Reason),
				}
				if err := tx.Create(&d).Error; err != nil {
					return err
				}
				result.Dispute = &d
			case workflow.EffectQueuePayout:
				p, err := queuePayout(tx, &b, b.TalentAmount)
				if err != nil {
					return err
				}
				result.Payout = p
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncTransition("booking", string(decision.From), string(decision.To))

	updated, err := s.load(db, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("booking_id", id.String()).
		Str("action", string(action)).
		Str("from", string(decision.From)).
		Str("to", string(decision.To)).
		Msg("booking transition")

	s.dispatch(ctx, updated, decision, opts)

	result.Booking = updated
	result.Verification = workflow.PaymentVerification(updated)
	result.Effects = decision.Effects
	return result, nil
}

// dispatch runs the effects that happen after commit.
func (s *BookingService) dispatch(ctx context.Context, b *models.Booking, decision workflow.BookingDecision, opts TransitionOptions) {
	for _, e := range decision.Effects {
		switch e {
		case workflow.EffectCheckReferral:
			if s.referrals == nil {
				continue
			}
			if _, err := s.referrals.CheckConversion(ctx, b.OrganizerID, models.ConversionBookingPayment, &b.ID); err != nil {
				s.logger.Error().Err(err).Str("booking_id", b.ID.String()).Msg("referral conversion check failed")
			}
		case workflow.EffectNotifyOrganizer:
			if b.Organizer != nil {
				send(s.notifier, b.Organizer, notifications.BookingUpdate(b.Organizer.FullName, b.Title, string(b.Status), opts.Reason))
			}
		case workflow.EffectNotifyTalent:
			if b.Talent != nil {
				send(s.notifier, b.Talent, notifications.BookingUpdate(b.Talent.FullName, b.Title, string(b.Status), opts.Reason))
			}
		}
	}
}

func (s *BookingService) verifyPayment(ctx context.Context, b *models.Booking, reference string) (*payments.PaymentVerification, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, workflow.Invalid("payment_reference", "is required to capture payment")
	}
	if s.verifier == nil {
		return nil, errors.New("payment verification is not configured")
	}

	var used int64
	if err := s.db.WithContext(ctx).Model(&models.Booking{}).Where("payment_reference = ?", reference).Count(&used).Error; err != nil {
		return nil, err
	}
	if used > 0 {
		return nil, workflow.Invalid("payment_reference", "has already been used")
	}

	pv, err := s.verifier.VerifyPayment(ctx, reference)
	if err != nil {
		metrics.IncProviderError("paystack", "verify_payment")
		var perr *workflow.ExternalProviderError
		if !errors.As(err, &perr) {
			err = &workflow.ExternalProviderError{Provider: "paystack", Op: "verify_payment", Err: err}
		}
		return nil, err
	}
	if !pv.Succeeded() {
		return nil, workflow.Invalid("payment_reference", "payment is %s", pv.Status)
	}
	if pv.Currency != "" && !strings.EqualFold(pv.Currency, b.Currency) {
		return nil, workflow.Invalid("payment_reference", "payment currency %s does not match %s", pv.Currency, b.Currency)
	}
	if cents(pv.Amount) < cents(b.Amount) {
		return nil, workflow.Invalid("payment_reference", "paid %.2f is less than booking amount %.2f", pv.Amount, b.Amount)
	}
	if pv.Reference == "" {
		pv.Reference = reference
	}
	return pv, nil
}

// checkPayoutNotSent refuses to take money back from a booking whose talent payout is already
// with the provider. The caller must hold the booking row lock, which Initiate takes first too.
func checkPayoutNotSent(tx *gorm.DB, b *models.Booking, action workflow.BookingAction, to models.BookingStatus) error {
	var sent []models.Payout
	err := tx.Clauses(forUpdate).
		Where("booking_id = ? AND status IN ?", b.ID, []models.PayoutStatus{models.PayoutProcessing, models.PayoutCompleted}).
		Limit(1).
		Find(&sent).Error
	if err != nil {
		return err
	}
	if len(sent) > 0 {
		return &workflow.InvalidTransitionError{
			Entity: "booking", From: string(b.Status), To: string(to), Action: string(action),
			Reason: "the talent payout has already been sent",
		}
	}
	return nil
}
