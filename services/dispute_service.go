package services

import (
	"context"
	"strings"
	"time"

	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/metrics"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/notifications"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type DisputeService struct {
	db       *gorm.DB
	notifier Notifier
	feed     PayoutFeed
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewDisputeService(db *gorm.DB, notifier Notifier, feed PayoutFeed, logger *zerolog.Logger) *DisputeService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &DisputeService{db: db, notifier: notifier, feed: feed, logger: logger, now: utcNow}
}

func (s *DisputeService) load(db *gorm.DB, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := db.Preload("Booking").Preload("Booking.Organizer").Preload("Booking.Talent").First(&d, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "dispute", id)
	}
	if d.Booking == nil {
		return nil, &workflow.NotFoundError{Entity: "booking", ID: d.BookingID.String()}
	}
	return &d, nil
}

func (s *DisputeService) Get(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*models.Dispute, error) {
	d, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !workflow.CanView(actor, d.Booking) {
		return nil, &workflow.ForbiddenError{Action: "view dispute"}
	}
	return d, nil
}

// Review marks an OPEN dispute as being looked at by an admin.
func (s *DisputeService) Review(ctx context.Context, actor workflow.Actor, id uuid.UUID) (*models.Dispute, error) {
	db := s.db.WithContext(ctx)
	d, err := s.load(db, id)
	if err != nil {
		return nil, err
	}
	dec, err := workflow.DecideDispute(workflow.DisputeRequest{Dispute: d, Booking: d.Booking, Action: workflow.DisputeReview, Actor: actor})
	if err != nil {
		return nil, err
	}
	if err := casStatus(db, &models.Dispute{}, "dispute", d.ID, string(dec.From), string(dec.To), nil); err != nil {
		return nil, err
	}
	metrics.IncTransition("dispute", string(dec.From), string(dec.To))
	return s.load(db, id)
}

// Resolve settles a dispute. Amounts are validated before anything is written; the dispute,
// booking, refund record and payout are then updated in one transaction.
func (s *DisputeService) Resolve(ctx context.Context, actor workflow.Actor, id uuid.UUID, res workflow.Resolution) (*models.Dispute, error) {
	db := s.db.WithContext(ctx)
	d, err := s.load(db, id)
	if err != nil {
		return nil, err
	}

	req := workflow.DisputeRequest{Dispute: d, Booking: d.Booking, Action: workflow.DisputeResolve, Actor: actor, Resolution: res}
	if _, err := workflow.DecideDispute(req); err != nil {
		return nil, err
	}

	now := s.now()
	var dec workflow.DisputeDecision
	var bookingDec workflow.BookingDecision
	var payout *models.Payout

	err = db.Transaction(func(tx *gorm.DB) error {
		var dispute models.Dispute
		if err := tx.Clauses(forUpdate).First(&dispute, "id = ?", id).Error; err != nil {
			return notFound(err, "dispute", id)
		}
		var b models.Booking
		if err := tx.Clauses(forUpdate).First(&b, "id = ?", dispute.BookingID).Error; err != nil {
			return notFound(err, "booking", dispute.BookingID)
		}

		var err error
		req.Dispute, req.Booking = &dispute, &b
		if dec, err = workflow.DecideDispute(req); err != nil {
			return err
		}
		bookingDec, err = workflow.DecideBooking(workflow.BookingRequest{
			Booking:   &b,
			Action:    workflow.ActionResolve,
			Actor:     actor,
			Now:       now,
			ResolveTo: dec.BookingTo,
		})
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"resolution_type": res.Type,
			"refund_amount":   dec.RefundAmount,
			"payout_amount":   dec.PayoutAmount,
			"resolved_by_id":  actor.ID,
			"resolved_at":     now,
		}
		if notes := strings.TrimSpace(res.Notes); notes != "" {
			updates["resolution_notes"] = notes
		}
		if err := casStatus(tx, &models.Dispute{}, "dispute", dispute.ID, string(dec.From), string(dec.To), updates); err != nil {
			return err
		}

		bookingUpdates := map[string]interface{}{}
		if bookingDec.To == models.BookingCompleted {
			bookingUpdates["completed_at"] = now
		} else {
			bookingUpdates["cancelled_at"] = now
		}
		if err := casStatus(tx, &models.Booking{}, "booking", b.ID, string(bookingDec.From), string(bookingDec.To), bookingUpdates); err != nil {
			return err
		}

		if workflow.Has(dec.Effects, workflow.EffectIssueRefund) {
			disputeID := dispute.ID
			if err := tx.Create(&models.Transaction{
				Type:      models.TransactionRefund,
				Status:    models.TransactionPending,
				BookingID: b.ID,
				DisputeID: &disputeID,
				UserID:    b.OrganizerID,
				Amount:    dec.RefundAmount,
				Currency:  b.Currency,
			}).Error; err != nil {
				return err
			}
		}

		if workflow.Has(dec.Effects, workflow.EffectQueuePayout) {
			if payout, err = queuePayout(tx, &b, dec.PayoutAmount); err != nil {
				return err
			}
			return nil
		}
		// Nothing is owed to the talent: drop a payout that was queued but never sent.
		return tx.Where("booking_id = ? AND status = ?", b.ID, models.PayoutPending).Delete(&models.Payout{}).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.IncTransition("dispute", string(dec.From), string(dec.To))
	metrics.IncTransition("booking", string(bookingDec.From), string(bookingDec.To))

	resolved, err := s.load(db, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("dispute_id", id.String()).
		Str("resolution", string(res.Type)).
		Float64("refund", dec.RefundAmount).
		Float64("payout", dec.PayoutAmount).
		Msg("dispute resolved")

	if payout != nil && s.feed != nil {
		s.feed.PublishPayout(*payout)
	}
	b := resolved.Booking
	for _, u := range []*models.User{b.Organizer, b.Talent} {
		if u != nil {
			send(s.notifier, u, notifications.DisputeResolved(u.FullName, b.Title, dec.RefundAmount, dec.PayoutAmount))
		}
	}
	return resolved, nil
}
