package workflow

import (
	"math"
	"strings"

	"github.com/anjiri1684/talent_booking/models"
)

type DisputeAction string

const (
	DisputeReview  DisputeAction = "review"
	DisputeResolve DisputeAction = "resolve"
)

type Resolution struct {
	Type         models.ResolutionType
	RefundAmount float64
	PayoutAmount float64
	Notes        string
}

type DisputeRequest struct {
	Dispute    *models.Dispute
	Booking    *models.Booking
	Action     DisputeAction
	Actor      Actor
	Resolution Resolution
}

type DisputeDecision struct {
	From         models.DisputeStatus
	To           models.DisputeStatus
	RefundAmount float64
	PayoutAmount float64
	// BookingTo is set on resolution.
	BookingTo models.BookingStatus
	Effects   []Effect
}

// ValidateDisputeReason checks the free-text reason supplied when a dispute is raised.
func ValidateDisputeReason(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Invalid("reason", "is required to raise a dispute")
	}
	if len(reason) > 2000 {
		return Invalid("reason", "must be at most 2000 characters")
	}
	return nil
}

func DecideDispute(req DisputeRequest) (DisputeDecision, error) {
	d, b := req.Dispute, req.Booking
	if d == nil || b == nil {
		return DisputeDecision{}, Invalid("dispute", "dispute and booking are required")
	}
	if !d.Status.Valid() {
		return DisputeDecision{}, Invalid("status", "unknown dispute status %q", d.Status)
	}
	if !req.Actor.IsAdmin() {
		return DisputeDecision{}, &ForbiddenError{Action: string(req.Action) + " dispute", Reason: "admin only"}
	}

	switch req.Action {
	case DisputeReview:
		if d.Status != models.DisputeOpen {
			return DisputeDecision{}, &InvalidTransitionError{
				Entity: "dispute", From: string(d.Status), To: string(models.DisputeUnderReview), Action: string(req.Action),
			}
		}
		return DisputeDecision{From: d.Status, To: models.DisputeUnderReview}, nil
	case DisputeResolve:
		return decideResolution(d, b, req.Resolution)
	}
	return DisputeDecision{}, Invalid("action", "unknown dispute action %q", req.Action)
}

func decideResolution(d *models.Dispute, b *models.Booking, res Resolution) (DisputeDecision, error) {
	if _, err := models.ParseResolutionType(string(res.Type)); err != nil {
		return DisputeDecision{}, Invalid("resolution_type", "%v", err)
	}

	var dec DisputeDecision
	switch res.Type {
	case models.ResolutionOrganizerFavor:
		dec = DisputeDecision{
			To:           models.DisputeResolvedOrganizerFavor,
			RefundAmount: b.Amount,
			BookingTo:    models.BookingCancelled,
		}
	case models.ResolutionTalentFavor:
		dec = DisputeDecision{
			To:           models.DisputeResolvedTalentFavor,
			PayoutAmount: b.TalentAmount,
			BookingTo:    models.BookingCompleted,
		}
	case models.ResolutionPartial:
		if err := checkPartialAmounts(res.RefundAmount, res.PayoutAmount, b.Amount); err != nil {
			return DisputeDecision{}, err
		}
		dec = DisputeDecision{
			To:           models.DisputeResolvedPartial,
			RefundAmount: res.RefundAmount,
			PayoutAmount: res.PayoutAmount,
			BookingTo:    models.BookingCancelled,
		}
		if res.PayoutAmount > 0 {
			dec.BookingTo = models.BookingCompleted
		}
	}

	if d.Status != models.DisputeOpen && d.Status != models.DisputeUnderReview {
		return DisputeDecision{}, &InvalidTransitionError{
			Entity: "dispute", From: string(d.Status), To: string(dec.To), Action: string(DisputeResolve),
			Reason: "dispute is already resolved",
		}
	}

	dec.From = d.Status
	if dec.RefundAmount > 0 {
		dec.Effects = append(dec.Effects, EffectIssueRefund)
	}
	if dec.PayoutAmount > 0 {
		dec.Effects = append(dec.Effects, EffectQueuePayout)
	}
	dec.Effects = append(dec.Effects, EffectNotifyOrganizer, EffectNotifyTalent)
	return dec, nil
}

func checkPartialAmounts(refund, payout, amount float64) error {
	if math.IsNaN(refund) || math.IsInf(refund, 0) || refund < 0 {
		return Invalid("refund_amount", "must be a non-negative amount")
	}
	if math.IsNaN(payout) || math.IsInf(payout, 0) || payout < 0 {
		return Invalid("payout_amount", "must be a non-negative amount")
	}
	if cents(refund)+cents(payout) > cents(amount) {
		return Invalid("refund_amount", "refund %.2f plus payout %.2f exceeds booking amount %.2f", refund, payout, amount)
	}
	return nil
}

func cents(v float64) int64 { return int64(math.Round(v * 100)) }
