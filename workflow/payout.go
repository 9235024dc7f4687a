package workflow

import (
	"github.com/anjiri1684/talent_booking/models"
)

type PayoutAction string

const (
	PayoutInitiate  PayoutAction = "initiate"
	PayoutFinalize  PayoutAction = "finalize"
	PayoutReconcile PayoutAction = "reconcile"
)

// TransferOutcome is the provider's view of a transfer, normalised.
type TransferOutcome string

const (
	TransferPending  TransferOutcome = "pending"
	TransferOTP      TransferOutcome = "otp"
	TransferSuccess  TransferOutcome = "success"
	TransferFailed   TransferOutcome = "failed"
	TransferReversed TransferOutcome = "reversed"
)

type PayoutRequest struct {
	Payout *models.Payout
	Action PayoutAction
	Actor  Actor
	// Outcome is what the provider reported, for reconcile.
	Outcome TransferOutcome
}

type PayoutDecision struct {
	From models.PayoutStatus
	To   models.PayoutStatus
	// Noop means the request is already satisfied and nothing must be written or sent.
	Noop    bool
	Effects []Effect
}

func DecidePayout(req PayoutRequest) (PayoutDecision, error) {
	p := req.Payout
	if p == nil {
		return PayoutDecision{}, Invalid("payout", "is required")
	}
	if !p.Status.Valid() {
		return PayoutDecision{}, Invalid("status", "unknown payout status %q", p.Status)
	}
	if !req.Actor.IsAdmin() {
		return PayoutDecision{}, &ForbiddenError{Action: string(req.Action) + " payout", Reason: "admin only"}
	}

	same := PayoutDecision{From: p.Status, To: p.Status, Noop: true}
	hasCode := p.TransferCode != nil && *p.TransferCode != ""

	switch req.Action {
	case PayoutInitiate:
		switch p.Status {
		case models.PayoutPending:
			return PayoutDecision{From: p.Status, To: models.PayoutProcessing}, nil
		case models.PayoutProcessing:
			if hasCode {
				return same, nil
			}
			// An earlier provider call failed before a transfer existed; retry the same row.
			return PayoutDecision{From: p.Status, To: models.PayoutProcessing}, nil
		case models.PayoutCompleted, models.PayoutFailed:
			return PayoutDecision{}, &InvalidTransitionError{
				Entity: "payout", From: string(p.Status), To: string(models.PayoutProcessing), Action: string(req.Action),
			}
		}
	case PayoutFinalize:
		switch p.Status {
		case models.PayoutCompleted:
			return same, nil
		case models.PayoutProcessing:
			if !hasCode {
				return PayoutDecision{}, &InvalidTransitionError{
					Entity: "payout", From: string(p.Status), To: string(models.PayoutCompleted), Action: string(req.Action),
					Reason: "transfer has not been initiated",
				}
			}
			return PayoutDecision{From: p.Status, To: models.PayoutCompleted, Effects: []Effect{EffectRecordPayout, EffectCheckReferral, EffectNotifyTalent}}, nil
		case models.PayoutPending, models.PayoutFailed:
			return PayoutDecision{}, &InvalidTransitionError{
				Entity: "payout", From: string(p.Status), To: string(models.PayoutCompleted), Action: string(req.Action),
			}
		}
	case PayoutReconcile:
		if p.Status != models.PayoutProcessing || !hasCode {
			return same, nil
		}
		switch req.Outcome {
		case TransferSuccess:
			return PayoutDecision{From: p.Status, To: models.PayoutCompleted, Effects: []Effect{EffectRecordPayout, EffectCheckReferral, EffectNotifyTalent}}, nil
		case TransferFailed, TransferReversed:
			return PayoutDecision{From: p.Status, To: models.PayoutFailed, Effects: []Effect{EffectNotifyTalent}}, nil
		case TransferPending, TransferOTP:
			return same, nil
		}
		return PayoutDecision{}, Invalid("outcome", "unknown transfer outcome %q", req.Outcome)
	}
	return PayoutDecision{}, Invalid("action", "unknown payout action %q", req.Action)
}

// CheckPayoutEligible rejects bookings whose state does not allow paying the talent.
func CheckPayoutEligible(b *models.Booking) error {
	switch b.Status {
	case models.BookingAccepted, models.BookingInProgress, models.BookingCompleted:
		return nil
	case models.BookingPending, models.BookingDeclined, models.BookingCancelled, models.BookingDisputed:
		return &InvalidTransitionError{
			Entity: "payout", From: string(b.Status), To: string(models.PayoutProcessing), Action: string(PayoutInitiate),
			Reason: "booking is not eligible for payout",
		}
	}
	return Invalid("status", "unknown booking status %q", b.Status)
}

// CheckPayoutPrerequisites verifies the talent can receive money, in a fixed order.
func CheckPayoutPrerequisites(talent *models.User) error {
	if talent.MpesaNumber == nil || *talent.MpesaNumber == "" {
		return &PayoutPrerequisiteError{Prerequisite: PrerequisiteMpesaNumber}
	}
	if !talent.MpesaVerified {
		return &PayoutPrerequisiteError{Prerequisite: PrerequisiteMpesaVerification}
	}
	if talent.VerificationStatus != models.KycVerified {
		return &PayoutPrerequisiteError{Prerequisite: PrerequisiteKycVerification}
	}
	return nil
}
