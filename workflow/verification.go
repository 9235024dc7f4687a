package workflow

import (
	"fmt"

	"github.com/anjiri1684/talent_booking/models"
)

// VerificationState is what a client shows while a payment or payout is being confirmed.
// Retries are explicit events; there is no timer-driven transition.
type VerificationState string

const (
	VerificationIdle      VerificationState = "idle"
	VerificationVerifying VerificationState = "verifying"
	VerificationVerified  VerificationState = "verified"
	VerificationFailed    VerificationState = "failed"
)

type VerificationEvent string

const (
	EventStart     VerificationEvent = "start"
	EventConfirmed VerificationEvent = "confirmed"
	EventRejected  VerificationEvent = "rejected"
	EventRetry     VerificationEvent = "retry"
)

func (s VerificationState) Next(ev VerificationEvent) (VerificationState, error) {
	switch s {
	case VerificationIdle:
		if ev == EventStart {
			return VerificationVerifying, nil
		}
	case VerificationVerifying:
		switch ev {
		case EventConfirmed:
			return VerificationVerified, nil
		case EventRejected:
			return VerificationFailed, nil
		}
	case VerificationFailed:
		if ev == EventRetry {
			return VerificationVerifying, nil
		}
	case VerificationVerified:
	default:
		return "", fmt.Errorf("unknown verification state %q", s)
	}
	return "", &InvalidTransitionError{Entity: "verification", From: string(s), To: "?", Action: string(ev)}
}

// Replay folds events over VerificationIdle. It stops at the first event the state rejects.
func Replay(events ...VerificationEvent) (VerificationState, error) {
	s := VerificationIdle
	for _, ev := range events {
		next, err := s.Next(ev)
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}

// payoutEvents is the event history a stored payout status implies.
var payoutEvents = map[models.PayoutStatus][]VerificationEvent{
	models.PayoutPending:    nil,
	models.PayoutProcessing: {EventStart},
	models.PayoutCompleted:  {EventStart, EventConfirmed},
	models.PayoutFailed:     {EventStart, EventRejected},
}

// PayoutVerification maps a stored payout status onto the client state.
func PayoutVerification(status models.PayoutStatus) VerificationState {
	s, err := Replay(payoutEvents[status]...)
	if err != nil {
		return VerificationIdle
	}
	return s
}

// PaymentVerification is verified once a captured payment reference is stored on the booking.
// Capture checks the payment with the provider before storing the reference, so there is no
// stored state between the two.
func PaymentVerification(b *models.Booking) VerificationState {
	if b.PaymentReference == nil {
		return VerificationIdle
	}
	s, err := Replay(EventStart, EventConfirmed)
	if err != nil {
		return VerificationIdle
	}
	return s
}
