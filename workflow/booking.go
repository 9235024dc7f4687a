package workflow

import (
	"fmt"
	"time"

	"github.com/anjiri1684/talent_booking/models"
)

type BookingAction string

const (
	ActionAccept         BookingAction = "accept"
	ActionDecline        BookingAction = "decline"
	ActionCancel         BookingAction = "cancel"
	ActionCapturePayment BookingAction = "capture_payment"
	ActionComplete       BookingAction = "complete"
	ActionDispute        BookingAction = "dispute"
	ActionResolve        BookingAction = "resolve"
)

var BookingActions = []BookingAction{
	ActionAccept, ActionDecline, ActionCancel, ActionCapturePayment,
	ActionComplete, ActionDispute, ActionResolve,
}

func ParseBookingAction(s string) (BookingAction, error) {
	a := BookingAction(s)
	if _, ok := a.target(); !ok {
		return "", Invalid("action", "unknown booking action %q", s)
	}
	return a, nil
}

// target is the status an action leads to, used to name the requested status in errors.
func (a BookingAction) target() (models.BookingStatus, bool) {
	switch a {
	case ActionAccept:
		return models.BookingAccepted, true
	case ActionDecline:
		return models.BookingDeclined, true
	case ActionCancel:
		return models.BookingCancelled, true
	case ActionCapturePayment:
		return models.BookingInProgress, true
	case ActionComplete, ActionResolve:
		return models.BookingCompleted, true
	case ActionDispute:
		return models.BookingDisputed, true
	}
	return "", false
}

// notifyCounterparty is expanded into a concrete notify effect once the actor is known.
const notifyCounterparty Effect = "notify_counterparty"

type bookingEdge struct {
	to      models.BookingStatus
	parties []party
	effects []Effect
}

var (
	pendingEdges = map[BookingAction]bookingEdge{
		ActionAccept:  {models.BookingAccepted, []party{partyTalent}, []Effect{EffectNotifyOrganizer}},
		ActionDecline: {models.BookingDeclined, []party{partyTalent}, []Effect{EffectNotifyOrganizer}},
		ActionCancel:  {models.BookingCancelled, []party{partyOrganizer}, []Effect{EffectNotifyTalent}},
	}
	acceptedEdges = map[BookingAction]bookingEdge{
		ActionCapturePayment: {models.BookingInProgress, []party{partyOrganizer},
			[]Effect{EffectRecordPayment, EffectCheckReferral, EffectNotifyTalent}},
		ActionCancel: {models.BookingCancelled, []party{partyOrganizer, partyTalent}, []Effect{notifyCounterparty}},
	}
	inProgressEdges = map[BookingAction]bookingEdge{
		ActionComplete: {models.BookingCompleted, []party{partyOrganizer, partyTalent, partyAdmin},
			[]Effect{EffectQueuePayout, EffectNotifyOrganizer, EffectNotifyTalent}},
		ActionDispute: {models.BookingDisputed, []party{partyOrganizer, partyTalent},
			[]Effect{EffectOpenDispute, notifyCounterparty}},
	}
	completedEdges = map[BookingAction]bookingEdge{
		ActionDispute: {models.BookingDisputed, []party{partyOrganizer, partyTalent},
			[]Effect{EffectOpenDispute, notifyCounterparty}},
	}
	disputedEdges = map[BookingAction]bookingEdge{
		ActionResolve: {"", []party{partyAdmin}, []Effect{EffectNotifyOrganizer, EffectNotifyTalent}},
	}
)

func bookingEdges(status models.BookingStatus) (map[BookingAction]bookingEdge, error) {
	switch status {
	case models.BookingPending:
		return pendingEdges, nil
	case models.BookingAccepted:
		return acceptedEdges, nil
	case models.BookingInProgress:
		return inProgressEdges, nil
	case models.BookingCompleted:
		return completedEdges, nil
	case models.BookingDisputed:
		return disputedEdges, nil
	case models.BookingDeclined, models.BookingCancelled:
		return nil, nil
	}
	return nil, Invalid("status", "unknown booking status %q", status)
}

type BookingRequest struct {
	Booking *models.Booking
	Action  BookingAction
	Actor   Actor
	Now     time.Time

	// DisputeWindow bounds how long after completion a dispute may be raised.
	DisputeWindow time.Duration
	// ResolveTo is the outcome of a dispute resolution: COMPLETED or CANCELLED.
	ResolveTo models.BookingStatus
}

type BookingDecision struct {
	Action  BookingAction
	From    models.BookingStatus
	To      models.BookingStatus
	Effects []Effect
}

// DecideBooking validates a booking action against the transition table without touching storage.
func DecideBooking(req BookingRequest) (BookingDecision, error) {
	b := req.Booking
	if b == nil {
		return BookingDecision{}, Invalid("booking", "is required")
	}
	requested, ok := req.Action.target()
	if !ok {
		return BookingDecision{}, Invalid("action", "unknown booking action %q", req.Action)
	}

	edges, err := bookingEdges(b.Status)
	if err != nil {
		return BookingDecision{}, err
	}
	edge, ok := edges[req.Action]
	if !ok {
		return BookingDecision{}, &InvalidTransitionError{
			Entity: "booking",
			From:   string(b.Status),
			To:     string(requested),
			Action: string(req.Action),
		}
	}

	p := partyOf(req.Actor, b)
	if !allowedParty(edge.parties, p) {
		return BookingDecision{}, &ForbiddenError{
			Action: fmt.Sprintf("%s booking", req.Action),
			Reason: fmt.Sprintf("%s cannot %s a %s booking", p, req.Action, b.Status),
		}
	}

	to := edge.to
	switch req.Action {
	case ActionComplete:
		if req.Now.Before(b.EventEnd()) {
			return BookingDecision{}, &InvalidTransitionError{
				Entity: "booking", From: string(b.Status), To: string(to), Action: string(req.Action),
				Reason: "event has not ended",
			}
		}
	case ActionDispute:
		if b.Status == models.BookingCompleted {
			completedAt := b.UpdatedAt
			if b.CompletedAt != nil {
				completedAt = *b.CompletedAt
			}
			if req.Now.After(completedAt.Add(req.DisputeWindow)) {
				return BookingDecision{}, &InvalidTransitionError{
					Entity: "booking", From: string(b.Status), To: string(to), Action: string(req.Action),
					Reason: "dispute window has closed",
				}
			}
		}
	case ActionResolve:
		if req.ResolveTo != models.BookingCompleted && req.ResolveTo != models.BookingCancelled {
			return BookingDecision{}, Invalid("resolve_to", "must be %s or %s", models.BookingCompleted, models.BookingCancelled)
		}
		to = req.ResolveTo
	}

	return BookingDecision{
		Action:  req.Action,
		From:    b.Status,
		To:      to,
		Effects: expandEffects(edge.effects, p),
	}, nil
}

// CheckEdit allows the organizer to change booking details while it is still PENDING.
func CheckEdit(b *models.Booking, actor Actor) error {
	if b.Status != models.BookingPending {
		return &InvalidTransitionError{
			Entity: "booking", From: string(b.Status), To: string(b.Status), Action: "edit",
			Reason: "only pending bookings can be edited",
		}
	}
	if partyOf(actor, b) != partyOrganizer {
		return &ForbiddenError{Action: "edit booking", Reason: "only the organizer can edit a booking"}
	}
	return nil
}

func allowedParty(parties []party, p party) bool {
	for _, x := range parties {
		if x == p {
			return true
		}
	}
	return false
}

func expandEffects(effects []Effect, actor party) []Effect {
	out := make([]Effect, 0, len(effects)+1)
	for _, e := range effects {
		if e != notifyCounterparty {
			out = append(out, e)
			continue
		}
		switch actor {
		case partyOrganizer:
			out = append(out, EffectNotifyTalent)
		case partyTalent:
			out = append(out, EffectNotifyOrganizer)
		default:
			out = append(out, EffectNotifyOrganizer, EffectNotifyTalent)
		}
	}
	return out
}
