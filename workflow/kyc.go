package workflow

import (
	"strings"

	"github.com/anjiri1684/talent_booking/models"
	"github.com/google/uuid"
)

type KycAction string

const (
	KycSubmit  KycAction = "submit"
	KycApprove KycAction = "approve"
	KycReject  KycAction = "reject"
)

// RequiredDocuments must be present in every submission, in this order.
var RequiredDocuments = []models.DocumentType{models.DocumentNationalIDFront, models.DocumentNationalIDBack}

type KycRequest struct {
	Current models.KycStatus
	Action  KycAction
	Actor   Actor
	Subject uuid.UUID
	Reason  string
}

type KycDecision struct {
	From    models.KycStatus
	To      models.KycStatus
	Effects []Effect
}

func DecideKyc(req KycRequest) (KycDecision, error) {
	if !req.Current.Valid() {
		return KycDecision{}, Invalid("status", "unknown verification status %q", req.Current)
	}

	switch req.Action {
	case KycSubmit:
		if req.Actor.IsAdmin() || req.Actor.ID != req.Subject {
			return KycDecision{}, &ForbiddenError{Action: "submit KYC", Reason: "users submit their own documents"}
		}
		switch req.Current {
		case models.KycUnverified, models.KycRejected:
			return KycDecision{From: req.Current, To: models.KycPending, Effects: []Effect{EffectUpdateUserKyc}}, nil
		case models.KycPending, models.KycVerified:
			return KycDecision{}, &InvalidTransitionError{
				Entity: "kyc", From: string(req.Current), To: string(models.KycPending), Action: string(req.Action),
			}
		}
	case KycApprove, KycReject:
		if !req.Actor.IsAdmin() {
			return KycDecision{}, &ForbiddenError{Action: string(req.Action) + " KYC", Reason: "admin only"}
		}
		to := models.KycVerified
		if req.Action == KycReject {
			to = models.KycRejected
			if strings.TrimSpace(req.Reason) == "" {
				return KycDecision{}, Invalid("reason", "is required when rejecting a submission")
			}
		}
		if req.Current != models.KycPending {
			return KycDecision{}, &InvalidTransitionError{
				Entity: "kyc", From: string(req.Current), To: string(to), Action: string(req.Action),
			}
		}
		return KycDecision{From: req.Current, To: to, Effects: []Effect{EffectUpdateUserKyc}}, nil
	}
	return KycDecision{}, Invalid("action", "unknown KYC action %q", req.Action)
}

// CheckDocuments rejects a submission that lacks a required document or repeats one.
func CheckDocuments(types []models.DocumentType) error {
	seen := make(map[models.DocumentType]bool, len(types))
	for _, t := range types {
		if _, err := models.ParseDocumentType(string(t)); err != nil {
			return Invalid("documents", "%v", err)
		}
		if seen[t] {
			return Invalid(string(t), "submitted more than once")
		}
		seen[t] = true
	}
	for _, req := range RequiredDocuments {
		if !seen[req] {
			return Invalid(string(req), "document is required")
		}
	}
	return nil
}
