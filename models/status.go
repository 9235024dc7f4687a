package models

import "fmt"

type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleTalent    Role = "talent"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOrganizer, RoleTalent, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingAccepted   BookingStatus = "ACCEPTED"
	BookingDeclined   BookingStatus = "DECLINED"
	BookingInProgress BookingStatus = "IN_PROGRESS"
	BookingCompleted  BookingStatus = "COMPLETED"
	BookingCancelled  BookingStatus = "CANCELLED"
	BookingDisputed   BookingStatus = "DISPUTED"
)

var BookingStatuses = []BookingStatus{
	BookingPending, BookingAccepted, BookingDeclined, BookingInProgress,
	BookingCompleted, BookingCancelled, BookingDisputed,
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingAccepted, BookingDeclined, BookingInProgress,
		BookingCompleted, BookingCancelled, BookingDisputed:
		return true
	}
	return false
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown booking status %q", s)
	}
	return st, nil
}

type DisputeStatus string

const (
	DisputeOpen                   DisputeStatus = "OPEN"
	DisputeUnderReview            DisputeStatus = "UNDER_REVIEW"
	DisputeResolvedOrganizerFavor DisputeStatus = "RESOLVED_ORGANIZER_FAVOR"
	DisputeResolvedTalentFavor    DisputeStatus = "RESOLVED_TALENT_FAVOR"
	DisputeResolvedPartial        DisputeStatus = "RESOLVED_PARTIAL"
)

func (s DisputeStatus) Valid() bool {
	switch s {
	case DisputeOpen, DisputeUnderReview, DisputeResolvedOrganizerFavor,
		DisputeResolvedTalentFavor, DisputeResolvedPartial:
		return true
	}
	return false
}

func (s DisputeStatus) Resolved() bool {
	switch s {
	case DisputeResolvedOrganizerFavor, DisputeResolvedTalentFavor, DisputeResolvedPartial:
		return true
	}
	return false
}

type ResolutionType string

const (
	ResolutionOrganizerFavor ResolutionType = "organizer_favor"
	ResolutionTalentFavor    ResolutionType = "talent_favor"
	ResolutionPartial        ResolutionType = "partial_resolution"
)

func ParseResolutionType(s string) (ResolutionType, error) {
	switch r := ResolutionType(s); r {
	case ResolutionOrganizerFavor, ResolutionTalentFavor, ResolutionPartial:
		return r, nil
	}
	return "", fmt.Errorf("unknown resolution type %q", s)
}

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "PENDING"
	PayoutProcessing PayoutStatus = "PROCESSING"
	PayoutCompleted  PayoutStatus = "COMPLETED"
	PayoutFailed     PayoutStatus = "FAILED"
)

func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutPending, PayoutProcessing, PayoutCompleted, PayoutFailed:
		return true
	}
	return false
}

func (s PayoutStatus) Terminal() bool {
	return s == PayoutCompleted || s == PayoutFailed
}

type KycStatus string

const (
	KycUnverified KycStatus = "UNVERIFIED"
	KycPending    KycStatus = "PENDING"
	KycVerified   KycStatus = "VERIFIED"
	KycRejected   KycStatus = "REJECTED"
)

func (s KycStatus) Valid() bool {
	switch s {
	case KycUnverified, KycPending, KycVerified, KycRejected:
		return true
	}
	return false
}

type DocumentType string

const (
	DocumentNationalIDFront DocumentType = "national_id_front"
	DocumentNationalIDBack  DocumentType = "national_id_back"
	DocumentSelfie          DocumentType = "selfie"
)

// DocumentTypes is the submission order of KYC documents.
var DocumentTypes = []DocumentType{DocumentNationalIDFront, DocumentNationalIDBack, DocumentSelfie}

func ParseDocumentType(s string) (DocumentType, error) {
	switch d := DocumentType(s); d {
	case DocumentNationalIDFront, DocumentNationalIDBack, DocumentSelfie:
		return d, nil
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "PENDING"
	ReferralConverted ReferralStatus = "CONVERTED"
)

type RewardStatus string

const (
	RewardPending  RewardStatus = "PENDING"
	RewardCredited RewardStatus = "CREDITED"
	RewardFailed   RewardStatus = "FAILED"
)

type ConversionType string

const (
	ConversionBookingPayment ConversionType = "booking_payment"
	ConversionTalentPayout   ConversionType = "talent_payout"
)

func ParseConversionType(s string) (ConversionType, error) {
	switch c := ConversionType(s); c {
	case ConversionBookingPayment, ConversionTalentPayout:
		return c, nil
	}
	return "", fmt.Errorf("unknown conversion type %q", s)
}

type TransactionType string

const (
	TransactionBookingPayment TransactionType = "booking_payment"
	TransactionPayout         TransactionType = "payout"
	TransactionRefund         TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionSucceeded TransactionStatus = "succeeded"
)
