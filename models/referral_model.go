package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Referral struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	ReferrerID uuid.UUID      `gorm:"type:uuid;not null;index" json:"referrer_id"`
	ReferredID uuid.UUID      `gorm:"type:uuid;not null;unique" json:"referred_id"`
	Status     ReferralStatus `gorm:"size:20;not null;index" json:"status"`

	RewardStatus        *RewardStatus   `gorm:"size:20;index" json:"reward_status"`
	ReferrerReward      float64         `gorm:"type:numeric(12,2);not null;default:0" json:"referrer_reward"`
	ReferredReward      float64         `gorm:"type:numeric(12,2);not null;default:0" json:"referred_reward"`
	ConversionType      *ConversionType `gorm:"size:30" json:"conversion_type"`
	ConversionBookingID *uuid.UUID      `gorm:"type:uuid" json:"conversion_booking_id"`
	ConvertedAt         *time.Time      `json:"converted_at"`
	CreditedAt          *time.Time      `json:"credited_at"`
	FailureReason       *string         `gorm:"type:text" json:"failure_reason"`

	Referrer *User `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	Referred *User `gorm:"foreignKey:ReferredID" json:"referred,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = ReferralPending
	}
	return nil
}
