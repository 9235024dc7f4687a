package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255;not null;unique" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Role     Role      `gorm:"size:20;not null" json:"role"`

	ReferralCode   *string `gorm:"size:10;unique" json:"referral_code"`
	ReferredByCode *string `gorm:"size:10" json:"referred_by_code"`
	CreditBalance  float64 `gorm:"type:numeric(12,2);not null;default:0" json:"credit_balance"`

	VerificationStatus KycStatus `gorm:"size:20;not null" json:"verification_status"`
	MpesaNumber        *string   `gorm:"size:12" json:"mpesa_number"`
	MpesaVerified      bool      `gorm:"not null;default:false" json:"mpesa_verified"`

	// No column default: gorm would skip a false value on insert and store the default instead.
	IsActive bool `gorm:"not null" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.VerificationStatus == "" {
		u.VerificationStatus = KycUnverified
	}
	return nil
}
