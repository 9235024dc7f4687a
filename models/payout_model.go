package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Payout struct {
	ID        uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	BookingID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	TalentID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"talent_id"`
	Status    PayoutStatus `gorm:"size:20;not null;index" json:"status"`
	Amount    float64      `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency  string       `gorm:"size:3;not null" json:"currency"`

	TransferCode  *string `gorm:"size:100;unique" json:"transfer_code"`
	MpesaNumber   *string `gorm:"size:12" json:"mpesa_number"`
	FailureReason *string `gorm:"type:text" json:"failure_reason"`
	Attempts      int     `gorm:"not null;default:0" json:"attempts"`

	ProcessedAt *time.Time `json:"processed_at"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
	Talent  *User    `gorm:"foreignKey:TalentID" json:"talent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PayoutPending
	}
	if p.Currency == "" {
		p.Currency = "KES"
	}
	return nil
}
