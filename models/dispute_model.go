package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Dispute struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	BookingID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"booking_id"`
	RaisedByID uuid.UUID     `gorm:"type:uuid;not null" json:"raised_by_id"`
	Status     DisputeStatus `gorm:"size:30;not null;index" json:"status"`
	Reason     string        `gorm:"type:text;not null" json:"reason"`

	ResolutionType  *ResolutionType `gorm:"size:30" json:"resolution_type"`
	ResolutionNotes *string         `gorm:"type:text" json:"resolution_notes"`
	RefundAmount    float64         `gorm:"type:numeric(12,2);not null;default:0" json:"refund_amount"`
	PayoutAmount    float64         `gorm:"type:numeric(12,2);not null;default:0" json:"payout_amount"`
	ResolvedByID    *uuid.UUID      `gorm:"type:uuid" json:"resolved_by_id"`
	ResolvedAt      *time.Time      `json:"resolved_at"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Dispute) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DisputeOpen
	}
	return nil
}
