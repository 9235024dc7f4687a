package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction records money movement caused by a workflow transition.
// At most one row exists per payout and per dispute refund.
type Transaction struct {
	ID                uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	Type              TransactionType   `gorm:"size:20;not null;index" json:"type"`
	Status            TransactionStatus `gorm:"size:20;not null" json:"status"`
	BookingID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"booking_id"`
	PayoutID          *uuid.UUID        `gorm:"type:uuid;unique" json:"payout_id"`
	DisputeID         *uuid.UUID        `gorm:"type:uuid;unique" json:"dispute_id"`
	UserID            uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount            float64           `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency          string            `gorm:"size:3;not null" json:"currency"`
	ProviderReference *string           `gorm:"size:100" json:"provider_reference"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Currency == "" {
		t.Currency = "KES"
	}
	return nil
}
