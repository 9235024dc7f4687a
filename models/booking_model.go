package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Booking struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	OrganizerID uuid.UUID     `gorm:"type:uuid;not null;index" json:"organizer_id"`
	TalentID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"talent_id"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Location    string        `gorm:"size:255" json:"location"`
	Status      BookingStatus `gorm:"size:20;not null;index" json:"status"`

	Amount       float64 `gorm:"type:numeric(12,2);not null" json:"amount"`
	TalentAmount float64 `gorm:"type:numeric(12,2);not null" json:"talent_amount"`
	Currency     string  `gorm:"size:3;not null" json:"currency"`

	EventDate       time.Time  `gorm:"not null" json:"event_date"`
	DurationMinutes int        `gorm:"not null" json:"duration_minutes"`
	EventEndAt      *time.Time `json:"event_end_at"`

	PaymentReference *string `gorm:"size:100;unique" json:"payment_reference"`

	AcceptedAt  *time.Time `json:"accepted_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	Organizer *User `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	Talent    *User `gorm:"foreignKey:TalentID" json:"talent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = BookingPending
	}
	if b.Currency == "" {
		b.Currency = "KES"
	}
	return nil
}

// EventEnd is the explicit end when set, else the event date plus its duration.
func (b *Booking) EventEnd() time.Time {
	if b.EventEndAt != nil {
		return *b.EventEndAt
	}
	return b.EventDate.Add(time.Duration(b.DurationMinutes) * time.Minute)
}
