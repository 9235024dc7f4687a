package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KycSubmission struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Status          KycStatus  `gorm:"size:20;not null;index" json:"status"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason"`
	ReviewedByID    *uuid.UUID `gorm:"type:uuid" json:"reviewed_by_id"`
	ReviewedAt      *time.Time `json:"reviewed_at"`

	Documents []KycDocument `gorm:"foreignKey:SubmissionID" json:"documents"`
	User      *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *KycSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = KycPending
	}
	return nil
}

type KycDocument struct {
	ID           uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	SubmissionID uuid.UUID    `gorm:"type:uuid;not null;index" json:"submission_id"`
	Position     int          `gorm:"not null" json:"position"`
	Type         DocumentType `gorm:"size:30;not null" json:"type"`
	FileName     string       `gorm:"size:255;not null" json:"file_name"`
	ContentType  string       `gorm:"size:100;not null" json:"content_type"`
	URL          string       `gorm:"size:500;not null" json:"url"`
	PublicID     string       `gorm:"size:255;not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (d *KycDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
