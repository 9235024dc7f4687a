package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/notifications"
	"github.com/anjiri1684/talent_booking/storage"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier delivers an email; implementations must not block the caller.
type Notifier interface {
	SendEmail(toName, toEmail, subject, htmlContent string)
}

// PayoutFeed receives every persisted payout status change.
type PayoutFeed interface {
	PublishPayout(p models.Payout)
}

// DocumentStore persists uploaded KYC documents.
type DocumentStore interface {
	Upload(ctx context.Context, name string, r io.Reader) (*storage.Object, error)
	Delete(ctx context.Context, obj *storage.Object) error
}

func utcNow() time.Time { return time.Now().UTC() }

func notFound(err error, entity string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &workflow.NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
	}
	return fmt.Errorf("load %s: %w", entity, err)
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// casStatus moves a row from one status to another only if it still holds the expected status.
func casStatus(tx *gorm.DB, model interface{}, entity string, id uuid.UUID, from, to string, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(model).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update %s status: %w", entity, res.Error)
	}
	if res.RowsAffected == 0 {
		return &workflow.InvalidTransitionError{
			Entity: entity, From: from, To: to,
			Reason: "record was modified concurrently",
		}
	}
	return nil
}

func send(n Notifier, u *models.User, m notifications.Message) {
	if n == nil || u == nil {
		return
	}
	n.SendEmail(u.FullName, u.Email, m.Subject, m.HTML)
}

func cents(v float64) int64 { return int64(math.Round(v * 100)) }

func round2(v float64) float64 { return float64(cents(v)) / 100 }

// talentShare is what the talent receives after platform commission.
func talentShare(amount, commissionRate float64) float64 {
	return round2(amount * (1 - commissionRate))
}

// queuePayout makes sure a payout of the given amount exists for the booking. A payout that has
// left PENDING is accepted as is when its amount matches.
func queuePayout(tx *gorm.DB, b *models.Booking, amount float64) (*models.Payout, error) {
	p := models.Payout{
		BookingID: b.ID,
		TalentID:  b.TalentID,
		Amount:    round2(amount),
		Currency:  b.Currency,
		Status:    models.PayoutPending,
	}
	err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "booking_id"}}, DoNothing: true}).Create(&p).Error
	if err != nil {
		return nil, fmt.Errorf("queue payout: %w", err)
	}

	var existing models.Payout
	if err := tx.Clauses(forUpdate).First(&existing, "booking_id = ?", b.ID).Error; err != nil {
		return nil, notFound(err, "payout", b.ID)
	}
	if existing.Status != models.PayoutPending {
		// Paid out early, before completion: the existing transfer already covers this amount.
		if cents(existing.Amount) == cents(amount) {
			return &existing, nil
		}
		return nil, &workflow.InvalidTransitionError{
			Entity: "payout", From: string(existing.Status), To: string(models.PayoutPending),
			Reason: "payout for this booking has already been sent for a different amount",
		}
	}
	if cents(existing.Amount) != cents(amount) {
		if err := tx.Model(&existing).Update("amount", round2(amount)).Error; err != nil {
			return nil, fmt.Errorf("update payout amount: %w", err)
		}
		existing.Amount = round2(amount)
	}
	return &existing, nil
}
