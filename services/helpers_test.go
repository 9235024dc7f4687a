package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/database"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/payments"
	"github.com/anjiri1684/talent_booking/storage"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(configs.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, role models.Role, mutate ...func(*models.User)) *models.User {
	t.Helper()
	id := uuid.New()
	code := strings.ToUpper(id.String()[:8])
	u := &models.User{
		ID:           id,
		FullName:     fmt.Sprintf("%s %s", role, id.String()[:4]),
		Email:        id.String() + "@example.com",
		Password:     "x",
		Role:         role,
		ReferralCode: &code,
		IsActive:     true,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func payoutReady(u *models.User) {
	n := "254712345678"
	u.MpesaNumber = &n
	u.MpesaVerified = true
	u.VerificationStatus = models.KycVerified
}

func createBooking(t *testing.T, db *gorm.DB, organizer, talent *models.User, status models.BookingStatus, amount float64) *models.Booking {
	t.Helper()
	b := &models.Booking{
		OrganizerID:     organizer.ID,
		TalentID:        talent.ID,
		Title:           "Friday set",
		Location:        "Nairobi",
		Status:          status,
		Amount:          amount,
		TalentAmount:    talentShare(amount, 0.15),
		EventDate:       time.Now().UTC().Add(-4 * time.Hour),
		DurationMinutes: 120,
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

func actorOf(u *models.User) workflow.Actor {
	return workflow.Actor{ID: u.ID, Role: u.Role}
}

type sentEmail struct {
	To      string
	Subject string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (f *fakeNotifier) SendEmail(toName, toEmail, subject, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{To: toEmail, Subject: subject})
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeFeed struct {
	mu      sync.Mutex
	updates []models.Payout
}

func (f *fakeFeed) PublishPayout(p models.Payout) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, p)
}

type fakeProvider struct {
	mu sync.Mutex

	initiateErr error
	finalizeErr error
	finalize    string
	verify      string
	verifyFail  string

	initiated []payments.TransferRequest
	finalized int
	verified  int
}

func (f *fakeProvider) InitiateTransfer(ctx context.Context, req payments.TransferRequest) (*payments.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initiated = append(f.initiated, req)
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	return &payments.Transfer{
		TransferCode: "TRF_" + req.Reference[:8],
		Reference:    req.Reference,
		Status:       "otp",
		Outcome:      workflow.TransferOTP,
	}, nil
}

func (f *fakeProvider) FinalizeTransfer(ctx context.Context, code, otp string) (*payments.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized++
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	status := f.finalize
	if status == "" {
		status = "success"
	}
	return &payments.Transfer{TransferCode: code, Status: status, Outcome: payments.TransferOutcome(status)}, nil
}

func (f *fakeProvider) VerifyTransfer(ctx context.Context, reference string) (*payments.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified++
	status := f.verify
	if status == "" {
		status = "pending"
	}
	return &payments.Transfer{Reference: reference, Status: status, Outcome: payments.TransferOutcome(status), FailureReason: f.verifyFail}, nil
}

type fakeVerifier struct {
	result *payments.PaymentVerification
	err    error
	calls  int
}

func (f *fakeVerifier) VerifyPayment(ctx context.Context, reference string) (*payments.PaymentVerification, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	r.Reference = reference
	return &r, nil
}

type fakeStore struct {
	mu       sync.Mutex
	names    []string
	deleted  []string
	failOn   int
	uploads  int
	onUpload func(n int)
}

func (f *fakeStore) Upload(ctx context.Context, name string, r io.Reader) (*storage.Object, error) {
	f.mu.Lock()
	f.uploads++
	n, hook := f.uploads, f.onUpload
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn > 0 && n == f.failOn {
		return nil, fmt.Errorf("upload rejected")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.names = append(f.names, name)
	return &storage.Object{URL: "https://files.example.com/" + name, PublicID: name, Bytes: len(data)}, nil
}

func (f *fakeStore) Delete(ctx context.Context, obj *storage.Object) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, obj.PublicID)
	return nil
}

var (
	pngHeader = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	jpegData  = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 64)...)
)

func referralConfig() configs.ReferralConfig {
	return configs.ReferralConfig{
		MinBookingAmount: 5000,
		ReferrerReward:   500,
		ReferredReward:   250,
		ExpiryDays:       90,
		CreditBatchSize:  100,
	}
}
