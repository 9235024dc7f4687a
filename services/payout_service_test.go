package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/limiter"
	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type payoutFixture struct {
	db        *gorm.DB
	svc       *PayoutService
	provider  *fakeProvider
	feed      *fakeFeed
	admin     workflow.Actor
	organizer *models.User
	talent    *models.User
}

func newPayoutFixture(t *testing.T, talentOpts ...func(*models.User)) *payoutFixture {
	db := newTestDB(t)
	provider := &fakeProvider{}
	feed := &fakeFeed{}
	notifier := &fakeNotifier{}
	referrals := NewReferralService(db, referralConfig(), notifier, logging.Nop())
	cfg := configs.PayoutConfig{MaxOTPAttempts: 3, OTPWindow: time.Minute, ReconcileAfter: 10 * time.Minute}
	admin := createUser(t, db, models.RoleAdmin)
	return &payoutFixture{
		db:        db,
		svc:       NewPayoutService(db, provider, limiter.NewMemoryLimiter(), referrals, notifier, feed, cfg, logging.Nop()),
		provider:  provider,
		feed:      feed,
		admin:     actorOf(admin),
		organizer: createUser(t, db, models.RoleOrganizer),
		talent:    createUser(t, db, models.RoleTalent, talentOpts...),
	}
}

func (f *payoutFixture) transactions(t *testing.T, p *models.Payout) int64 {
	var n int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Where("payout_id = ?", p.ID).Count(&n).Error)
	return n
}

func TestPayoutHappyPath(t *testing.T) {
	f := newPayoutFixture(t, payoutReady)
	ctx := context.Background()
	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingAccepted, 10000)

	p, err := f.svc.Initiate(ctx, f.admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutProcessing, p.Status)
	require.NotNil(t, p.TransferCode)
	assert.Equal(t, 1, p.Attempts)
	require.Len(t, f.provider.initiated, 1)
	assert.Equal(t, p.ID.String(), f.provider.initiated[0].Reference)
	assert.Equal(t, "254712345678", f.provider.initiated[0].MpesaNumber)

	done, err := f.svc.Finalize(ctx, f.admin, *p.TransferCode, "123456")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutCompleted, done.Status)
	assert.Equal(t, b.TalentAmount, done.Amount)
	assert.Equal(t, 8500.0, done.Amount)
	assert.NotNil(t, done.ProcessedAt)
	assert.Equal(t, int64(1), f.transactions(t, done))
	assert.Len(t, f.feed.updates, 2)
}

func TestFinalizeTwiceCreatesOneTransaction(t *testing.T) {
	f := newPayoutFixture(t, payoutReady)
	ctx := context.Background()
	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 10000)

	p, err := f.svc.Initiate(ctx, f.admin, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Finalize(ctx, f.admin, *p.TransferCode, "123456")
	require.NoError(t, err)

	again, err := f.svc.Finalize(ctx, f.admin, *p.TransferCode, "123456")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutCompleted, again.Status)
	assert.Equal(t, 1, f.provider.finalized)
	assert.Equal(t, int64(1), f.transactions(t, again))
}

func TestInitiatePrerequisites(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.User)
		want   workflow.Prerequisite
	}{
		{"no number", func(u *models.User) { u.VerificationStatus = models.KycVerified }, workflow.PrerequisiteMpesaNumber},
		{"unverified number", func(u *models.User) {
			n := "254712345678"
			u.MpesaNumber = &n
			u.VerificationStatus = models.KycVerified
		}, workflow.PrerequisiteMpesaVerification},
		{"kyc pending", func(u *models.User) {
			payoutReady(u)
			u.VerificationStatus = models.KycPending
		}, workflow.PrerequisiteKycVerification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPayoutFixture(t, tt.mutate)
			b := createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 10000)

			_, err := f.svc.Initiate(context.Background(), f.admin, b.ID)
			var prereq *workflow.PayoutPrerequisiteError
			require.True(t, errors.As(err, &prereq), "got %v", err)
			assert.Equal(t, tt.want, prereq.Prerequisite)
			assert.Empty(t, f.provider.initiated)
		})
	}
}

func TestInitiateRejectsIneligibleBooking(t *testing.T) {
	f := newPayoutFixture(t, payoutReady)
	for _, status := range []models.BookingStatus{models.BookingPending, models.BookingDisputed, models.BookingCancelled} {
		b := createBooking(t, f.db, f.organizer, f.talent, status, 10000)
		_, err := f.svc.Initiate(context.Background(), f.admin, b.ID)
		var invalid *workflow.InvalidTransitionError
		assert.True(t, errors.As(err, &invalid), "status %s: %v", status, err)
	}
	assert.Empty(t, f.provider.initiated)

	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 10000)
	_, err := f.svc.Initiate(context.Background(), actorOf(f.talent), b.ID)
	var forbidden *workflow.ForbiddenError
	assert.True(t, errors.As(err, &forbidden))
}

func TestInitiateProviderErrorThenRetry(t *testing.T) {
	f := newPayoutFixture(t, payoutReady)
	ctx := context.Background()
	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 10000)

	f.provider.initiateErr = &workflow.ExternalProviderError{Provider: "paystack", Op: "initiate_transfer", StatusCode: 503, Retryable: true, Err: errors.New("unavailable")}
	_, err := f.svc.Initiate(ctx, f.admin, b.ID)
	var perr *workflow.ExternalProviderError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Retryable)

	var stuck models.Payout
	require.NoError(t, f.db.First(&stuck, "booking_id = ?", b.ID).Error)
	assert.Equal(t, models.PayoutProcessing, stuck.Status)
	assert.Nil(t, stuck.TransferCode)

	f.provider.initiateErr = nil
	p, err := f.svc.Initiate(ctx, f.admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, stuck.ID, p.ID)
	assert.Equal(t, 2, p.Attempts)
	require.NotNil(t, p.TransferCode)

	same, err := f.svc.Initiate(ctx, f.admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, *p.TransferCode, *same.TransferCode)
	assert.Len(t, f.provider.initiated, 2)
}

func TestFinalizeOTPAttemptsLimited(t *testing.T) {
	f := newPayoutFixture(t, payoutReady)
	ctx := context.Background()
	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 10000)
	p, err := f.svc.Initiate(ctx, f.admin, b.ID)
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, f.admin, *p.TransferCode, "12")
	var validation *workflow.ValidationError
	require.True(t, errors.As(err, &validation))

	f.provider.finalizeErr = &workflow.ExternalProviderError{Provider: "paystack", Op: "finalize_transfer", StatusCode: 400, Err: errors.New("invalid otp")}
	for i := 0; i < 3; i++ {
		_, err = f.svc.Finalize(ctx, f.admin, *p.TransferCode, "000000")
		var perr *workflow.ExternalProviderError
		require.True(t, errors.As(err, &perr))
	}
	_, err = f.svc.Finalize(ctx, f.admin, *p.TransferCode, "000000")
	var limited *workflow.TooManyAttemptsError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 3, f.provider.finalized)

	var stored models.Payout
	require.NoError(t, f.db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, models.PayoutProcessing, stored.Status)
}

func TestVerifyReconcilesWithProvider(t *testing.T) {
	f := newPayoutFixture(t, payoutReady)
	ctx := context.Background()
	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 10000)
	p, err := f.svc.Initiate(ctx, f.admin, b.ID)
	require.NoError(t, err)

	res, err := f.svc.Verify(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutProcessing, res.Payout.Status)
	assert.Equal(t, workflow.VerificationVerifying, res.Verification)

	f.provider.verify = "failed"
	f.provider.verifyFail = "account closed"
	res, err = f.svc.Verify(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutFailed, res.Payout.Status)
	require.NotNil(t, res.Payout.FailureReason)
	assert.Equal(t, "account closed", *res.Payout.FailureReason)
	assert.Equal(t, workflow.VerificationFailed, res.Verification)

	_, err = f.svc.Finalize(ctx, f.admin, *p.TransferCode, "123456")
	var invalid *workflow.InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
}

func TestReconcileReferenceCompletesPayout(t *testing.T) {
	f := newPayoutFixture(t, payoutReady)
	ctx := context.Background()
	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 10000)
	p, err := f.svc.Initiate(ctx, f.admin, b.ID)
	require.NoError(t, err)

	f.provider.verify = "success"
	res, err := f.svc.ReconcileReference(ctx, p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.PayoutCompleted, res.Payout.Status)
	assert.Equal(t, int64(1), f.transactions(t, res.Payout))

	_, err = f.svc.ReconcileReference(ctx, "not-a-uuid")
	var validation *workflow.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestReconcileStale(t *testing.T) {
	f := newPayoutFixture(t, payoutReady)
	ctx := context.Background()
	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 10000)
	p, err := f.svc.Initiate(ctx, f.admin, b.ID)
	require.NoError(t, err)

	f.provider.verify = "reversed"
	changed, err := f.svc.ReconcileStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)

	f.svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	changed, err = f.svc.ReconcileStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	var stored models.Payout
	require.NoError(t, f.db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, models.PayoutFailed, stored.Status)
}

func TestPayoutConvertsTalentReferral(t *testing.T) {
	f := newPayoutFixture(t, payoutReady)
	ctx := context.Background()
	referrer := createUser(t, f.db, models.RoleTalent)
	require.NoError(t, f.db.Create(&models.Referral{ReferrerID: referrer.ID, ReferredID: f.talent.ID}).Error)

	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 3000)
	p, err := f.svc.Initiate(ctx, f.admin, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Finalize(ctx, f.admin, *p.TransferCode, "123456")
	require.NoError(t, err)

	var ref models.Referral
	require.NoError(t, f.db.First(&ref, "referred_id = ?", f.talent.ID).Error)
	assert.Equal(t, models.ReferralConverted, ref.Status)
	require.NotNil(t, ref.ConversionType)
	assert.Equal(t, models.ConversionTalentPayout, *ref.ConversionType)
}

func TestListPending(t *testing.T) {
	f := newPayoutFixture(t, payoutReady)
	ctx := context.Background()
	queued := createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 10000)
	require.NoError(t, f.db.Create(&models.Payout{BookingID: queued.ID, TalentID: f.talent.ID, Amount: 8500, Currency: "KES"}).Error)
	createBooking(t, f.db, f.organizer, f.talent, models.BookingCompleted, 5000)

	out, err := f.svc.ListPending(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, out.Payouts, 1)
	assert.Len(t, out.Bookings, 1)

	_, err = f.svc.ListPending(ctx, actorOf(f.talent))
	assert.Error(t, err)
}
