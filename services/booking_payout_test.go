package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/payments"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// earlyPayout runs a booking and its payout against the same database.
type earlyPayout struct {
	*payoutFixture
	bookings *BookingService
}

func newEarlyPayout(t *testing.T) *earlyPayout {
	f := newPayoutFixture(t, payoutReady)
	notifier := &fakeNotifier{}
	verifier := &fakeVerifier{result: &payments.PaymentVerification{Status: "success", Amount: 10000, Currency: "KES"}}
	referrals := NewReferralService(f.db, referralConfig(), notifier, logging.Nop())
	cfg := configs.BookingConfig{CommissionRate: 0.15, DisputeWindow: 72 * time.Hour}
	return &earlyPayout{
		payoutFixture: f,
		bookings:      NewBookingService(f.db, verifier, referrals, notifier, cfg, logging.Nop()),
	}
}

func (f *earlyPayout) payouts(t *testing.T, b *models.Booking) []models.Payout {
	var ps []models.Payout
	require.NoError(t, f.db.Where("booking_id = ?", b.ID).Find(&ps).Error)
	return ps
}

func (f *earlyPayout) bookingStatus(t *testing.T, b *models.Booking) models.BookingStatus {
	var got models.Booking
	require.NoError(t, f.db.First(&got, "id = ?", b.ID).Error)
	return got.Status
}

func TestBookingCompletesAfterEarlyPayout(t *testing.T) {
	f := newEarlyPayout(t)
	ctx := context.Background()
	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingAccepted, 10000)

	p, err := f.svc.Initiate(ctx, f.admin, b.ID)
	require.NoError(t, err)
	paid, err := f.svc.Finalize(ctx, f.admin, *p.TransferCode, "123456")
	require.NoError(t, err)
	require.Equal(t, models.PayoutCompleted, paid.Status)

	res, err := f.bookings.Transition(ctx, actorOf(f.organizer), b.ID, workflow.ActionCapturePayment, TransitionOptions{PaymentReference: "PSK_early"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingInProgress, res.Booking.Status)

	res, err = f.bookings.Transition(ctx, actorOf(f.talent), b.ID, workflow.ActionComplete, TransitionOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, res.Booking.Status)
	require.NotNil(t, res.Payout)
	assert.Equal(t, paid.ID, res.Payout.ID)
	assert.Equal(t, models.PayoutCompleted, res.Payout.Status)

	assert.Len(t, f.payouts(t, b), 1)
	assert.Equal(t, int64(1), f.transactions(t, paid))
	assert.Len(t, f.provider.initiated, 1)
}

func TestQueuePayoutRejectsDifferentAmountOnceSent(t *testing.T) {
	f := newEarlyPayout(t)
	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingAccepted, 10000)
	require.NoError(t, f.db.Create(&models.Payout{BookingID: b.ID, TalentID: f.talent.ID, Amount: b.TalentAmount, Currency: "KES", Status: models.PayoutProcessing}).Error)

	_, err := queuePayout(f.db, b, b.TalentAmount)
	require.NoError(t, err)

	_, err = queuePayout(f.db, b, b.TalentAmount/2)
	var invalid *workflow.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, string(models.PayoutProcessing), invalid.From)
	assert.Equal(t, b.TalentAmount, f.payouts(t, b)[0].Amount)
}

func TestCancelBlockedOncePayoutSent(t *testing.T) {
	f := newEarlyPayout(t)
	ctx := context.Background()

	for _, finalize := range []bool{false, true} {
		t.Run(fmt.Sprintf("finalized=%v", finalize), func(t *testing.T) {
			b := createBooking(t, f.db, f.organizer, f.talent, models.BookingAccepted, 10000)
			p, err := f.svc.Initiate(ctx, f.admin, b.ID)
			require.NoError(t, err)
			if finalize {
				_, err = f.svc.Finalize(ctx, f.admin, *p.TransferCode, "123456")
				require.NoError(t, err)
			}

			_, err = f.bookings.Transition(ctx, actorOf(f.organizer), b.ID, workflow.ActionCancel, TransitionOptions{Reason: "changed plans"})
			var invalid *workflow.InvalidTransitionError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, string(models.BookingCancelled), invalid.To)
			assert.Equal(t, models.BookingAccepted, f.bookingStatus(t, b))
		})
	}

	b := createBooking(t, f.db, f.organizer, f.talent, models.BookingAccepted, 10000)
	res, err := f.bookings.Transition(ctx, actorOf(f.organizer), b.ID, workflow.ActionCancel, TransitionOptions{Reason: "changed plans"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, res.Booking.Status)
}

func TestDisputeAndInitiateRaceLeavesOneWinner(t *testing.T) {
	f := newEarlyPayout(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		b := createBooking(t, f.db, f.organizer, f.talent, models.BookingInProgress, 10000)

		var wg sync.WaitGroup
		start := make(chan struct{})
		var disputeErr, initiateErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, disputeErr = f.bookings.Transition(ctx, actorOf(f.organizer), b.ID, workflow.ActionDispute, TransitionOptions{Reason: "talent left early"})
		}()
		go func() {
			defer wg.Done()
			<-start
			_, initiateErr = f.svc.Initiate(ctx, f.admin, b.ID)
		}()
		close(start)
		wg.Wait()

		require.True(t, (disputeErr == nil) != (initiateErr == nil), "dispute=%v initiate=%v", disputeErr, initiateErr)
		var invalid *workflow.InvalidTransitionError
		if disputeErr != nil {
			require.True(t, errors.As(disputeErr, &invalid))
		} else {
			require.True(t, errors.As(initiateErr, &invalid))
		}

		status := f.bookingStatus(t, b)
		for _, p := range f.payouts(t, b) {
			if status == models.BookingDisputed {
				assert.Equal(t, models.PayoutPending, p.Status)
			}
		}
		var disputes int64
		require.NoError(t, f.db.Model(&models.Dispute{}).Where("booking_id = ?", b.ID).Count(&disputes).Error)
		if status == models.BookingDisputed {
			assert.EqualValues(t, 1, disputes)
		} else {
			assert.Zero(t, disputes)
			assert.Equal(t, models.BookingInProgress, status)
		}
	}
}
