package workflow

import (
	"errors"
	"testing"

	"github.com/anjiri1684/talent_booking/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disputedBooking(amount, talentAmount float64) *models.Booking {
	b := booking(models.BookingDisputed)
	b.Amount = amount
	b.TalentAmount = talentAmount
	return b
}

func TestDecideDisputeOrganizerFavor(t *testing.T) {
	dec, err := DecideDispute(DisputeRequest{
		Dispute:    &models.Dispute{Status: models.DisputeOpen},
		Booking:    disputedBooking(20000, 17000),
		Action:     DisputeResolve,
		Actor:      admin,
		Resolution: Resolution{Type: models.ResolutionOrganizerFavor},
	})
	require.NoError(t, err)
	assert.Equal(t, models.DisputeResolvedOrganizerFavor, dec.To)
	assert.Equal(t, 20000.0, dec.RefundAmount)
	assert.Equal(t, 0.0, dec.PayoutAmount)
	assert.Equal(t, models.BookingCancelled, dec.BookingTo)
	assert.True(t, Has(dec.Effects, EffectIssueRefund))
	assert.False(t, Has(dec.Effects, EffectQueuePayout))
}

func TestDecideDisputeTalentFavor(t *testing.T) {
	dec, err := DecideDispute(DisputeRequest{
		Dispute:    &models.Dispute{Status: models.DisputeUnderReview},
		Booking:    disputedBooking(20000, 17000),
		Action:     DisputeResolve,
		Actor:      admin,
		Resolution: Resolution{Type: models.ResolutionTalentFavor, RefundAmount: 999},
	})
	require.NoError(t, err)
	assert.Equal(t, models.DisputeResolvedTalentFavor, dec.To)
	assert.Equal(t, 0.0, dec.RefundAmount)
	assert.Equal(t, 17000.0, dec.PayoutAmount)
	assert.Equal(t, models.BookingCompleted, dec.BookingTo)
}

func TestDecideDisputePartial(t *testing.T) {
	tests := []struct {
		name          string
		refund        float64
		payout        float64
		wantErr       bool
		wantBookingTo models.BookingStatus
	}{
		{name: "split", refund: 5000, payout: 4000, wantBookingTo: models.BookingCompleted},
		{name: "exact total", refund: 6000, payout: 4000, wantBookingTo: models.BookingCompleted},
		{name: "refund only", refund: 3000, payout: 0, wantBookingTo: models.BookingCancelled},
		{name: "exceeds amount", refund: 6000, payout: 4000.01, wantErr: true},
		{name: "negative refund", refund: -1, payout: 100, wantErr: true},
		{name: "negative payout", refund: 100, payout: -5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := DecideDispute(DisputeRequest{
				Dispute: &models.Dispute{Status: models.DisputeOpen},
				Booking: disputedBooking(10000, 8500),
				Action:  DisputeResolve,
				Actor:   admin,
				Resolution: Resolution{
					Type:         models.ResolutionPartial,
					RefundAmount: tt.refund,
					PayoutAmount: tt.payout,
				},
			})
			if tt.wantErr {
				var validation *ValidationError
				assert.True(t, errors.As(err, &validation), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.DisputeResolvedPartial, dec.To)
			assert.Equal(t, tt.refund, dec.RefundAmount)
			assert.Equal(t, tt.payout, dec.PayoutAmount)
			assert.Equal(t, tt.wantBookingTo, dec.BookingTo)
		})
	}
}

func TestDecideDisputeGuards(t *testing.T) {
	t.Run("non admin", func(t *testing.T) {
		_, err := DecideDispute(DisputeRequest{
			Dispute: &models.Dispute{Status: models.DisputeOpen}, Booking: disputedBooking(100, 85),
			Action: DisputeResolve, Actor: organizer, Resolution: Resolution{Type: models.ResolutionOrganizerFavor},
		})
		var forbidden *ForbiddenError
		assert.True(t, errors.As(err, &forbidden))
	})

	t.Run("already resolved", func(t *testing.T) {
		_, err := DecideDispute(DisputeRequest{
			Dispute: &models.Dispute{Status: models.DisputeResolvedTalentFavor}, Booking: disputedBooking(100, 85),
			Action: DisputeResolve, Actor: admin, Resolution: Resolution{Type: models.ResolutionOrganizerFavor},
		})
		var invalid *InvalidTransitionError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, string(models.DisputeResolvedTalentFavor), invalid.From)
	})

	t.Run("unknown resolution", func(t *testing.T) {
		_, err := DecideDispute(DisputeRequest{
			Dispute: &models.Dispute{Status: models.DisputeOpen}, Booking: disputedBooking(100, 85),
			Action: DisputeResolve, Actor: admin, Resolution: Resolution{Type: "coin_toss"},
		})
		var validation *ValidationError
		assert.True(t, errors.As(err, &validation))
	})

	t.Run("review only from open", func(t *testing.T) {
		dec, err := DecideDispute(DisputeRequest{
			Dispute: &models.Dispute{Status: models.DisputeOpen}, Booking: disputedBooking(100, 85),
			Action: DisputeReview, Actor: admin,
		})
		require.NoError(t, err)
		assert.Equal(t, models.DisputeUnderReview, dec.To)

		_, err = DecideDispute(DisputeRequest{
			Dispute: &models.Dispute{Status: models.DisputeUnderReview}, Booking: disputedBooking(100, 85),
			Action: DisputeReview, Actor: admin,
		})
		var invalid *InvalidTransitionError
		assert.True(t, errors.As(err, &invalid))
	})
}

func TestValidateDisputeReason(t *testing.T) {
	assert.NoError(t, ValidateDisputeReason("talent did not show up"))
	assert.Error(t, ValidateDisputeReason("   "))
}
