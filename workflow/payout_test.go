package workflow

import (
	"errors"
	"testing"

	"github.com/anjiri1684/talent_booking/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payout(status models.PayoutStatus, code string) *models.Payout {
	p := &models.Payout{Status: status, Amount: 8500}
	if code != "" {
		p.TransferCode = &code
	}
	return p
}

func TestDecidePayout(t *testing.T) {
	tests := []struct {
		name    string
		payout  *models.Payout
		action  PayoutAction
		outcome TransferOutcome
		to      models.PayoutStatus
		noop    bool
		wantErr bool
	}{
		{name: "initiate pending", payout: payout(models.PayoutPending, ""), action: PayoutInitiate, to: models.PayoutProcessing},
		{name: "retry initiate without code", payout: payout(models.PayoutProcessing, ""), action: PayoutInitiate, to: models.PayoutProcessing},
		{name: "initiate with code returns existing", payout: payout(models.PayoutProcessing, "TRF_1"), action: PayoutInitiate, to: models.PayoutProcessing, noop: true},
		{name: "initiate completed", payout: payout(models.PayoutCompleted, "TRF_1"), action: PayoutInitiate, wantErr: true},
		{name: "initiate failed", payout: payout(models.PayoutFailed, "TRF_1"), action: PayoutInitiate, wantErr: true},
		{name: "finalize processing", payout: payout(models.PayoutProcessing, "TRF_1"), action: PayoutFinalize, to: models.PayoutCompleted},
		{name: "finalize completed is noop", payout: payout(models.PayoutCompleted, "TRF_1"), action: PayoutFinalize, to: models.PayoutCompleted, noop: true},
		{name: "finalize without transfer", payout: payout(models.PayoutProcessing, ""), action: PayoutFinalize, wantErr: true},
		{name: "finalize pending", payout: payout(models.PayoutPending, ""), action: PayoutFinalize, wantErr: true},
		{name: "reconcile success", payout: payout(models.PayoutProcessing, "TRF_1"), action: PayoutReconcile, outcome: TransferSuccess, to: models.PayoutCompleted},
		{name: "reconcile reversed", payout: payout(models.PayoutProcessing, "TRF_1"), action: PayoutReconcile, outcome: TransferReversed, to: models.PayoutFailed},
		{name: "reconcile otp", payout: payout(models.PayoutProcessing, "TRF_1"), action: PayoutReconcile, outcome: TransferOTP, to: models.PayoutProcessing, noop: true},
		{name: "reconcile terminal", payout: payout(models.PayoutFailed, "TRF_1"), action: PayoutReconcile, outcome: TransferSuccess, to: models.PayoutFailed, noop: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := DecidePayout(PayoutRequest{Payout: tt.payout, Action: tt.action, Actor: admin, Outcome: tt.outcome})
			if tt.wantErr {
				var invalid *InvalidTransitionError
				assert.True(t, errors.As(err, &invalid), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, dec.To)
			assert.Equal(t, tt.noop, dec.Noop)
		})
	}
}

func TestDecidePayoutAdminOnly(t *testing.T) {
	_, err := DecidePayout(PayoutRequest{Payout: payout(models.PayoutPending, ""), Action: PayoutInitiate, Actor: talent})
	var forbidden *ForbiddenError
	assert.True(t, errors.As(err, &forbidden))
}

func TestCheckPayoutPrerequisites(t *testing.T) {
	number := "254712345678"
	tests := []struct {
		name string
		user models.User
		want Prerequisite
	}{
		{name: "no number", user: models.User{VerificationStatus: models.KycVerified}, want: PrerequisiteMpesaNumber},
		{name: "unverified number", user: models.User{MpesaNumber: &number, VerificationStatus: models.KycVerified}, want: PrerequisiteMpesaVerification},
		{name: "kyc pending", user: models.User{MpesaNumber: &number, MpesaVerified: true, VerificationStatus: models.KycPending}, want: PrerequisiteKycVerification},
		{name: "all met", user: models.User{MpesaNumber: &number, MpesaVerified: true, VerificationStatus: models.KycVerified}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPayoutPrerequisites(&tt.user)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			var prereq *PayoutPrerequisiteError
			require.True(t, errors.As(err, &prereq))
			assert.Equal(t, tt.want, prereq.Prerequisite)
		})
	}
}

func TestCheckPayoutEligible(t *testing.T) {
	for _, s := range []models.BookingStatus{models.BookingAccepted, models.BookingInProgress, models.BookingCompleted} {
		assert.NoError(t, CheckPayoutEligible(booking(s)), s)
	}
	for _, s := range []models.BookingStatus{models.BookingPending, models.BookingDeclined, models.BookingCancelled, models.BookingDisputed} {
		var invalid *InvalidTransitionError
		assert.True(t, errors.As(CheckPayoutEligible(booking(s)), &invalid), s)
	}
}
