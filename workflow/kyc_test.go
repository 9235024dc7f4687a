package workflow

import (
	"errors"
	"testing"

	"github.com/anjiri1684/talent_booking/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideKyc(t *testing.T) {
	t.Run("submit from unverified", func(t *testing.T) {
		dec, err := DecideKyc(KycRequest{Current: models.KycUnverified, Action: KycSubmit, Actor: talent, Subject: talent.ID})
		require.NoError(t, err)
		assert.Equal(t, models.KycPending, dec.To)
	})

	t.Run("resubmit after rejection", func(t *testing.T) {
		dec, err := DecideKyc(KycRequest{Current: models.KycRejected, Action: KycSubmit, Actor: organizer, Subject: organizer.ID})
		require.NoError(t, err)
		assert.Equal(t, models.KycPending, dec.To)
	})

	t.Run("submit while pending", func(t *testing.T) {
		_, err := DecideKyc(KycRequest{Current: models.KycPending, Action: KycSubmit, Actor: talent, Subject: talent.ID})
		var invalid *InvalidTransitionError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("submit for someone else", func(t *testing.T) {
		_, err := DecideKyc(KycRequest{Current: models.KycUnverified, Action: KycSubmit, Actor: talent, Subject: organizer.ID})
		var forbidden *ForbiddenError
		assert.True(t, errors.As(err, &forbidden))
	})

	t.Run("approve", func(t *testing.T) {
		dec, err := DecideKyc(KycRequest{Current: models.KycPending, Action: KycApprove, Actor: admin})
		require.NoError(t, err)
		assert.Equal(t, models.KycVerified, dec.To)
	})

	t.Run("reject needs reason", func(t *testing.T) {
		_, err := DecideKyc(KycRequest{Current: models.KycPending, Action: KycReject, Actor: admin})
		var validation *ValidationError
		require.True(t, errors.As(err, &validation))
		assert.Equal(t, "reason", validation.Field)

		dec, err := DecideKyc(KycRequest{Current: models.KycPending, Action: KycReject, Actor: admin, Reason: "blurred image"})
		require.NoError(t, err)
		assert.Equal(t, models.KycRejected, dec.To)
	})

	t.Run("approve by non admin", func(t *testing.T) {
		_, err := DecideKyc(KycRequest{Current: models.KycPending, Action: KycApprove, Actor: talent})
		var forbidden *ForbiddenError
		assert.True(t, errors.As(err, &forbidden))
	})
}

func TestCheckDocuments(t *testing.T) {
	err := CheckDocuments([]models.DocumentType{models.DocumentNationalIDFront})
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, string(models.DocumentNationalIDBack), validation.Field)
	assert.Contains(t, err.Error(), "national_id_back")

	err = CheckDocuments([]models.DocumentType{models.DocumentNationalIDBack, models.DocumentSelfie})
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, string(models.DocumentNationalIDFront), validation.Field)

	assert.NoError(t, CheckDocuments([]models.DocumentType{models.DocumentNationalIDFront, models.DocumentNationalIDBack}))
	assert.Error(t, CheckDocuments([]models.DocumentType{models.DocumentNationalIDFront, models.DocumentNationalIDFront, models.DocumentNationalIDBack}))
}

func TestVerificationState(t *testing.T) {
	s, err := VerificationIdle.Next(EventStart)
	require.NoError(t, err)
	assert.Equal(t, VerificationVerifying, s)

	s, err = s.Next(EventRejected)
	require.NoError(t, err)
	assert.Equal(t, VerificationFailed, s)

	s, err = s.Next(EventRetry)
	require.NoError(t, err)
	s, err = s.Next(EventConfirmed)
	require.NoError(t, err)
	assert.Equal(t, VerificationVerified, s)

	_, err = s.Next(EventRetry)
	assert.Error(t, err)
	_, err = VerificationIdle.Next(EventConfirmed)
	assert.Error(t, err)

	assert.Equal(t, VerificationVerifying, PayoutVerification(models.PayoutProcessing))
	assert.Equal(t, VerificationIdle, PayoutVerification(models.PayoutPending))
	assert.Equal(t, VerificationVerified, PayoutVerification(models.PayoutCompleted))
	assert.Equal(t, VerificationFailed, PayoutVerification(models.PayoutFailed))
	assert.Equal(t, VerificationIdle, PayoutVerification(models.PayoutStatus("LOST")))

	ref := "PSK_1"
	assert.Equal(t, VerificationVerified, PaymentVerification(&models.Booking{PaymentReference: &ref}))
	assert.Equal(t, VerificationIdle, PaymentVerification(&models.Booking{}))
}

func TestReplay(t *testing.T) {
	s, err := Replay(EventStart, EventRejected, EventRetry, EventConfirmed)
	require.NoError(t, err)
	assert.Equal(t, VerificationVerified, s)

	s, err = Replay(EventStart, EventConfirmed, EventRetry)
	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, VerificationVerified, s)

	s, err = Replay()
	require.NoError(t, err)
	assert.Equal(t, VerificationIdle, s)
}
