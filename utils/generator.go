package utils

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/anjiri1684/talent_booking/models"
	"gorm.io/gorm"
)

const (
	referralCodeLength = 8
	maxCodeAttempts    = 10
	letterBytes        = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var ErrCodeSpaceExhausted = errors.New("could not generate a unique referral code")

func randomCode(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(letterBytes)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = letterBytes[idx.Int64()]
	}
	return string(b), nil
}

// GenerateUniqueReferralCode returns a code that no user holds yet.
func GenerateUniqueReferralCode(tx *gorm.DB) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := randomCode(referralCodeLength)
		if err != nil {
			return "", err
		}

		var count int64
		if err := tx.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
