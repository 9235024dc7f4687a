package utils

import (
	"strings"
	"testing"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/database"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCodeAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := randomCode(referralCodeLength)
		require.NoError(t, err)
		assert.Len(t, code, referralCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(letterBytes, r), "unexpected rune %q", r)
		}
	}
}

func TestGenerateUniqueReferralCode(t *testing.T) {
	db, err := database.Connect(configs.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := GenerateUniqueReferralCode(db)
		require.NoError(t, err)
		require.False(t, seen[code])
		seen[code] = true

		c := code
		u := &models.User{FullName: "U", Email: code + "@example.com", Password: "x", Role: models.RoleTalent, ReferralCode: &c}
		require.NoError(t, db.Create(u).Error)
	}
}
