package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DSN", "file::memory:")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 0.15, cfg.Booking.CommissionRate)
	assert.Equal(t, 72*time.Hour, cfg.Booking.DisputeWindow)
	assert.Equal(t, 5000.0, cfg.Referral.MinBookingAmount)
	assert.Equal(t, 90, cfg.Referral.ExpiryDays)
	assert.Equal(t, 5, cfg.Payout.MaxOTPAttempts)
	assert.Equal(t, "KES", cfg.Paystack.Currency)
	assert.Equal(t, "MPESA", cfg.Paystack.BankCode)
}

func TestLoadFromEnvFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REFERRAL_REFERRER_REWARD=750\nBOOKING_DISPUTE_WINDOW=24h\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("REFERRAL_REFERRER_REWARD")
		os.Unsetenv("BOOKING_DISPUTE_WINDOW")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 750.0, cfg.Referral.ReferrerReward)
	assert.Equal(t, 24*time.Hour, cfg.Booking.DisputeWindow)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("DB_DSN")
	os.Unsetenv("JWT_SECRET")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database:  DatabaseConfig{Driver: "sqlite", DSN: "x"},
			JWT:       JWTConfig{Secret: "0123456789abcdef"},
			Booking:   BookingConfig{CommissionRate: 0.1, DisputeWindow: time.Hour},
			Referral:  ReferralConfig{ExpiryDays: 30, CreditBatchSize: 10},
			Payout:    PayoutConfig{MaxOTPAttempts: 3, OTPWindow: time.Minute},
			Kyc:       KycConfig{MaxDocumentBytes: 1024},
			RateLimit: RateLimitConfig{RPS: 1, Burst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "short secret", mutate: func(c *Config) { c.JWT.Secret = "short" }, wantErr: true},
		{name: "commission of one", mutate: func(c *Config) { c.Booking.CommissionRate = 1 }, wantErr: true},
		{name: "negative reward", mutate: func(c *Config) { c.Referral.ReferredReward = -1 }, wantErr: true},
		{name: "zero dispute window", mutate: func(c *Config) { c.Booking.DisputeWindow = 0 }, wantErr: true},
		{name: "zero otp attempts", mutate: func(c *Config) { c.Payout.MaxOTPAttempts = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
