package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig        `envconfig:"APP"`
	HTTP       HTTPConfig       `envconfig:"HTTP"`
	Database   DatabaseConfig   `envconfig:"DB"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	JWT        JWTConfig        `envconfig:"JWT"`
	Admin      AdminConfig      `envconfig:"ADMIN"`
	Paystack   PaystackConfig   `envconfig:"PAYSTACK"`
	Cloudinary CloudinaryConfig `envconfig:"CLOUDINARY"`
	Email      EmailConfig      `envconfig:"EMAIL"`
	Booking    BookingConfig    `envconfig:"BOOKING"`
	Referral   ReferralConfig   `envconfig:"REFERRAL"`
	Payout     PayoutConfig     `envconfig:"PAYOUT"`
	Kyc        KycConfig        `envconfig:"KYC"`
	RateLimit  RateLimitConfig  `envconfig:"RATE_LIMIT"`
	Logging    LoggingConfig    `envconfig:"LOG"`
}

type AppConfig struct {
	Name        string `envconfig:"NAME" default:"talent-booking"`
	Environment string `envconfig:"ENV" default:"development"`
	Version     string `envconfig:"VERSION" default:"dev"`
}

type HTTPConfig struct {
	Addr         string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	AllowOrigins string        `envconfig:"ALLOW_ORIGINS" default:"*"`
	BodyLimit    int           `envconfig:"BODY_LIMIT" default:"20971520"`
}

type DatabaseConfig struct {
	Driver string `envconfig:"DRIVER" default:"postgres"`
	DSN    string `envconfig:"DSN" required:"true"`
}

// RedisConfig is optional; an empty Addr keeps OTP attempt counting in memory.
type RedisConfig struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

type JWTConfig struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	TTL    time.Duration `envconfig:"TTL" default:"72h"`
}

type AdminConfig struct {
	Email    string `envconfig:"EMAIL"`
	Password string `envconfig:"PASSWORD"`
	FullName string `envconfig:"FULL_NAME" default:"Platform Admin"`
}

type PaystackConfig struct {
	SecretKey     string        `envconfig:"SECRET_KEY"`
	BaseURL       string        `envconfig:"BASE_URL" default:"https://api.paystack.co"`
	Currency      string        `envconfig:"CURRENCY" default:"KES"`
	RecipientType string        `envconfig:"RECIPIENT_TYPE" default:"mobile_money"`
	BankCode      string        `envconfig:"BANK_CODE" default:"MPESA"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"10s"`
	RecipientTTL  time.Duration `envconfig:"RECIPIENT_TTL" default:"24h"`
}

type CloudinaryConfig struct {
	URL    string `envconfig:"URL"`
	Folder string `envconfig:"FOLDER" default:"kyc_documents"`
}

type EmailConfig struct {
	BrevoAPIKey string `envconfig:"BREVO_API_KEY"`
	Sender      string `envconfig:"SENDER"`
	SenderName  string `envconfig:"SENDER_NAME"`
}

type BookingConfig struct {
	CommissionRate float64       `envconfig:"COMMISSION_RATE" default:"0.15"`
	DisputeWindow  time.Duration `envconfig:"DISPUTE_WINDOW" default:"72h"`
}

type ReferralConfig struct {
	MinBookingAmount float64 `envconfig:"MIN_BOOKING_AMOUNT" default:"5000"`
	ReferrerReward   float64 `envconfig:"REFERRER_REWARD" default:"500"`
	ReferredReward   float64 `envconfig:"REFERRED_REWARD" default:"250"`
	ExpiryDays       int     `envconfig:"EXPIRY_DAYS" default:"90"`
	CreditBatchSize  int     `envconfig:"CREDIT_BATCH_SIZE" default:"100"`
	CreditSchedule   string  `envconfig:"CREDIT_SCHEDULE" default:"*/15 * * * *"`
	CleanupSchedule  string  `envconfig:"CLEANUP_SCHEDULE" default:"0 3 * * *"`
}

type PayoutConfig struct {
	MaxOTPAttempts    int           `envconfig:"OTP_MAX_ATTEMPTS" default:"5"`
	OTPWindow         time.Duration `envconfig:"OTP_WINDOW" default:"15m"`
	ReconcileSchedule string        `envconfig:"RECONCILE_SCHEDULE" default:"*/10 * * * *"`
	ReconcileAfter    time.Duration `envconfig:"RECONCILE_AFTER" default:"10m"`
}

type KycConfig struct {
	MaxDocumentBytes int64 `envconfig:"MAX_DOCUMENT_BYTES" default:"5242880"`
}

type RateLimitConfig struct {
	RPS   float64 `envconfig:"RPS" default:"1"`
	Burst int     `envconfig:"BURST" default:"5"`
}

type LoggingConfig struct {
	Level    string `envconfig:"LEVEL" default:"info"`
	Format   string `envconfig:"FORMAT" default:"json"`
	Output   string `envconfig:"OUTPUT" default:"stdout"`
	FilePath string `envconfig:"FILE_PATH"`
}

// Load reads an optional .env file and binds the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if len(c.JWT.Secret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.Booking.CommissionRate < 0 || c.Booking.CommissionRate >= 1 {
		return fmt.Errorf("BOOKING_COMMISSION_RATE must be in [0, 1), got %v", c.Booking.CommissionRate)
	}
	if c.Booking.DisputeWindow <= 0 {
		return errors.New("BOOKING_DISPUTE_WINDOW must be positive")
	}
	if c.Referral.MinBookingAmount < 0 || c.Referral.ReferrerReward < 0 || c.Referral.ReferredReward < 0 {
		return errors.New("referral amounts must not be negative")
	}
	if c.Referral.ExpiryDays <= 0 {
		return errors.New("REFERRAL_EXPIRY_DAYS must be positive")
	}
	if c.Referral.CreditBatchSize <= 0 {
		return errors.New("REFERRAL_CREDIT_BATCH_SIZE must be positive")
	}
	if c.Payout.MaxOTPAttempts <= 0 || c.Payout.OTPWindow <= 0 {
		return errors.New("PAYOUT_OTP_MAX_ATTEMPTS and PAYOUT_OTP_WINDOW must be positive")
	}
	if c.Kyc.MaxDocumentBytes <= 0 {
		return errors.New("KYC_MAX_DOCUMENT_BYTES must be positive")
	}
	if c.RateLimit.RPS <= 0 {
		return errors.New("RATE_LIMIT_RPS must be positive")
	}
	return nil
}

func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
