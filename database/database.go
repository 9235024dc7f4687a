package database

import (
	"errors"
	"fmt"
	stdlog "log"
	"strings"
	"time"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the database named by cfg. sqlite is used for local runs and tests.
func Connect(cfg configs.DatabaseConfig, logger *zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLog := gormlogger.Discard
	if logger != nil {
		gormLog = gormlogger.New(stdlog.New(logger, "", 0), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if strings.EqualFold(cfg.Driver, "sqlite") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer; a single connection also keeps :memory: databases shared.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Booking{},
		&models.Dispute{},
		&models.Payout{},
		&models.Transaction{},
		&models.KycSubmission{},
		&models.KycDocument{},
		&models.Referral{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// SeedAdmin creates the configured admin account when it does not exist yet.
func SeedAdmin(db *gorm.DB, cfg configs.AdminConfig, logger *zerolog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		logger.Warn().Msg("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", strings.ToLower(cfg.Email)).First(&existing).Error
	if err == nil {
		logger.Debug().Str("email", existing.Email).Msg("admin user already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check admin user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		FullName:           cfg.FullName,
		Email:              strings.ToLower(cfg.Email),
		Password:           string(hashed),
		Role:               models.RoleAdmin,
		VerificationStatus: models.KycVerified,
		IsActive:           true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	logger.Info().Str("email", admin.Email).Msg("admin user seeded")
	return nil
}
