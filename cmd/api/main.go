package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/database"
	"github.com/anjiri1684/talent_booking/handlers"
	"github.com/anjiri1684/talent_booking/jobs"
	"github.com/anjiri1684/talent_booking/limiter"
	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/metrics"
	"github.com/anjiri1684/talent_booking/notifications"
	"github.com/anjiri1684/talent_booking/payments"
	"github.com/anjiri1684/talent_booking/routes"
	"github.com/anjiri1684/talent_booking/services"
	"github.com/anjiri1684/talent_booking/storage"
	"github.com/anjiri1684/talent_booking/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "talent-booking: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := configs.Load()
	if err != nil {
		return err
	}
	log, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.SeedAdmin(db, cfg.Admin, log); err != nil {
		return err
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attempts := attemptLimiter(ctx, cfg.Redis, log)
	paystack := payments.NewPaystackClient(cfg.Paystack, log)
	mailer := notifications.NewBrevoService(cfg.Email, log)

	var docs services.DocumentStore = storage.Disabled{}
	if store, err := storage.NewCloudinaryStore(cfg.Cloudinary); err != nil {
		if cfg.App.IsProduction() {
			return err
		}
		log.Warn().Err(err).Msg("KYC uploads disabled")
	} else {
		docs = store
	}

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	referrals := services.NewReferralService(db, cfg.Referral, mailer, log)
	payouts := services.NewPayoutService(db, paystack, attempts, referrals, mailer, hub, cfg.Payout, log)
	h := &handlers.Handler{
		Auth:             services.NewAuthService(db, referrals, mailer, cfg.JWT, log),
		Users:            services.NewUserService(db, log),
		Bookings:         services.NewBookingService(db, paystack, referrals, mailer, cfg.Booking, log),
		Disputes:         services.NewDisputeService(db, mailer, hub, log),
		Payouts:          payouts,
		Kyc:              services.NewKycService(db, docs, mailer, cfg.Kyc, log),
		Referrals:        referrals,
		Webhooks:         paystack,
		Feed:             hub,
		MaxDocumentBytes: cfg.Kyc.MaxDocumentBytes,
		Logger:           log,
	}

	app := newApp(cfg, log)
	routes.Register(app, routes.Deps{
		Handler:   h,
		JWTSecret: cfg.JWT.Secret,
		Public:    limiter.NewKeyedLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	})

	scheduler := jobs.NewScheduler(log)
	if err := jobs.Schedule(scheduler, referrals, payouts, cfg.Referral, cfg.Payout); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("server listening")
		errc <- app.Listen(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// attemptLimiter prefers Redis so OTP attempt counts survive restarts and are shared between
// instances, and falls back to process memory when Redis is absent or unreachable.
func attemptLimiter(ctx context.Context, cfg configs.RedisConfig, log *zerolog.Logger) limiter.AttemptLimiter {
	memory := limiter.NewMemoryLimiter()
	if cfg.Addr == "" {
		log.Warn().Msg("REDIS_ADDR not set, OTP attempts are counted in memory")
		return memory
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := limiter.Ping(pingCtx, client); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unreachable at startup")
	}
	return limiter.NewFailoverLimiter(limiter.NewRedisLimiter(client, "talent_booking:"), memory, log)
}

func newApp(cfg *configs.Config, log *zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		BodyLimit:    cfg.HTTP.BodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("unhandled error")
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.HTTP.AllowOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: time.RFC3339,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	return app
}
