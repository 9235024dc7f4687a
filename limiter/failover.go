package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverLimiter uses the primary limiter and switches to the fallback while the primary errors.
type FailoverLimiter struct {
	primary  AttemptLimiter
	fallback AttemptLimiter
	logger   *zerolog.Logger
	retry    time.Duration

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverLimiter(primary, fallback AttemptLimiter, logger *zerolog.Logger) *FailoverLimiter {
	return &FailoverLimiter{primary: primary, fallback: fallback, logger: logger, retry: time.Minute}
}

func (l *FailoverLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !l.isDown.Load() || l.shouldRetry() {
		ok, err := l.primary.Allow(ctx, key, limit, window)
		if err == nil {
			if l.isDown.Swap(false) {
				l.logger.Info().Msg("primary attempt limiter recovered")
			}
			return ok, nil
		}
		if !l.isDown.Swap(true) {
			l.logger.Error().Err(err).Msg("primary attempt limiter failed, falling back to memory")
		}
		l.mu.Lock()
		l.lastCheck = time.Now()
		l.mu.Unlock()
	}
	return l.fallback.Allow(ctx, key, limit, window)
}

func (l *FailoverLimiter) shouldRetry() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Since(l.lastCheck) > l.retry
}
