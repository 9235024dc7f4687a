package limiter

import (
	"sync"

	"golang.org/x/time/rate"
)

// KeyedLimiter holds one token bucket per key, e.g. per client IP.
type KeyedLimiter struct {
	limiters sync.Map
	rps      float64
	burst    int
}

func NewKeyedLimiter(rps float64, burst int) *KeyedLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &KeyedLimiter{rps: rps, burst: burst}
}

func (l *KeyedLimiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *KeyedLimiter) get(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	actual, _ := l.limiters.LoadOrStore(key, lim)
	return actual.(*rate.Limiter)
}
