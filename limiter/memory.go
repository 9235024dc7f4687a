package limiter

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	expires time.Time
}

// MemoryLimiter is the in-process fallback when Redis is not configured or unavailable.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{now: time.Now, windows: make(map[string]*window)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expires) {
		w = &window{expires: now.Add(ttl)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= limit, nil
}
