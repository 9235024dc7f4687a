package payments

import (
	"sync"
	"time"
)

type cachedRecipient struct {
	code    string
	expires time.Time
}

// recipientCache remembers provider recipient codes per M-Pesa number.
type recipientCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedRecipient
}

func newRecipientCache(ttl time.Duration) *recipientCache {
	return &recipientCache{ttl: ttl, now: time.Now, entries: make(map[string]cachedRecipient)}
}

func (c *recipientCache) get(number string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[number]
	if !ok || !c.now().Before(e.expires) {
		return "", false
	}
	return e.code, true
}

// getOrCreate fetches a cached code or calls create once while holding the write lock.
func (c *recipientCache) getOrCreate(number string, create func() (string, error)) (string, error) {
	if code, ok := c.get(number); ok {
		return code, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[number]; ok && c.now().Before(e.expires) {
		return e.code, nil
	}

	code, err := create()
	if err != nil {
		return "", err
	}
	c.entries[number] = cachedRecipient{code: code, expires: c.now().Add(c.ttl)}
	return code, nil
}
