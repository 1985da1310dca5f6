package twitch

import (
	"sync"
	"time"
)

// TokenCache keeps one app access token until shortly before it expires.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	skew      time.Duration
	now       func() time.Time
}

// NewTokenCache returns an empty cache. Tokens are treated as expired skew
// before their real expiry.
func NewTokenCache(skew time.Duration) *TokenCache {
	return &TokenCache{skew: skew, now: time.Now}
}

// Get returns the cached token if it is still valid.
func (c *TokenCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !c.now().Before(c.expiresAt.Add(-c.skew)) {
		return "", false
	}
	return c.token, true
}

// Set stores token for ttl.
func (c *TokenCache) Set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = c.now().Add(ttl)
}

// Invalidate drops the cached token.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
