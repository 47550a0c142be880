package devserver

import (
	"sync"
	"time"
)

// RevokedTokens remembers the jti of access tokens revoked before their expiry.
type RevokedTokens struct {
	revoked map[string]time.Time
	now     func() time.Time
	mu      sync.RWMutex
}

func NewRevokedTokens(now func() time.Time) *RevokedTokens {
	return &RevokedTokens{
		revoked: make(map[string]time.Time),
		now:     now,
	}
}

// Add revokes jti until exp. Expired entries are dropped on the way.
func (c *RevokedTokens) Add(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanup()
	c.revoked[jti] = exp
}

func (c *RevokedTokens) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}

func (c *RevokedTokens) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.revoked)
}

func (c *RevokedTokens) cleanup() {
	now := c.now()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}
