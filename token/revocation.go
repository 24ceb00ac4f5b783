package token

import (
	"sync"
	"time"
)

// RevokedTokenCache remembers revoked access token ids until they expire.
type RevokedTokenCache interface {
	Add(jti string, exp time.Time)
	IsRevoked(jti string) bool
	Cleanup() // Remove expired entries
}

var _ RevokedTokenCache = (*InMemoryRevokedTokenCache)(nil)

type InMemoryRevokedTokenCache struct {
	revoked map[string]time.Time
	nowTime func() time.Time
	mu      sync.RWMutex
}

func NewInMemoryRevokedTokenCache(nowTime func() time.Time) *InMemoryRevokedTokenCache {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &InMemoryRevokedTokenCache{
		revoked: make(map[string]time.Time),
		nowTime: nowTime,
	}
}

func (c *InMemoryRevokedTokenCache) Add(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = exp
}

func (c *InMemoryRevokedTokenCache) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}

func (c *InMemoryRevokedTokenCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowTime()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}

func (c *InMemoryRevokedTokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.revoked)
}
