package config

import (
	"os"
	"path/filepath"
	"time"
)

// Token store backends
const (
	TokenStoreMemory = "memory"
	TokenStoreRedis  = "redis"
	TokenStoreFile   = "file"
)

type SessionConfig interface {
	GetAllowedRoles() []string
	GetTokenStore() string
	GetRedisURL() string
	GetSessionFile() string
	GetSessionTTL() time.Duration
	GetRefreshLeeway() time.Duration
	GetCookieSecure() bool
}

type Session struct {
	allowedRoles  []string
	tokenStore    string
	redisURL      string
	sessionFile   string
	sessionTTL    time.Duration
	refreshLeeway time.Duration
	cookieSecure  bool
}

var _ SessionConfig = Session{}

// GetAllowedRoles returns the roles permitted to use the console
func (s Session) GetAllowedRoles() []string {
	roles := make([]string, len(s.allowedRoles))
	copy(roles, s.allowedRoles)
	return roles
}

func (s Session) GetTokenStore() string {
	return s.tokenStore
}

func (s Session) GetRedisURL() string {
	return s.redisURL
}

// GetSessionFile is where the CLI persists its session
func (s Session) GetSessionFile() string {
	return s.sessionFile
}

func (s Session) GetSessionTTL() time.Duration {
	return s.sessionTTL
}

// GetRefreshLeeway is how long before expiry an access token is proactively refreshed
func (s Session) GetRefreshLeeway() time.Duration {
	return s.refreshLeeway
}

func (s Session) GetCookieSecure() bool {
	return s.cookieSecure
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hrconsole/session.json"
	}
	return filepath.Join(home, ".hrconsole", "session.json")
}
