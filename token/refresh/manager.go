package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/hr-console/users"
)

const (
	DefaultTokenLength = 32 // bytes
	DefaultExpiry      = 7 * 24 * time.Hour
)

var ErrExpired = errors.New("refresh token expired")

// Manager handles refresh token creation, rotation and revocation.
type Manager struct {
	repo    Repo
	length  int
	expiry  time.Duration
	nowTime func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

func WithExpiry(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.expiry = d
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func NewManager(repo Repo, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] refresh token repo is required")
	}
	m := &Manager{
		repo:    repo,
		length:  DefaultTokenLength,
		expiry:  DefaultExpiry,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Create generates and stores a new refresh token for userID. A user may
// hold several, one per signed in client.
func (m *Manager) Create(userID users.ID) (string, error) {
	tokenBytes := make([]byte, m.length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("[Manager Create] failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    m.nowTime(),
	}); err != nil {
		return "", fmt.Errorf("[Manager Create] failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Rotate consumes token and issues its replacement. A token can be rotated
// only once; an expired token is deleted and rejected.
func (m *Manager) Rotate(token string) (users.ID, string, error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		return "", "", err
	}
	if err := m.repo.Delete(token); err != nil {
		// lost a race with another rotation of the same token
		return "", "", err
	}
	if m.IsExpired(rt) {
		return "", "", ErrExpired
	}

	next, err := m.Create(rt.UserID)
	if err != nil {
		return "", "", err
	}
	return rt.UserID, next, nil
}

// Revoke deletes token. Unknown tokens are not an error.
func (m *Manager) Revoke(token string) error {
	if err := m.repo.Delete(token); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// RevokeUser deletes every refresh token of userID.
func (m *Manager) RevokeUser(userID users.ID) (int, error) {
	return m.repo.DeleteByUserID(userID)
}

func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowTime().Sub(rt.Iat) > m.expiry
}
