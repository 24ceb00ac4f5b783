// Package token issues and verifies the development backend's credentials:
// HS256 access tokens and opaque, rotating refresh tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/hr-console/token/jwt"
	"github.com/jrsteele09/hr-console/token/refresh"
	"github.com/jrsteele09/hr-console/users"
)

var ErrUnknownUser = errors.New("token subject no longer exists")

// Pair is what a login or refresh hands back to the client.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	ExpiresIn    int // seconds
}

type Manager struct {
	creator      *jwt.Creator
	inspector    *jwt.Inspector
	refresh      *refresh.Manager
	userRepo     users.UserRepo
	revokedCache RevokedTokenCache

	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

func New(refreshRepo refresh.Repo, userRepo users.UserRepo, signer jwt.Signer, options ...ManagerOption) (*Manager, error) {
	if userRepo == nil {
		return nil, errors.New("[token.New] user repo is required")
	}
	if signer == nil {
		return nil, errors.New("[token.New] signer is required")
	}

	m := &Manager{
		userRepo: userRepo,
		issuer:   jwt.DefaultIssuer,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.revokedCache == nil {
		m.revokedCache = NewInMemoryRevokedTokenCache(m.nowFunc)
	}

	var err error
	m.creator, err = jwt.NewCreator(signer,
		jwt.WithIssuer(m.issuer),
		jwt.WithExpiry(m.accessTokenExpiry),
		jwt.WithNowTime(m.nowFunc),
	)
	if err != nil {
		return nil, err
	}
	m.inspector = jwt.NewInspector(signer, m.issuer, m.revokedCache, m.nowFunc)

	m.refresh, err = refresh.NewManager(refreshRepo,
		refresh.WithExpiry(m.refreshTokenExpiry),
		refresh.WithNowTime(m.nowFunc),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Issue creates a fresh access and refresh token for user.
func (m *Manager) Issue(user *users.User) (Pair, error) {
	access, exp, err := m.creator.CreateAccessToken(user)
	if err != nil {
		return Pair{}, err
	}
	rt, err := m.refresh.Create(user.ID)
	if err != nil {
		return Pair{}, err
	}
	return m.pair(access, rt, exp), nil
}

// Refresh rotates refreshToken and issues a new access token for its owner.
// The returned user is the current profile of the owner.
func (m *Manager) Refresh(refreshToken string) (Pair, *users.User, error) {
	userID, next, err := m.refresh.Rotate(refreshToken)
	if err != nil {
		return Pair{}, nil, fmt.Errorf("[Manager Refresh] %w", err)
	}

	user, err := m.userRepo.GetByID(userID)
	if err != nil {
		_ = m.refresh.Revoke(next)
		return Pair{}, nil, fmt.Errorf("[Manager Refresh] %w: %s", ErrUnknownUser, userID)
	}

	access, exp, err := m.creator.CreateAccessToken(user)
	if err != nil {
		return Pair{}, nil, err
	}
	return m.pair(access, next, exp), user, nil
}

// Revoke invalidates a refresh token. Unknown tokens are ignored.
func (m *Manager) Revoke(refreshToken string) error {
	return m.refresh.Revoke(refreshToken)
}

// RevokeUser invalidates every refresh token a user holds, for example
// after a role change.
func (m *Manager) RevokeUser(userID users.ID) (int, error) {
	return m.refresh.RevokeUser(userID)
}

// RevokeAccessToken blocks a still valid access token until it expires.
func (m *Manager) RevokeAccessToken(rawToken string) error {
	claims, err := m.inspector.Verify(rawToken)
	if err != nil {
		return err
	}
	m.revokedCache.Add(claims.JTI, claims.ExpiresAt)
	return nil
}

// Verify returns the claims of a valid, unrevoked access token.
func (m *Manager) Verify(rawToken string) (*jwt.AccessClaims, error) {
	return m.inspector.Verify(rawToken)
}

// CleanupRevokedTokens drops revocations whose tokens have expired anyway.
func (m *Manager) CleanupRevokedTokens() {
	m.revokedCache.Cleanup()
}

func (m *Manager) pair(access, refreshToken string, exp time.Time) Pair {
	return Pair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresAt:    exp,
		ExpiresIn:    int(m.creator.Expiry().Seconds()),
	}
}
