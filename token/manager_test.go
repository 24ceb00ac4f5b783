package token_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/token"
	"github.com/jrsteele09/hr-console/token/jwt"
	"github.com/jrsteele09/hr-console/token/refresh"
	refreshrepofake "github.com/jrsteele09/hr-console/token/refresh/repofake"
	"github.com/jrsteele09/hr-console/users"
	fakeuserrepo "github.com/jrsteele09/hr-console/users/repofake"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	manager   *token.Manager
	users     *fakeuserrepo.FakeUserRepo
	refreshes *refreshrepofake.FakeRefreshTokenRepo
	now       *time.Time
	user      *users.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := &testFixture{
		users:     fakeuserrepo.NewFakeUserRepo(),
		refreshes: refreshrepofake.NewFakeRefreshTokenRepo(),
		now:       &now,
	}

	f.user = &users.User{Email: "hr@example.com", Role: users.RoleHR, Active: true}
	require.NoError(t, f.users.Upsert(f.user))

	m, err := token.New(f.refreshes, f.users, jwt.NewHMACSigner("test-secret"),
		token.WithTokenExpiry(15*time.Minute, time.Hour),
		token.WithNowFunc(func() time.Time { return *f.now }),
	)
	require.NoError(t, err)
	f.manager = m
	return f
}

func TestManager_IssueAndVerify(t *testing.T) {
	f := setupTestFixture(t)

	pair, err := f.manager.Issue(f.user)
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, 900, pair.ExpiresIn)
	require.Equal(t, f.now.Add(15*time.Minute), pair.ExpiresAt)

	claims, err := f.manager.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, claims.Subject)
	require.Equal(t, users.RoleHR, claims.Role)
	require.Equal(t, "hr@example.com", claims.Email)
	require.NotEmpty(t, claims.JTI)

	// the console reads the same expiry from the unverified exp claim
	require.WithinDuration(t, pair.ExpiresAt, sessions.ResolveExpiry(pair.AccessToken, 0, *f.now), 0)
}

func TestManager_VerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	f := setupTestFixture(t)

	pair, err := f.manager.Issue(f.user)
	require.NoError(t, err)

	other, err := token.New(refreshrepofake.NewFakeRefreshTokenRepo(), f.users, jwt.NewHMACSigner("other-secret"))
	require.NoError(t, err)
	_, err = other.Verify(pair.AccessToken)
	require.ErrorIs(t, err, jwt.ErrInvalidToken)

	*f.now = f.now.Add(16 * time.Minute)
	_, err = f.manager.Verify(pair.AccessToken)
	require.ErrorIs(t, err, jwt.ErrInvalidToken)

	_, err = f.manager.Verify("")
	require.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestManager_RefreshRotates(t *testing.T) {
	f := setupTestFixture(t)

	first, err := f.manager.Issue(f.user)
	require.NoError(t, err)

	second, user, err := f.manager.Refresh(first.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, f.user.Email, user.Email)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, 1, f.refreshes.Count())

	_, _, err = f.manager.Refresh(first.RefreshToken)
	require.ErrorIs(t, err, refresh.ErrNotFound)
}

func TestManager_RefreshPicksUpRoleChanges(t *testing.T) {
	f := setupTestFixture(t)

	pair, err := f.manager.Issue(f.user)
	require.NoError(t, err)

	f.user.Role = users.RoleEmployee
	require.NoError(t, f.users.Upsert(f.user))

	next, user, err := f.manager.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, users.RoleEmployee, user.Role)

	claims, err := f.manager.Verify(next.AccessToken)
	require.NoError(t, err)
	require.Equal(t, users.RoleEmployee, claims.Role)
}

func TestManager_RefreshExpired(t *testing.T) {
	f := setupTestFixture(t)

	pair, err := f.manager.Issue(f.user)
	require.NoError(t, err)

	*f.now = f.now.Add(2 * time.Hour)
	_, _, err = f.manager.Refresh(pair.RefreshToken)
	require.ErrorIs(t, err, refresh.ErrExpired)
	require.Equal(t, 0, f.refreshes.Count())
}

func TestManager_RefreshDeletedUser(t *testing.T) {
	f := setupTestFixture(t)

	pair, err := f.manager.Issue(f.user)
	require.NoError(t, err)
	require.NoError(t, f.users.Delete(f.user.Email))

	_, _, err = f.manager.Refresh(pair.RefreshToken)
	require.ErrorIs(t, err, token.ErrUnknownUser)
	require.Equal(t, 0, f.refreshes.Count())
}

func TestManager_Revocation(t *testing.T) {
	f := setupTestFixture(t)

	a, err := f.manager.Issue(f.user)
	require.NoError(t, err)
	b, err := f.manager.Issue(f.user)
	require.NoError(t, err)
	require.Equal(t, 2, f.refreshes.Count())

	require.NoError(t, f.manager.Revoke(a.RefreshToken))
	require.NoError(t, f.manager.Revoke(a.RefreshToken), "unknown tokens are ignored")
	_, _, err = f.manager.Refresh(a.RefreshToken)
	require.Error(t, err)

	n, err := f.manager.RevokeUser(f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, _, err = f.manager.Refresh(b.RefreshToken)
	require.Error(t, err)

	require.NoError(t, f.manager.RevokeAccessToken(b.AccessToken))
	_, err = f.manager.Verify(b.AccessToken)
	require.ErrorIs(t, err, jwt.ErrRevokedToken)
}

func TestRevokedTokenCache_Cleanup(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	cache := token.NewInMemoryRevokedTokenCache(func() time.Time { return now })

	cache.Add("old", now.Add(-time.Minute))
	cache.Add("live", now.Add(time.Minute))
	cache.Cleanup()

	require.False(t, cache.IsRevoked("old"))
	require.True(t, cache.IsRevoked("live"))
	require.Equal(t, 1, cache.Len())
}
