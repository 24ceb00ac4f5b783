package clientsession_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/server/clientsession"
	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/tokenstore"
	"github.com/jrsteele09/hr-console/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	registry *clientsession.Registry
	provider tokenstore.Provider
	now      time.Time
	mu       sync.Mutex
}

func (f *testFixture) nowTime() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func setupTestFixture(t *testing.T, profileRole users.RoleType) *testFixture {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != backend.CurrentUserPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":2,"email":"hr@hr.local","role":"`+string(profileRole)+`","first_name":"Helena"}`)
	}))
	t.Cleanup(srv.Close)

	f := &testFixture{
		provider: tokenstore.NewInMemoryProvider(),
		now:      time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	registry, err := clientsession.NewRegistry(backend.NewClient(srv.URL), f.provider, users.DefaultAllowList,
		clientsession.WithIdleTTL(time.Hour),
		clientsession.WithNowTime(f.nowTime),
	)
	require.NoError(t, err)
	f.registry = registry
	return f
}

func storedSession(role users.RoleType) sessions.Session {
	return sessions.Session{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		TokenType:    "bearer",
		Expiry:       time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		User:         users.User{ID: "2", Email: "hr@hr.local", Role: role},
	}
}

func TestNewRegistry_RequiresDependencies(t *testing.T) {
	_, err := clientsession.NewRegistry(nil, tokenstore.NewInMemoryProvider(), users.DefaultAllowList)
	require.Error(t, err)

	_, err = clientsession.NewRegistry(backend.NewClient("http://localhost"), nil, users.DefaultAllowList)
	require.Error(t, err)
}

func TestGet_CreatesOneEntryPerClient(t *testing.T) {
	f := setupTestFixture(t, users.RoleHR)
	ctx := context.Background()

	a, err := f.registry.Get(ctx, "client-a")
	require.NoError(t, err)
	again, err := f.registry.Get(ctx, "client-a")
	require.NoError(t, err)
	b, err := f.registry.Get(ctx, "client-b")
	require.NoError(t, err)

	require.Same(t, a, again)
	require.NotSame(t, a, b)
	require.Equal(t, 2, f.registry.Len())
	require.False(t, a.Context.IsAuthenticated())
	require.False(t, a.Context.Snapshot().Loading)

	_, err = f.registry.Get(ctx, "")
	require.Error(t, err)
}

func TestGet_ResolvesStoredSession(t *testing.T) {
	f := setupTestFixture(t, users.RoleHR)
	ctx := context.Background()
	require.NoError(t, f.provider("client-a").Save(ctx, storedSession(users.RoleHR)))

	e, err := f.registry.Get(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, e.Context.IsAuthenticated())
	require.Equal(t, "Helena", e.Context.User().FirstName)
}

func TestGet_RejectsDemotedStoredSession(t *testing.T) {
	f := setupTestFixture(t, users.RoleEmployee)
	ctx := context.Background()
	require.NoError(t, f.provider("client-a").Save(ctx, storedSession(users.RoleHR)))

	e, err := f.registry.Get(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, e.Context.IsAuthenticated())

	_, err = f.provider("client-a").Load(ctx)
	require.ErrorIs(t, err, tokenstore.ErrAbsent)
}

func TestGet_AbortedFirstRequestDoesNotLockOutClient(t *testing.T) {
	f := setupTestFixture(t, users.RoleHR)
	require.NoError(t, f.provider("client-1").Save(context.Background(), storedSession(users.RoleHR)))

	aborted, cancel := context.WithCancel(context.Background())
	cancel()
	e, err := f.registry.Get(aborted, "client-1")
	require.NoError(t, err)
	require.True(t, e.Context.IsAuthenticated())

	again, err := f.registry.Get(context.Background(), "client-1")
	require.NoError(t, err)
	require.Same(t, e, again)
	require.True(t, again.Context.IsAuthenticated())
}

func TestSweep_DropsIdleEntries(t *testing.T) {
	f := setupTestFixture(t, users.RoleHR)
	ctx := context.Background()

	_, err := f.registry.Get(ctx, "idle")
	require.NoError(t, err)
	f.advance(45 * time.Minute)
	_, err = f.registry.Get(ctx, "busy")
	require.NoError(t, err)
	f.advance(30 * time.Minute)

	require.Equal(t, 1, f.registry.Sweep())
	require.Equal(t, 1, f.registry.Len())

	f.registry.Delete("busy")
	require.Equal(t, 0, f.registry.Len())
}

func TestRun_StopsWithContext(t *testing.T) {
	f := setupTestFixture(t, users.RoleHR)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.registry.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
