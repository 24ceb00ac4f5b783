package guard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/hr-console/auth"
	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/guard"
	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/tokenstore"
	"github.com/jrsteele09/hr-console/users"
	"github.com/stretchr/testify/require"
)

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Replace(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func TestViewGuard_Transitions(t *testing.T) {
	user := &users.User{Role: users.RoleHR}
	nav := &recordingNavigator{}
	g := guard.NewViewGuard(nav)

	state, d := g.Evaluate(sessions.State{Loading: true})
	require.Equal(t, guard.Resolving, state)
	require.Equal(t, guard.NoDecision, d)

	state, d = g.Evaluate(sessions.State{User: user, Authenticated: true})
	require.Equal(t, guard.Authenticated, state)
	require.Equal(t, guard.Render, d)

	state, d = g.Evaluate(sessions.State{})
	require.Equal(t, guard.Unauthenticated, state)
	require.Equal(t, guard.Redirect, d)
	require.Equal(t, []string{auth.LoginRoute}, nav.Paths())
}

func TestViewGuard_RepeatedStateRedirectsOnce(t *testing.T) {
	nav := &recordingNavigator{}
	g := guard.NewViewGuard(nav)

	for i := 0; i < 3; i++ {
		g.Evaluate(sessions.State{})
	}
	require.Equal(t, []string{auth.LoginRoute}, nav.Paths())
}

func TestViewGuard_NoRedirectWhileLoading(t *testing.T) {
	nav := &recordingNavigator{}
	g := guard.NewViewGuard(nav)

	g.Evaluate(sessions.State{Loading: true})
	g.Evaluate(sessions.State{Loading: true, User: &users.User{Role: users.RoleEmployee}})
	require.Empty(t, nav.Paths())
	require.Equal(t, guard.Resolving, g.State())
}

// With nothing stored a protected view redirects exactly once and
// never renders.
func TestViewGuard_WatchWithoutStoredSession(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	sc := auth.NewSessionContext(tokenstore.NewInMemoryStore(), users.DefaultAllowList)
	resolver, err := auth.NewResolver(sc, auth.BackendProfiles{Client: backend.NewClient(srv.URL)})
	require.NoError(t, err)

	nav := &recordingNavigator{}
	g := guard.NewViewGuard(nav)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rendered := make(chan sessions.State, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Watch(ctx, sc, func(st sessions.State) { rendered <- st })
	}()

	_, err = sc.Init(context.Background(), resolver)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(nav.Paths()) > 0 }, time.Second, 5*time.Millisecond)

	sc.Teardown()
	<-done

	require.Equal(t, []string{auth.LoginRoute}, nav.Paths())
	require.Equal(t, guard.Unauthenticated, g.State())
	select {
	case <-rendered:
		t.Fatal("protected content rendered without a session")
	default:
	}
}

func TestViewGuard_WatchRedirectsOnLogout(t *testing.T) {
	store := tokenstore.NewInMemoryStore()
	require.NoError(t, store.Save(context.Background(), sessions.Session{
		AccessToken: "t",
		User:        users.User{Email: "a@x.com", Role: users.RoleAdmin},
	}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"a@x.com","role":"admin"}`))
	}))
	t.Cleanup(srv.Close)
	client := backend.NewClient(srv.URL)

	sc := auth.NewSessionContext(store, users.DefaultAllowList)
	resolver, err := auth.NewResolver(sc, auth.BackendProfiles{Client: client})
	require.NoError(t, err)
	gateway, err := auth.NewGateway(client, sc)
	require.NoError(t, err)

	nav := &recordingNavigator{}
	g := guard.NewViewGuard(nav)
	rendered := make(chan sessions.State, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Watch(ctx, sc, func(st sessions.State) {
		select {
		case rendered <- st:
		default:
		}
	})

	_, err = sc.Init(context.Background(), resolver)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return g.State() == guard.Authenticated }, time.Second, 5*time.Millisecond)
	require.Empty(t, nav.Paths())

	gateway.Logout(context.Background())
	require.Eventually(t, func() bool { return len(nav.Paths()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, auth.LoginRoute, nav.Paths()[0])
}

func TestPaths_Decide(t *testing.T) {
	p := guard.DefaultPaths()

	tests := []struct {
		path     string
		hasToken bool
		want     guard.Action
	}{
		{path: "/dashboard", hasToken: false, want: guard.RedirectLogin},
		{path: "/dashboard/attendance", hasToken: false, want: guard.RedirectLogin},
		{path: "/profile", hasToken: false, want: guard.RedirectLogin},
		{path: "/dashboards", hasToken: false, want: guard.Allow},
		{path: "/login", hasToken: false, want: guard.Allow},
		{path: "/login", hasToken: true, want: guard.RedirectDashboard},
		{path: "/register", hasToken: true, want: guard.RedirectDashboard},
		{path: "/dashboard", hasToken: true, want: guard.Allow},
		{path: "/healthz", hasToken: false, want: guard.Allow},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, p.Decide(tt.path, tt.hasToken))
		})
	}

	require.Equal(t, "/login", p.Target(guard.RedirectLogin))
	require.Equal(t, "/dashboard", p.Target(guard.RedirectDashboard))
	require.Empty(t, p.Target(guard.Allow))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	require.Empty(t, guard.TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc")
	require.Equal(t, "abc", guard.TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: guard.TokenCookie, Value: "from-cookie"})
	require.Equal(t, "from-cookie", guard.TokenFromRequest(r))
}
