package auth

import (
	"context"
	"errors"
	"sync"

	apperrors "github.com/jrsteele09/hr-console/internal/errors"
	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/tokenstore"
	"github.com/jrsteele09/hr-console/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*SessionContext)(nil)

// SessionContext is the in-memory owner of one client's session. Views and
// guards read it; only the Gateway and the Resolver write to it. The store
// is a durable mirror and loses to the in-memory state on conflict.
type SessionContext struct {
	mu        sync.RWMutex
	session   *sessions.Session
	loading   bool
	store     tokenstore.Store
	allowList users.RoleAllowList

	subsMu  sync.Mutex
	subs    map[int]chan sessions.State
	nextSub int
	closed  bool

	initMu     sync.Mutex
	initDone   bool
	initResult Resolution
}

// NewSessionContext returns a context in the loading state.
func NewSessionContext(store tokenstore.Store, allowList users.RoleAllowList) *SessionContext {
	if allowList.IsEmpty() {
		allowList = users.DefaultAllowList
	}
	return &SessionContext{
		store:     store,
		allowList: allowList,
		loading:   true,
		subs:      make(map[int]chan sessions.State),
	}
}

func (sc *SessionContext) Store() tokenstore.Store {
	return sc.store
}

func (sc *SessionContext) AllowList() users.RoleAllowList {
	return sc.allowList
}

// Init runs the resolver until one pass completes. Later calls return that
// result. A pass that fails, such as on a cancelled ctx, is not kept and the
// next call resolves again.
func (sc *SessionContext) Init(ctx context.Context, r *Resolver) (Resolution, error) {
	sc.initMu.Lock()
	defer sc.initMu.Unlock()
	if sc.initDone {
		return sc.initResult, nil
	}

	res, err := r.Resolve(ctx)
	if err != nil {
		return res, err
	}
	sc.initResult, sc.initDone = res, true
	return res, nil
}

// Teardown closes every subscription. The context keeps its state.
func (sc *SessionContext) Teardown() {
	sc.subsMu.Lock()
	defer sc.subsMu.Unlock()
	if sc.closed {
		return
	}
	sc.closed = true
	for id, ch := range sc.subs {
		close(ch)
		delete(sc.subs, id)
	}
}

// Snapshot returns the current read model.
func (sc *SessionContext) Snapshot() sessions.State {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.snapshotLocked()
}

func (sc *SessionContext) snapshotLocked() sessions.State {
	st := sessions.State{Loading: sc.loading}
	if sc.session != nil {
		u := sc.session.User
		st.User = &u
		st.Authenticated = sc.allowList.AllowsUser(&u)
	}
	return st
}

// IsAuthenticated is derived on every call from the user and the allow-list.
func (sc *SessionContext) IsAuthenticated() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.session != nil && sc.allowList.AllowsUser(&sc.session.User)
}

// User returns a copy of the current user, or nil.
func (sc *SessionContext) User() *users.User {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.session == nil {
		return nil
	}
	u := sc.session.User
	return &u
}

// Session returns a copy of the in-memory session.
func (sc *SessionContext) Session() (sessions.Session, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.session == nil {
		return sessions.Session{}, false
	}
	return *sc.session, true
}

// GetToken prefers the persisted access token and falls back to the
// in-memory copy.
func (sc *SessionContext) GetToken(ctx context.Context) (string, error) {
	rec, err := sc.store.Load(ctx)
	if err == nil && rec.AccessToken != "" {
		return rec.AccessToken, nil
	}
	if err != nil && !errors.Is(err, tokenstore.ErrAbsent) {
		log.Warn().Err(err).Msg("Falling back to in-memory access token")
	}

	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.session == nil || sc.session.AccessToken == "" {
		return "", apperrors.ErrNoSession
	}
	return sc.session.AccessToken, nil
}

// Token implements oauth2.TokenSource for Bearer calls to the backend.
func (sc *SessionContext) Token() (*oauth2.Token, error) {
	access, err := sc.GetToken(context.Background())
	if err != nil {
		return nil, err
	}

	s, _ := sc.Session()
	tok := s.OAuth2Token()
	tok.AccessToken = access
	return tok, nil
}

// ClearSession forgets the session and clears the store.
func (sc *SessionContext) ClearSession(ctx context.Context) {
	// storage goes first so subscribers woken below cannot read the old token
	sc.store.Clear(ctx)
	sc.setUnauthenticated()
}

// Subscribe returns a channel receiving the current state and every later
// change. Slow readers only see the latest state. The returned func
// unsubscribes.
func (sc *SessionContext) Subscribe() (<-chan sessions.State, func()) {
	ch := make(chan sessions.State, 1)

	sc.mu.RLock()
	defer sc.mu.RUnlock()
	st := sc.snapshotLocked()

	sc.subsMu.Lock()
	defer sc.subsMu.Unlock()
	if sc.closed {
		close(ch)
		return ch, func() {}
	}
	id := sc.nextSub
	sc.nextSub++
	sc.subs[id] = ch
	ch <- st

	return ch, func() {
		sc.subsMu.Lock()
		defer sc.subsMu.Unlock()
		if c, ok := sc.subs[id]; ok {
			close(c)
			delete(sc.subs, id)
		}
	}
}

func (sc *SessionContext) setSession(s sessions.Session) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.session = &s
	sc.loading = false
	sc.publishLocked()
}

// setUnauthenticated drops the in-memory session without touching the store.
func (sc *SessionContext) setUnauthenticated() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.session = nil
	sc.loading = false
	sc.publishLocked()
}

func (sc *SessionContext) setLoading(loading bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.loading == loading {
		return
	}
	sc.loading = loading
	sc.publishLocked()
}

// mergeProfile applies a fetched profile only if the session it was fetched
// for is still the current one.
func (sc *SessionContext) mergeProfile(accessToken string, profile users.User) (sessions.Session, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.session == nil || sc.session.AccessToken != accessToken {
		return sessions.Session{}, false
	}
	next := *sc.session
	next.User.MergeProfile(profile)
	sc.session = &next
	sc.publishLocked()
	return next, true
}

// publishLocked must be called with mu held so states are delivered in order.
func (sc *SessionContext) publishLocked() {
	st := sc.snapshotLocked()

	sc.subsMu.Lock()
	defer sc.subsMu.Unlock()
	for _, ch := range sc.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}
