// Package clientsession keeps one session core per browser client of the
// console server.
package clientsession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/hr-console/auth"
	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/dashboard"
	"github.com/jrsteele09/hr-console/tokenstore"
	"github.com/jrsteele09/hr-console/users"
	"github.com/rs/zerolog/log"
)

// CookieName carries the client id.
const CookieName = "console_client"

const DefaultIdleTTL = 12 * time.Hour

// Entry is the session core of one client.
type Entry struct {
	ID        string
	Context   *auth.SessionContext
	Gateway   *auth.Gateway
	Resolver  *auth.Resolver
	Dashboard *dashboard.Client

	mu       sync.Mutex
	lastSeen time.Time
}

func (e *Entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastSeen = now
	e.mu.Unlock()
}

func (e *Entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeen
}

// Registry maps client ids to entries. Entries are built lazily over
// the token store of their client and resolved once on creation.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	api       *backend.Client
	provider  tokenstore.Provider
	allowList users.RoleAllowList
	leeway    time.Duration
	idleTTL   time.Duration
	nowTime   func() time.Time
}

// Option defines a function type to modify the Registry instance.
type Option func(*Registry)

func WithRefreshLeeway(d time.Duration) Option {
	return func(r *Registry) {
		r.leeway = d
	}
}

func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Registry) {
		r.nowTime = nowFunc
	}
}

func NewRegistry(api *backend.Client, provider tokenstore.Provider, allowList users.RoleAllowList, options ...Option) (*Registry, error) {
	if api == nil {
		return nil, errors.New("[NewRegistry] backend client is required")
	}
	if provider == nil {
		return nil, errors.New("[NewRegistry] token store provider is required")
	}

	r := &Registry{
		entries:   make(map[string]*Entry),
		api:       api,
		provider:  provider,
		allowList: allowList,
		leeway:    auth.DefaultRefreshLeeway,
		idleTTL:   DefaultIdleTTL,
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// NewClientID returns a fresh client id for the client cookie.
func NewClientID() string {
	return uuid.NewString()
}

// Get returns the entry of clientID, creating and resolving it on first use.
func (r *Registry) Get(ctx context.Context, clientID string) (*Entry, error) {
	if clientID == "" {
		return nil, fmt.Errorf("[Registry Get] clientID is required")
	}

	r.mu.RLock()
	e, ok := r.entries[clientID]
	r.mu.RUnlock()

	if !ok {
		var err error
		if e, err = r.create(clientID); err != nil {
			return nil, err
		}
	}
	e.touch(r.nowTime())

	// an aborted browser request must not fail the client's resolution
	if _, err := e.Context.Init(context.WithoutCancel(ctx), e.Resolver); err != nil {
		return nil, fmt.Errorf("[Registry Get] resolve %s: %w", clientID, err)
	}
	return e, nil
}

func (r *Registry) create(clientID string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[clientID]; ok {
		return e, nil
	}

	sc := auth.NewSessionContext(r.provider(clientID), r.allowList)
	gw, err := auth.NewGateway(r.api, sc, auth.WithRefreshLeeway(r.leeway), auth.WithNowTime(r.nowTime))
	if err != nil {
		return nil, err
	}
	resolver, err := auth.NewResolver(sc, auth.BackendProfiles{Client: r.api},
		auth.WithProfileTimeout(r.api.Timeout()),
		auth.WithRedirector(auth.RedirectFunc(func(path string) {
			log.Info().Str("client", clientID).Str("to", path).Msg("Stored session rejected")
		})),
	)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:        clientID,
		Context:   sc,
		Gateway:   gw,
		Resolver:  resolver,
		Dashboard: dashboard.NewClient(r.api, sc),
	}
	r.entries[clientID] = e
	return e, nil
}

// Delete drops the in-memory entry. The client's store is left alone.
func (r *Registry) Delete(clientID string) {
	r.mu.Lock()
	e, ok := r.entries[clientID]
	delete(r.entries, clientID)
	r.mu.Unlock()

	if ok {
		e.Context.Teardown()
	}
}

// Sweep drops entries idle for longer than the idle TTL and returns how
// many were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.nowTime().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Entry
	for id, e := range r.entries {
		if e.idleSince().Before(cutoff) {
			idle = append(idle, e)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, e := range idle {
		e.Context.Teardown()
	}
	return len(idle)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Debug().Int("dropped", n).Msg("Swept idle console clients")
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
