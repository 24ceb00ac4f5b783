package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/internal/metrics"
	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/tokenstore"
	"github.com/jrsteele09/hr-console/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Console routes the session core redirects to
const (
	LoginRoute     = "/login"
	DashboardRoute = "/dashboard"
)

// Outcome of one resolution pass.
type Outcome int

const (
	ResolvedNone     Outcome = iota // nothing stored
	ResolvedRejected                // stored role not allowed, session cleared
	ResolvedFresh                   // cached session confirmed by the backend
	ResolvedStale                   // cached session kept, profile refresh failed
)

func (o Outcome) String() string {
	switch o {
	case ResolvedNone:
		return "none"
	case ResolvedRejected:
		return "rejected"
	case ResolvedFresh:
		return "fresh"
	case ResolvedStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Resolution is the result of Resolve.
type Resolution struct {
	Outcome    Outcome
	State      sessions.State
	RefreshErr error // set when Outcome is ResolvedStale
}

// Redirector is told where to navigate when a stored session is rejected.
type Redirector interface {
	Redirect(path string)
}

// RedirectFunc adapts a function to a Redirector.
type RedirectFunc func(path string)

func (f RedirectFunc) Redirect(path string) {
	f(path)
}

// ProfileAPI fetches the profile belonging to an access token.
type ProfileAPI interface {
	Profile(ctx context.Context, accessToken string) (users.User, error)
}

// BackendProfiles reads /api/users/me through a backend client.
type BackendProfiles struct {
	Client *backend.Client
}

func (p BackendProfiles) Profile(ctx context.Context, accessToken string) (users.User, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return p.Client.Authorized(ts).CurrentUser(ctx)
}

// Resolver rebuilds the SessionContext from the store at startup and
// re-validates the profile against the backend.
type Resolver struct {
	sc         *SessionContext
	profiles   ProfileAPI
	redirector Redirector
	timeout    time.Duration

	group    singleflight.Group
	inFlight atomic.Bool
}

// ResolverOption defines a function type to modify the Resolver instance.
type ResolverOption func(*Resolver)

// WithRedirector sets who is told to navigate to the login view.
func WithRedirector(r Redirector) ResolverOption {
	return func(res *Resolver) {
		res.redirector = r
	}
}

// WithProfileTimeout bounds the profile refresh.
func WithProfileTimeout(d time.Duration) ResolverOption {
	return func(res *Resolver) {
		if d > 0 {
			res.timeout = d
		}
	}
}

func NewResolver(sc *SessionContext, profiles ProfileAPI, options ...ResolverOption) (*Resolver, error) {
	if sc == nil {
		return nil, errors.New("[NewResolver] session context is required")
	}
	if profiles == nil {
		return nil, errors.New("[NewResolver] profile api is required")
	}

	r := &Resolver{
		sc:         sc,
		profiles:   profiles,
		redirector: RedirectFunc(func(string) {}),
		timeout:    backend.DefaultTimeout,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Refreshing reports whether a profile refresh is in flight.
func (r *Resolver) Refreshing() bool {
	return r.inFlight.Load()
}

// Resolve loads the stored session, applies the allow-list, publishes the
// cached state and then refreshes the profile. A failed profile refresh never
// invalidates the session. The error is only set when ctx is already done.
func (r *Resolver) Resolve(ctx context.Context) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{State: r.sc.Snapshot()}, err
	}
	r.sc.setLoading(true)

	rec, err := r.sc.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, tokenstore.ErrAbsent) {
			log.Warn().Err(err).Msg("Stored session unavailable")
		}
		r.sc.setUnauthenticated()
		return r.finish(Resolution{Outcome: ResolvedNone}), nil
	}

	if role := rec.User.UserRole(); !r.sc.allowList.Allows(role) {
		log.Info().Str("role", string(role)).Msg("Stored session role not allowed, clearing")
		return r.reject(ctx), nil
	}

	cached := rec.Session()
	r.sc.setSession(cached)

	profile, err := r.refreshProfile(ctx, cached.AccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("Profile refresh failed, keeping cached session")
		return r.finish(Resolution{Outcome: ResolvedStale, RefreshErr: err}), nil
	}

	merged, applied := r.sc.mergeProfile(cached.AccessToken, profile)
	if !applied {
		// a login or logout happened meanwhile and owns the context now
		return r.finish(Resolution{Outcome: ResolvedFresh}), nil
	}
	if !r.sc.allowList.Allows(merged.User.Role) {
		log.Info().Str("role", string(merged.User.Role)).Msg("Backend reports a role that is not allowed, clearing")
		return r.reject(ctx), nil
	}
	if err := r.sc.store.Save(ctx, merged); err != nil {
		log.Err(err).Msg("Failed to persist refreshed profile")
	}
	return r.finish(Resolution{Outcome: ResolvedFresh}), nil
}

func (r *Resolver) reject(ctx context.Context) Resolution {
	r.sc.ClearSession(ctx)
	r.redirector.Redirect(LoginRoute)
	return r.finish(Resolution{Outcome: ResolvedRejected})
}

func (r *Resolver) finish(res Resolution) Resolution {
	res.State = r.sc.Snapshot()
	metrics.RecordResolution(res.Outcome.String())
	return res
}

// refreshProfile shares one backend call between concurrent resolutions of
// the same access token. The call is detached from the caller's cancellation
// so one caller going away does not fail the others.
func (r *Resolver) refreshProfile(ctx context.Context, accessToken string) (users.User, error) {
	v, err, shared := r.group.Do(accessToken, func() (any, error) {
		r.inFlight.Store(true)
		defer r.inFlight.Store(false)

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.profiles.Profile(callCtx, accessToken)
	})
	if shared {
		metrics.RecordSharedRefresh()
	}
	if err != nil {
		return users.User{}, err
	}
	return v.(users.User), nil
}
