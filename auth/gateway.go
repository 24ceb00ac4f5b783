package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/hr-console/backend"
	apperrors "github.com/jrsteele09/hr-console/internal/errors"
	"github.com/jrsteele09/hr-console/internal/metrics"
	"github.com/jrsteele09/hr-console/sessions"
	"github.com/rs/zerolog/log"
)

const DefaultRefreshLeeway = 60 * time.Second

// Login outcomes as recorded in metrics
const (
	LoginSuccess       = "success"
	LoginUnauthorized  = "unauthorized"
	LoginRejectedRole  = "role_rejected"
	LoginNetworkError  = "network_error"
	LoginProtocolError = "protocol_error"
	LoginStorageError  = "storage_error"
	LoginInvalidInput  = "invalid_input"
)

// AuthAPI is the part of the backend the Gateway talks to.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (sessions.Session, sessions.Shape, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (sessions.Session, error)
}

var _ AuthAPI = (*backend.Client)(nil)

// Gateway performs login, logout and token refresh and keeps the store and
// the SessionContext in step.
type Gateway struct {
	api     AuthAPI
	sc      *SessionContext
	leeway  time.Duration
	nowTime func() time.Time

	refreshMu sync.Mutex
}

// GatewayOption defines a function type to modify the Gateway instance.
type GatewayOption func(*Gateway)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) GatewayOption {
	return func(g *Gateway) {
		g.nowTime = nowFunc
	}
}

// WithRefreshLeeway sets how long before expiry EnsureFresh refreshes.
func WithRefreshLeeway(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d >= 0 {
			g.leeway = d
		}
	}
}

func NewGateway(api AuthAPI, sc *SessionContext, options ...GatewayOption) (*Gateway, error) {
	if api == nil {
		return nil, errors.New("[NewGateway] backend api is required")
	}
	if sc == nil {
		return nil, errors.New("[NewGateway] session context is required")
	}

	g := &Gateway{
		api:     api,
		sc:      sc,
		leeway:  DefaultRefreshLeeway,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Login authenticates creds against the backend. The credentials are zeroed
// before Login returns. On success the session is saved to the store and only
// then published on the SessionContext. On any failure nothing is stored and
// the context is unchanged.
func (g *Gateway) Login(ctx context.Context, creds *Credentials) (sessions.Session, error) {
	defer creds.Zero()

	if err := creds.Validate(); err != nil {
		metrics.RecordLogin(LoginInvalidInput)
		return sessions.Session{}, err
	}

	s, shape, err := g.api.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		metrics.RecordLogin(loginOutcome(err))
		log.Info().Err(err).Msg("Login failed")
		return sessions.Session{}, err
	}

	if !g.sc.allowList.Allows(s.User.Role) {
		metrics.RecordLogin(LoginRejectedRole)
		log.Info().Str("role", string(s.User.Role)).Msg("Login rejected by role allow-list")
		return sessions.Session{}, &AuthorizationError{Role: s.User.Role}
	}

	if err := g.sc.store.Save(ctx, s); err != nil {
		metrics.RecordLogin(LoginStorageError)
		log.Err(err).Msg("Failed to persist session")
		return sessions.Session{}, fmt.Errorf("[Gateway Login] %w: %w", apperrors.ErrStorage, err)
	}

	g.sc.setSession(s)
	metrics.RecordLogin(LoginSuccess)
	log.Info().Str("user", s.User.Email).Str("role", string(s.User.Role)).Str("shape", shape.String()).Msg("User logged in")
	return s, nil
}

// Logout revokes the refresh token on a best-effort basis and always clears
// the local session.
func (g *Gateway) Logout(ctx context.Context) {
	refreshToken := g.currentRefreshToken(ctx)
	if refreshToken != "" {
		if err := g.api.Logout(ctx, refreshToken); err != nil {
			log.Warn().Err(err).Msg("Backend logout failed, clearing local session anyway")
		}
	}
	g.sc.ClearSession(ctx)
}

// Refresh exchanges the refresh token for a new access token. A backend
// rejection or a role that is no longer allowed clears the session. A
// network failure leaves the session as it is.
func (g *Gateway) Refresh(ctx context.Context) (sessions.Session, error) {
	g.refreshMu.Lock()
	defer g.refreshMu.Unlock()

	current, ok := g.currentSession(ctx)
	if !ok {
		return sessions.Session{}, apperrors.ErrNoSession
	}
	if current.RefreshToken == "" {
		return sessions.Session{}, apperrors.Wrapf(apperrors.ErrSessionExpired, "[Gateway Refresh] no refresh token")
	}

	next, err := g.api.Refresh(ctx, current.RefreshToken)
	if err != nil {
		var netErr *backend.NetworkError
		if errors.As(err, &netErr) {
			return sessions.Session{}, err
		}
		log.Info().Err(err).Msg("Token refresh rejected, clearing session")
		g.sc.ClearSession(ctx)
		return sessions.Session{}, fmt.Errorf("[Gateway Refresh] %w: %w", apperrors.ErrSessionExpired, err)
	}

	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	user := current.User
	if next.User.Email != "" || next.User.Role != "" {
		user.MergeProfile(next.User)
	}
	next.User = user

	if !g.sc.allowList.Allows(next.User.Role) {
		g.sc.ClearSession(ctx)
		return sessions.Session{}, &AuthorizationError{Role: next.User.Role}
	}

	if err := g.sc.store.Save(ctx, next); err != nil {
		return sessions.Session{}, fmt.Errorf("[Gateway Refresh] %w: %w", apperrors.ErrStorage, err)
	}
	g.sc.setSession(next)
	return next, nil
}

// EnsureFresh refreshes the access token when it expires within the
// configured leeway. A session whose token has already expired and that
// cannot be refreshed is cleared.
func (g *Gateway) EnsureFresh(ctx context.Context) error {
	current, ok := g.sc.Session()
	if !ok {
		return apperrors.ErrNoSession
	}

	now := g.nowTime()
	if !current.ExpiresWithin(now, g.leeway) {
		return nil
	}

	if current.RefreshToken == "" {
		if current.ExpiresWithin(now, 0) {
			g.sc.ClearSession(ctx)
			return apperrors.Wrapf(apperrors.ErrSessionExpired, "[Gateway EnsureFresh] access token expired")
		}
		return nil
	}

	if _, err := g.Refresh(ctx); err != nil {
		var netErr *backend.NetworkError
		if errors.As(err, &netErr) && !current.ExpiresWithin(now, 0) {
			log.Warn().Err(err).Msg("Proactive refresh failed, token still valid")
			return nil
		}
		if errors.As(err, &netErr) {
			g.sc.ClearSession(ctx)
			return fmt.Errorf("[Gateway EnsureFresh] %w: %w", apperrors.ErrSessionExpired, err)
		}
		return err
	}
	return nil
}

func (g *Gateway) currentSession(ctx context.Context) (sessions.Session, bool) {
	if s, ok := g.sc.Session(); ok {
		return s, true
	}
	rec, err := g.sc.store.Load(ctx)
	if err != nil {
		return sessions.Session{}, false
	}
	return rec.Session(), true
}

func (g *Gateway) currentRefreshToken(ctx context.Context) string {
	if s, ok := g.sc.Session(); ok && s.RefreshToken != "" {
		return s.RefreshToken
	}
	rec, err := g.sc.store.Load(ctx)
	if err != nil {
		return ""
	}
	return rec.RefreshToken
}

func loginOutcome(err error) string {
	var (
		netErr   *backend.NetworkError
		protoErr *backend.ProtocolError
		httpErr  *backend.HTTPError
	)
	switch {
	case errors.As(err, &netErr):
		return LoginNetworkError
	case errors.As(err, &protoErr):
		return LoginProtocolError
	case errors.As(err, &httpErr):
		return LoginUnauthorized
	default:
		return LoginNetworkError
	}
}
