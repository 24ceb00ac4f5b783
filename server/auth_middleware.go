package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrsteele09/hr-console/auth"
	"github.com/jrsteele09/hr-console/guard"
	apperrors "github.com/jrsteele09/hr-console/internal/errors"
	"github.com/jrsteele09/hr-console/server/clientsession"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClient stores the resolved *clientsession.Entry
	ContextKeyClient ContextKey = "console_client"
)

// RouteGuardMiddleware applies the route policy from the token cookie alone:
// protected paths without a token go to the login view, public-only paths
// with one go to the dashboard.
func (s *Server) RouteGuardMiddleware(paths guard.Paths) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			action := paths.Decide(r.URL.Path, guard.TokenFromRequest(r) != "")
			if action != guard.Allow {
				redirectSuccess(w, r, paths.Target(action))
				return
			}
			next(w, r)
		}
	}
}

// RequireConsoleSession resolves the client's session, refreshes a token
// about to expire and redirects to the login view when the client is not
// authenticated.
func (s *Server) RequireConsoleSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			entry, err := s.clientEntry(w, r)
			if err != nil {
				log.Err(err).Msg("Failed to resolve console client")
				http.Error(w, "Session unavailable", http.StatusServiceUnavailable)
				return
			}

			if !entry.Context.IsAuthenticated() {
				s.clearTokenCookie(w, r)
				redirectSuccess(w, r, RouteLogin)
				return
			}

			if err := entry.Gateway.EnsureFresh(r.Context()); err != nil {
				s.clearTokenCookie(w, r)
				var authzErr *auth.AuthorizationError
				switch {
				case errors.Is(err, apperrors.ErrSessionExpired), errors.Is(err, apperrors.ErrNoSession):
					redirectWithError(w, r, RouteLogin, "Session expired, please sign in again")
				case errors.As(err, &authzErr):
					redirectWithError(w, r, RouteLogin, authzErr.Error())
				default:
					log.Err(err).Msg("Token refresh failed")
					redirectWithError(w, r, RouteLogin, "Could not refresh your session")
				}
				return
			}

			if current, ok := entry.Context.Session(); ok {
				s.setTokenCookie(w, r, current.AccessToken)
			}

			ctx := context.WithValue(r.Context(), ContextKeyClient, entry)
			next(w, r.WithContext(ctx))
		}
	}
}

// clientEntry returns the client's registry entry, issuing a client cookie
// on first contact.
func (s *Server) clientEntry(w http.ResponseWriter, r *http.Request) (*clientsession.Entry, error) {
	return s.sessions.Get(r.Context(), s.clientID(w, r))
}

func clientFromContext(ctx context.Context) *clientsession.Entry {
	e, _ := ctx.Value(ContextKeyClient).(*clientsession.Entry)
	return e
}
