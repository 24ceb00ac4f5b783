package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"

	"github.com/jrsteele09/hr-console/auth"
	"github.com/jrsteele09/hr-console/backend"
	apperrors "github.com/jrsteele09/hr-console/internal/errors"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName string
	Error   string
	Email   string // Preserve email on error
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		panic("Failed to parse login template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := LoginPageData{
			AppName: s.config.GetAppName(),
			Error:   r.URL.Query().Get("error"),
			Email:   r.URL.Query().Get("email"),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
		}
	}
}

// LoginSubmissionHandler processes the login form (POST /auth/login). A JSON
// body gets a JSON answer; a form post is redirected.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asJSON := isJSONRequest(r)

		var creds auth.Credentials
		if asJSON {
			if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
				writeJSONError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "Invalid form data", http.StatusBadRequest)
				return
			}
			creds = auth.Credentials{Email: r.FormValue("email"), Password: r.FormValue("password")}
		}
		email := creds.Email

		entry, err := s.clientEntry(w, r)
		if err != nil {
			log.Err(err).Msg("Failed to resolve console client")
			http.Error(w, "Session unavailable", http.StatusServiceUnavailable)
			return
		}

		session, err := entry.Gateway.Login(r.Context(), &creds)
		if err != nil {
			if asJSON {
				writeJSONError(w, loginErrorStatus(err), err.Error())
				return
			}
			s.renderLoginError(w, r, err.Error(), email)
			return
		}

		s.setTokenCookie(w, r, session.AccessToken)
		if asJSON {
			writeJSON(w, http.StatusOK, profileView(entry.Context.Snapshot()))
			return
		}
		redirectSuccess(w, r, RouteDashboard)
	}
}

// LogoutHandler always ends on the login view, even when the backend
// could not be told.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := s.clientEntry(w, r)
		if err != nil {
			log.Err(err).Msg("Logout: failed to resolve console client")
		} else {
			entry.Gateway.Logout(r.Context())
		}

		s.clearTokenCookie(w, r)
		redirectSuccess(w, r, RouteLogin)
	}
}

// renderLoginError redirects to login page with an error message
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, errorMsg, email string) {
	redirectURL := RouteLogin + "?error=" + url.QueryEscape(errorMsg)
	if email != "" {
		redirectURL += "&email=" + url.QueryEscape(email)
	}
	redirectSuccess(w, r, redirectURL)
}

func loginErrorStatus(err error) int {
	var (
		authzErr *auth.AuthorizationError
		httpErr  *backend.HTTPError
		netErr   *backend.NetworkError
	)
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &authzErr):
		return http.StatusForbidden
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == contentTypeJSON
}
