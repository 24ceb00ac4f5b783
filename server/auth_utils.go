package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/hr-console/guard"
	"github.com/jrsteele09/hr-console/server/clientsession"
)

const clientCookieMaxAge = 30 * 24 * 60 * 60

// clientID reads the client cookie, setting a new one when absent.
func (s *Server) clientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(clientsession.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := clientsession.NewClientID()
	http.SetCookie(w, &http.Cookie{
		Name:     clientsession.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   clientCookieMaxAge,
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
	})
	// later reads within this request see the new id
	r.AddCookie(&http.Cookie{Name: clientsession.CookieName, Value: id})
	return id
}

// setTokenCookie mirrors the access token for the route guard. The cookie
// lives for the session TTL, not the access token's lifetime: an expired
// access token still has to reach RequireConsoleSession to be refreshed.
func (s *Server) setTokenCookie(w http.ResponseWriter, r *http.Request, accessToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     guard.TokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(s.config.GetSessionTTL() / time.Second),
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearTokenCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     guard.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) secureCookies(r *http.Request) bool {
	return s.config.GetCookieSecure() || getScheme(r) == "https"
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	fullPath := path + "?error=" + url.QueryEscape(errorMsg)

	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", fullPath)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, fullPath, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
