package guard

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/hr-console/auth"
)

// TokenCookie mirrors the access token for server-side route protection.
const TokenCookie = "token"

// Action is the server-side routing decision for a request.
type Action int

const (
	Allow Action = iota
	RedirectLogin
	RedirectDashboard
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectDashboard:
		return "redirect-dashboard"
	default:
		return "unknown"
	}
}

// Paths is the route policy shared by the server middleware and the view
// guard, so both make the same decision for the same request.
type Paths struct {
	Protected  []string // prefixes that need a token
	PublicOnly []string // exact paths that a holder of a token skips
	Login      string
	Dashboard  string
}

func DefaultPaths() Paths {
	return Paths{
		Protected:  []string{auth.DashboardRoute, "/profile"},
		PublicOnly: []string{auth.LoginRoute, "/register"},
		Login:      auth.LoginRoute,
		Dashboard:  auth.DashboardRoute,
	}
}

// Decide applies the policy to a request path.
func (p Paths) Decide(path string, hasToken bool) Action {
	if !hasToken && p.IsProtected(path) {
		return RedirectLogin
	}
	if hasToken && p.IsPublicOnly(path) {
		return RedirectDashboard
	}
	return Allow
}

// Target returns where an action sends the client, or "" for Allow.
func (p Paths) Target(a Action) string {
	switch a {
	case RedirectLogin:
		return p.Login
	case RedirectDashboard:
		return p.Dashboard
	default:
		return ""
	}
}

// IsProtected matches whole path segments, so /dashboard/attendance is
// protected and /dashboards is not.
func (p Paths) IsProtected(path string) bool {
	for _, prefix := range p.Protected {
		if path == prefix || strings.HasPrefix(path, strings.TrimRight(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

func (p Paths) IsPublicOnly(path string) bool {
	for _, candidate := range p.PublicOnly {
		if path == candidate {
			return true
		}
	}
	return false
}

// TokenFromRequest returns the token cookie, falling back to an
// Authorization: Bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
