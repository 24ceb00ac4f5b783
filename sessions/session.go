package sessions

import (
	"time"

	"github.com/jrsteele09/hr-console/users"
	"golang.org/x/oauth2"
)

// Session is the authenticated identity held for one console client.
// It is only meaningful while User.Role is in the console's allow-list.
type Session struct {
	AccessToken  string     // Bearer token for the backend API
	RefreshToken string     // Opaque token exchanged at /auth/refresh, may be empty
	TokenType    string     // Usually "bearer"
	ExpiresIn    int        // Access token lifetime in seconds as reported at login, 0 if unknown
	Expiry       time.Time  // Absolute access token expiry, zero if unknown
	User         users.User // Canonical user profile
}

// State is the read model every console surface observes.
type State struct {
	User          *users.User
	Authenticated bool
	Loading       bool
}

// Unauthenticated is the state of a client with no session.
var Unauthenticated = State{}

// OAuth2Token converts the session into a token usable by an oauth2.Transport.
func (s Session) OAuth2Token() *oauth2.Token {
	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    tokenType,
		Expiry:       s.Expiry,
	}
}

// ExpiresWithin reports whether the access token expires before now+leeway.
// A session with an unknown expiry never reports expiring.
func (s Session) ExpiresWithin(now time.Time, leeway time.Duration) bool {
	if s.Expiry.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(s.Expiry)
}
