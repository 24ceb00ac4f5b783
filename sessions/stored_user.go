package sessions

import (
	"time"

	"github.com/jrsteele09/hr-console/users"
)

// StoredUser is the value persisted under the "user" key. Clients written by
// earlier console generations stored a flat object ({id,email,name,role,token});
// current clients store the nested form. Both decode into this type.
type StoredUser struct {
	User      *users.User `json:"user,omitempty"`
	TokenType string      `json:"token_type,omitempty"`
	ExpiresIn int         `json:"expires_in,omitempty"`
	Expiry    time.Time   `json:"expiry,omitzero"`

	// Legacy flat fields
	ID    users.ID       `json:"id,omitempty"`
	Email string         `json:"email,omitempty"`
	Name  string         `json:"name,omitempty"`
	Role  users.RoleType `json:"role,omitempty"`
	Token string         `json:"token,omitempty"`
}

// NewStoredUser returns the nested form of s for persistence.
func NewStoredUser(s Session) StoredUser {
	u := s.User
	return StoredUser{
		User:      &u,
		TokenType: s.TokenType,
		ExpiresIn: s.ExpiresIn,
		Expiry:    s.Expiry,
	}
}

// IsLegacy reports whether the value was written in the flat format.
func (s StoredUser) IsLegacy() bool {
	return s.User == nil
}

// UserRole returns the nested role, falling back to the legacy flat field.
func (s StoredUser) UserRole() users.RoleType {
	if s.User != nil && s.User.Role != "" {
		return s.User.Role
	}
	return s.Role
}

// Profile returns the canonical user regardless of the stored format.
func (s StoredUser) Profile() users.User {
	if s.User != nil {
		u := *s.User
		if u.Role == "" {
			u.Role = s.Role
		}
		return u
	}
	return users.User{
		ID:    s.ID,
		Email: s.Email,
		Name:  s.Name,
		Role:  s.Role,
	}
}

// Session rebuilds a session from the stored user and the persisted tokens.
func (s StoredUser) Session(accessToken, refreshToken string) Session {
	return Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		Expiry:       s.Expiry,
		User:         s.Profile(),
	}
}
