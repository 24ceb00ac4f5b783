package auth

import (
	"strings"

	apperrors "github.com/jrsteele09/hr-console/internal/errors"
)

// Credentials are the login form values. They are never persisted.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks both fields are present.
func (c *Credentials) Validate() error {
	if c == nil {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "[Credentials Validate] missing credentials")
	}
	if strings.TrimSpace(c.Email) == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "email is required")
	}
	if c.Password == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "password is required")
	}
	return nil
}

// Zero drops the credential values.
func (c *Credentials) Zero() {
	if c == nil {
		return
	}
	*c = Credentials{}
}
