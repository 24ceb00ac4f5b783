package auth

import (
	"fmt"

	"github.com/jrsteele09/hr-console/users"
)

// AuthorizationError is returned when the backend authenticated the user but
// the user's role may not use the console.
type AuthorizationError struct {
	Role users.RoleType
}

func (e *AuthorizationError) Error() string {
	if e.Role == "" {
		return "Access denied: your account has no role assigned"
	}
	return fmt.Sprintf("Access denied: role %q is not allowed to use this console", string(e.Role))
}
