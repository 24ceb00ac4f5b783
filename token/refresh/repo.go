package refresh

import (
	"errors"
	"time"

	"github.com/jrsteele09/hr-console/users"
)

var ErrNotFound = errors.New("refresh token not found")

// StoredRefreshToken is the server side record of a refresh token. The
// client only ever sees Token.
type StoredRefreshToken struct {
	Token  string
	UserID users.ID
	Iat    time.Time
}

// Repo stores refresh tokens keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	DeleteByUserID(userID users.ID) (int, error)
	Count() int
}
