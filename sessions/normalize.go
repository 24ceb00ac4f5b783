package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/hr-console/users"
)

// Shape identifies which generation of the login response the backend sent.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeV1Flat        // {id, email, name, role, token}
	ShapeV2Token       // {token, refresh_token, user}
	ShapeV3OAuth       // {user, access_token, refresh_token, token_type, expires_in}
)

func (s Shape) String() string {
	switch s {
	case ShapeV1Flat:
		return "v1-flat"
	case ShapeV2Token:
		return "v2-token"
	case ShapeV3OAuth:
		return "v3-oauth"
	default:
		return "unknown"
	}
}

var (
	ErrMalformedResponse = errors.New("malformed login response")
	ErrMissingToken      = errors.New("login response has no access token")
)

// loginWire is the union of every login response field ever emitted.
type loginWire struct {
	User         *users.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`

	Token string `json:"token"`

	ID    users.ID       `json:"id"`
	Email string         `json:"email"`
	Name  string         `json:"name"`
	Role  users.RoleType `json:"role"`
}

// DecodeLoginResponse normalizes any supported login response body into a
// Session. now anchors the absolute expiry when the body carries expires_in.
// Role authorization is not checked here.
func DecodeLoginResponse(body []byte, now time.Time) (Session, Shape, error) {
	var w loginWire
	if err := json.Unmarshal(body, &w); err != nil {
		return Session{}, ShapeUnknown, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var (
		s     Session
		shape Shape
	)
	switch {
	case w.AccessToken != "":
		shape = ShapeV3OAuth
		s = Session{
			AccessToken:  w.AccessToken,
			RefreshToken: w.RefreshToken,
			TokenType:    w.TokenType,
			ExpiresIn:    w.ExpiresIn,
		}
		if w.User != nil {
			s.User = *w.User
		}
	case w.Token != "" && w.User != nil:
		shape = ShapeV2Token
		s = Session{
			AccessToken:  w.Token,
			RefreshToken: w.RefreshToken,
			TokenType:    w.TokenType,
			ExpiresIn:    w.ExpiresIn,
			User:         *w.User,
		}
	case w.Token != "":
		shape = ShapeV1Flat
		s = Session{
			AccessToken: w.Token,
			User: users.User{
				ID:    w.ID,
				Email: w.Email,
				Name:  w.Name,
				Role:  w.Role,
			},
		}
	default:
		return Session{}, ShapeUnknown, ErrMissingToken
	}

	if s.User.Role == "" && w.Role != "" {
		s.User.Role = w.Role
	}
	s.Expiry = ResolveExpiry(s.AccessToken, s.ExpiresIn, now)
	return s, shape, nil
}

// ResolveExpiry prefers the server supplied lifetime and falls back to the
// access token's own exp claim. The token signature is not verified; the
// value is only used to schedule a refresh.
func ResolveExpiry(accessToken string, expiresIn int, now time.Time) time.Time {
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	if strings.Count(accessToken, ".") != 2 {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
