package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/hr-console/users"
)

const (
	DefaultIssuer            = "hr-console-devbackend"
	DefaultAccessTokenExpiry = 15 * time.Minute
)

// Claims the backend puts in every access token
const (
	ClaimEmail = "email"
	ClaimRole  = "role"
)

// Creator builds signed access tokens.
type Creator struct {
	signer  Signer
	issuer  string
	expiry  time.Duration
	nowTime func() time.Time
}

// CreatorOption defines a function type to modify the Creator instance.
type CreatorOption func(*Creator)

func WithIssuer(issuer string) CreatorOption {
	return func(c *Creator) {
		c.issuer = issuer
	}
}

func WithExpiry(d time.Duration) CreatorOption {
	return func(c *Creator) {
		if d > 0 {
			c.expiry = d
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CreatorOption {
	return func(c *Creator) {
		c.nowTime = nowFunc
	}
}

func NewCreator(signer Signer, options ...CreatorOption) (*Creator, error) {
	if signer == nil {
		return nil, errors.New("[NewCreator] signer is required")
	}
	c := &Creator{
		signer:  signer,
		issuer:  DefaultIssuer,
		expiry:  DefaultAccessTokenExpiry,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Expiry is the lifetime of the tokens this creator issues.
func (c *Creator) Expiry() time.Duration {
	return c.expiry
}

// CreateAccessToken returns a signed access token for user and its expiry.
func (c *Creator) CreateAccessToken(user *users.User) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, errors.New("[Creator CreateAccessToken] user with an id is required")
	}

	now := c.nowTime()
	exp := now.Add(c.expiry)
	claims := jwtlib.MapClaims{
		"iss":      c.issuer,
		"sub":      user.ID.String(),
		ClaimEmail: user.Email,
		ClaimRole:  string(user.Role),
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
		"jti":      uuid.New().String(), // revocation handle
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("[Creator CreateAccessToken] %w", err)
	}
	return signed, exp.Truncate(time.Second), nil
}
