package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/hr-console/users"
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrRevokedToken = errors.New("access token revoked")
)

// AccessClaims is what a verified access token says about its bearer.
type AccessClaims struct {
	Subject   users.ID
	Email     string
	Role      users.RoleType
	JTI       string
	ExpiresAt time.Time
}

// RevokedChecker is an interface for checking if a token has been revoked
type RevokedChecker interface {
	IsRevoked(jti string) bool
}

// Inspector verifies access tokens issued by a Creator with the same signer.
type Inspector struct {
	signer         Signer
	issuer         string
	revokedChecker RevokedChecker
	nowTime        func() time.Time
}

func NewInspector(signer Signer, issuer string, revokedChecker RevokedChecker, nowTime func() time.Time) *Inspector {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &Inspector{
		signer:         signer,
		issuer:         issuer,
		revokedChecker: revokedChecker,
		nowTime:        nowTime,
	}
}

// Verify checks signature, issuer, expiry and revocation.
func (i *Inspector) Verify(rawToken string) (*AccessClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwtlib.Parse(rawToken, i.signer.GetVerificationKey,
		jwtlib.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwtlib.WithIssuer(i.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(i.nowTime),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}

	out := &AccessClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = users.ID(sub)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	out.Email, _ = claims[ClaimEmail].(string)
	role, _ := claims[ClaimRole].(string)
	out.Role = users.RoleType(role)
	out.JTI, _ = claims["jti"].(string)

	if out.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	if i.revokedChecker != nil && out.JTI != "" && i.revokedChecker.IsRevoked(out.JTI) {
		return nil, ErrRevokedToken
	}
	return out, nil
}
