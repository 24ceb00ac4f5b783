package jwt

import (
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Signer signs access tokens and hands out the key that verifies them.
type Signer interface {
	// Sign creates a signed JWT from claims
	Sign(claims jwtlib.MapClaims) (string, error)

	// GetVerificationKey is a jwtlib.Keyfunc
	GetVerificationKey(token *jwtlib.Token) (any, error)

	GetSigningMethod() jwtlib.SigningMethod
}

var _ Signer = (*HMACSigner)(nil)

// HMACSigner signs with a shared HS256 secret.
type HMACSigner struct {
	secret []byte
}

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{
		secret: []byte(secret),
	}
}

func (h *HMACSigner) Sign(claims jwtlib.MapClaims) (string, error) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("[HMACSigner Sign] failed to sign token: %w", err)
	}
	return signedToken, nil
}

func (h *HMACSigner) GetVerificationKey(token *jwtlib.Token) (any, error) {
	if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) GetSigningMethod() jwtlib.SigningMethod {
	return jwtlib.SigningMethodHS256
}
