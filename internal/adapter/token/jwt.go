// Package token verifies and issues the bearer tokens that carry caller roles.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"parking/internal/domain"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of an HMAC-signed token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// HMAC signs and verifies HS256 tokens with a shared secret.
type HMAC struct {
	secret []byte
	now    func() time.Time
}

// NewHMAC returns an HMAC verifier for secret.
func NewHMAC(secret string) *HMAC {
	return &HMAC{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for role. A zero ttl issues a token that never expires.
func (h *HMAC) Issue(role domain.Role, ttl time.Duration) (string, error) {
	if _, err := domain.ParseRole(role.String()); err != nil {
		return "", err
	}
	now := h.now()
	claims := Claims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its role.
func (h *HMAC) Verify(_ context.Context, raw string) (domain.Role, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(h.now))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return role, nil
}
