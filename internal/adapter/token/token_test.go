package token

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking/internal/domain"
)

func TestHMAC_IssueVerify(t *testing.T) {
	h := NewHMAC("secret")
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleSystem} {
		t.Run(role.String(), func(t *testing.T) {
			raw, err := h.Issue(role, time.Hour)
			require.NoError(t, err)
			got, err := h.Verify(context.Background(), raw)
			require.NoError(t, err)
			assert.Equal(t, role, got)
		})
	}
}

func TestHMAC_Rejects(t *testing.T) {
	h := NewHMAC("secret")
	ctx := context.Background()

	other, err := NewHMAC("other").Issue(domain.RoleAdmin, 0)
	require.NoError(t, err)

	expired, err := h.Issue(domain.RoleAdmin, time.Minute)
	require.NoError(t, err)
	h.now = func() time.Time { return time.Now().Add(time.Hour) }
	defer func() { h.now = time.Now }()

	unknownRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "driver"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": other,
		"expired":      expired,
		"unknown role": unknownRole,
		"alg none":     none,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := h.Verify(ctx, raw)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestHMAC_ZeroTTLNeverExpires(t *testing.T) {
	h := NewHMAC("secret")
	raw, err := h.Issue(domain.RoleSystem, 0)
	require.NoError(t, err)

	h.now = func() time.Time { return time.Now().Add(10 * 365 * 24 * time.Hour) }
	role, err := h.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSystem, role)
}

func TestOIDC_Verify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	const issuer = "https://issuer.example"
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	v := newOIDC(oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: "parking"}), "parking_role")

	sign := func(claims jwt.MapClaims) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		return raw
	}
	exp := time.Now().Add(time.Hour).Unix()

	role, err := v.Verify(context.Background(), sign(jwt.MapClaims{
		"iss": issuer, "aud": "parking", "sub": "u1", "exp": exp, "parking_role": "manager",
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, role)

	_, err = v.Verify(context.Background(), sign(jwt.MapClaims{
		"iss": issuer, "aud": "parking", "sub": "u1", "exp": exp,
	}))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(context.Background(), sign(jwt.MapClaims{
		"iss": issuer, "aud": "someone-else", "sub": "u1", "exp": exp, "parking_role": "admin",
	}))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
