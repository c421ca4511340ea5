package token

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"parking/internal/domain"
)

// OIDC verifies ID tokens from an OpenID Connect provider and reads the
// caller role from a configurable claim.
type OIDC struct {
	verifier  *oidc.IDTokenVerifier
	roleClaim string
}

// NewOIDC discovers the provider at issuer. It performs network I/O.
func NewOIDC(ctx context.Context, issuer, clientID, roleClaim string) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return newOIDC(provider.Verifier(&oidc.Config{ClientID: clientID}), roleClaim), nil
}

func newOIDC(v *oidc.IDTokenVerifier, roleClaim string) *OIDC {
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &OIDC{verifier: v, roleClaim: roleClaim}
}

// Verify validates raw against the provider keys and returns its role.
func (o *OIDC) Verify(ctx context.Context, raw string) (domain.Role, error) {
	idToken, err := o.verifier.Verify(ctx, raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	value, _ := claims[o.roleClaim].(string)
	role, err := domain.ParseRole(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return role, nil
}
