package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

type OAuthConfig struct {
	IssuerURL      string
	Audience       string
	RequiredScopes []string
}

type AuthClaims struct {
	Sub   string `json:"sub"`
	Scope string `json:"scope"`
}

// ExternalOwnerPrefix namespaces owner ids taken from external tokens so they
// never equal a local user id.
const ExternalOwnerPrefix = "oidc:"

// OIDCVerifier accepts ID tokens from an external provider and maps the
// subject to ExternalOwnerPrefix + sub.
type OIDCVerifier struct {
	verifier       *oidc.IDTokenVerifier
	requiredScopes []string
}

func NewOIDCVerifier(ctx context.Context, config OAuthConfig) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCVerifier{
		verifier:       provider.Verifier(&oidc.Config{ClientID: config.Audience}),
		requiredScopes: config.RequiredScopes,
	}, nil
}

func (v *OIDCVerifier) VerifyOwner(ctx context.Context, rawToken string) (string, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", err
	}

	var claims AuthClaims
	if err := token.Claims(&claims); err != nil {
		return "", err
	}
	if claims.Sub == "" {
		return "", errors.New("token has no subject")
	}
	if !checkScopes(claims.Scope, v.requiredScopes) {
		return "", errors.New("insufficient scope")
	}
	return ExternalOwnerPrefix + claims.Sub, nil
}

func checkScopes(tokenScopes string, requiredScopes []string) bool {
	scopeMap := make(map[string]bool)
	for _, s := range strings.Fields(tokenScopes) {
		scopeMap[s] = true
	}

	for _, required := range requiredScopes {
		if !scopeMap[required] {
			return false
		}
	}
	return true
}
