package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"urlshorten/pkg/auth"
	"urlshorten/pkg/logging"
)

var errNoVerifier = errors.New("no verifier accepted the token")

// Verifier resolves a bearer token to the owner id it was issued for.
type Verifier interface {
	VerifyOwner(ctx context.Context, rawToken string) (string, error)
}

type VerifierFunc func(ctx context.Context, rawToken string) (string, error)

func (f VerifierFunc) VerifyOwner(ctx context.Context, rawToken string) (string, error) {
	return f(ctx, rawToken)
}

// JWTVerifier accepts access tokens issued by this service.
func JWTVerifier(issuer *auth.JWTIssuer) Verifier {
	return VerifierFunc(func(_ context.Context, rawToken string) (string, error) {
		return issuer.Verify(rawToken)
	})
}

type Authenticator struct {
	verifiers []Verifier
	logger    *logging.Logger
}

// NewAuthenticator tries each verifier in order and accepts the first owner id returned.
func NewAuthenticator(logger *logging.Logger, verifiers ...Verifier) *Authenticator {
	return &Authenticator{verifiers: verifiers, logger: logger}
}

func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeUnauthorized(w, "missing authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			writeUnauthorized(w, "invalid authorization header format")
			return
		}

		ownerID, err := a.verify(r.Context(), tokenString)
		if err != nil {
			a.logger.Debug(r.Context(), "token rejected", "error", err)
			writeUnauthorized(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
	})
}

func (a *Authenticator) verify(ctx context.Context, tokenString string) (string, error) {
	var errs []error
	for _, v := range a.verifiers {
		ownerID, err := v.VerifyOwner(ctx, tokenString)
		if err == nil && ownerID != "" {
			return ownerID, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return "", errors.Join(append(errs, errNoVerifier)...)
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type contextKey string

const ownerIDKey contextKey = "owner_id"

func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

func GetOwnerIDFromContext(ctx context.Context) string {
	if ownerID, ok := ctx.Value(ownerIDKey).(string); ok {
		return ownerID
	}
	return ""
}
