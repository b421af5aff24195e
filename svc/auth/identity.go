package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
}

// Verifier resolves a bearer token to an Identity. Implementations return
// errors matching ErrUnauthenticated for every rejection.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.Join(ErrUnauthenticated, ErrMissingToken)
	}
	return strings.TrimSpace(token), nil
}

// NewVerifier returns a JWTVerifier when cfg.JWTSecret is set and a
// RemoteVerifier otherwise.
func NewVerifier(cfg Config, client *http.Client) (Verifier, error) {
	if cfg.JWTSecret != "" {
		return NewJWTVerifier(cfg.JWTSecret, cfg.JWTAudience), nil
	}
	if cfg.SupabaseURL == "" || cfg.ServiceRoleKey == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("either SUPABASE_JWT_SECRET or SUPABASE_URL with SUPABASE_SERVICE_ROLE_KEY is required"))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return NewRemoteVerifier(cfg.SupabaseURL, cfg.ServiceRoleKey, client), nil
}
