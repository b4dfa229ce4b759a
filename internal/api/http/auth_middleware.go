package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/creditojus/creditojus/internal/domain/user"
)

// TokenVerifier exchanges a bearer token for the caller's principal.
// The identity service owns accounts and roles; this API only consumes
// the verification result.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (user.Principal, error)
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		p, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

func extractToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	return ""
}
