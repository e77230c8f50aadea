package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/toolvault/toolvault/internal/http/response"
	"github.com/toolvault/toolvault/internal/security"
	"github.com/toolvault/toolvault/internal/service"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
	TokenContextKey  contextKey = "bearer_token"
)

// AuthMiddleware authenticates the bearer token. The token must both parse
// as a signed access token and match a live session row, so a revoked token
// fails even before its JWT expiry.
func AuthMiddleware(tokens *service.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}
			claims, err := tokens.Validate(raw)
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or revoked token", nil)
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			ctx = context.WithValue(ctx, TokenContextKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}

func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(TokenContextKey).(string)
	return t, ok
}
