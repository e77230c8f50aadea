package middleware

import (
	"net/http"

	"github.com/toolvault/toolvault/internal/http/response"
)

// RequireRole admits the request when the caller holds at least one of the
// allowed roles. A missing auth context is a 401; an authenticated caller
// outside the allow-list gets a 403 carrying both role sets so the client
// can explain the denial.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			for _, name := range claims.Roles {
				if _, ok := allowedSet[name]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role", map[string]any{
				"required_roles": allowed,
				"user_roles":     claims.Roles,
			})
		})
	}
}
