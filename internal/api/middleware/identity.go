package middleware

import (
	"net/http"
	"strings"

	"github.com/citycal/server/internal/auth"
	"github.com/citycal/server/internal/domain/identity"
)

// Identity derives the caller identity once per request from the
// Authorization header and stores it in the context. It never rejects
// a request by itself; admin-only routes enforce capability with a
// RequireElevated step.
func Identity(manager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := identity.Anonymous

			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if manager != nil && strings.HasPrefix(header, "Bearer ") {
				token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
				if claims, err := manager.Validate(token); err == nil {
					caller = identity.Identity{
						Authenticated: true,
						Elevated:      claims.Role == auth.RoleAdmin,
					}
				}
			}

			ctx := identity.WithIdentity(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
