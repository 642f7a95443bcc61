package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/sctg-development/photoacoustic-core/internal/oauth"
)

type contextKey string

const claimsContextKey contextKey = "oauth_claims"

// RequireBearer generalizes the teacher's HS256-only RequireAppAuth
// into a guard that accepts either signing algorithm the configured
// Issuer supports, picking the verification key from the token's own
// header the same way the Issuer itself does.
func RequireBearer(issuer *oauth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			token := strings.TrimPrefix(header, prefix)

			claims, err := issuer.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves the validated token claims a RequireBearer
// guard attached to the request context.
func ClaimsFromContext(ctx context.Context) *oauth.Claims {
	c, _ := ctx.Value(claimsContextKey).(*oauth.Claims)
	return c
}

// RequirePermission wraps RequireBearer's result with a permission
// check against the token's metadata, mirroring oauth_guard.rs's
// has_permission gate on a resource endpoint.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			perms, _ := claims.Metadata["permissions"].([]interface{})
			for _, p := range perms {
				if ps, ok := p.(string); ok && ps == permission {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "missing required permission: "+permission)
		})
	}
}
