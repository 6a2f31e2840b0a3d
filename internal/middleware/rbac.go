package middleware

import (
	"net/http"
	"slices"

	"thesis-portal/internal/models"
)

// RequireRole rejects callers whose role is not one of roles.
// It must run after AuthMiddleware.Authenticate.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
				return
			}

			if !slices.Contains(roles, actor.Role) {
				respondWithError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
