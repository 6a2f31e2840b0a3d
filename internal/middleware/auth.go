package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"thesis-portal/internal/models"
	"thesis-portal/internal/service"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// ActorKey is the context key for the authenticated caller
	ActorKey contextKey = "actor"
	// TokenKey is the context key for the raw bearer token
	TokenKey contextKey = "token"
)

// Authenticator resolves a bearer token to the caller behind it
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Actor, error)
}

// AuthMiddleware handles authentication
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate validates the bearer token and puts the actor into the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authorization header")
			return
		}

		actor, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			if service.KindOf(err) == service.KindPersistence {
				respondWithError(w, http.StatusInternalServerError, service.CodeInternal, "internal error")
				return
			}
			slog.Debug("Rejected token", "error", err, "request_id", GetRequestID(r))
			respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ActorKey, actor)
		ctx = context.WithValue(ctx, TokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActor retrieves the authenticated caller from the request context
func GetActor(r *http.Request) (models.Actor, bool) {
	actor, ok := r.Context().Value(ActorKey).(models.Actor)
	return actor, ok
}

// GetToken retrieves the bearer token the request was authenticated with
func GetToken(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(TokenKey).(string)
	return token, ok
}

// WithActor returns a copy of ctx carrying actor
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// respondWithError writes the same error body the handlers use
func respondWithError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code}); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
