package testutil

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"thesis-portal/internal/auth"
	"thesis-portal/internal/config"
	"thesis-portal/internal/models"
	"thesis-portal/internal/repository"
)

// AuthHelper issues real access tokens backed by sessions
type AuthHelper struct {
	Auth     *auth.Service
	sessions *repository.SessionRepository
}

// NewAuthHelper creates a new auth helper with an ephemeral signing key
func NewAuthHelper(db *sql.DB) *AuthHelper {
	return &AuthHelper{
		Auth:     auth.NewService(&config.JWTConfig{Secret: "", Expiration: time.Hour}),
		sessions: repository.NewSessionRepository(db),
	}
}

// Token returns a bearer token for user with an open session
func (h *AuthHelper) Token(t *testing.T, user *models.User) string {
	t.Helper()

	token, jti, expiresAt, err := h.Auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	session := &models.Session{UserID: user.ID, JTI: jti, ExpiresAt: expiresAt}
	if err := h.sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return token
}

// AddAuthHeader adds an authorization header for user to the request
func (h *AuthHelper) AddAuthHeader(t *testing.T, req *http.Request, user *models.User) {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+h.Token(t, user))
}
