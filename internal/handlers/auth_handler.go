package handlers

import (
	"log/slog"
	"net/http"

	"thesis-portal/internal/middleware"
	"thesis-portal/internal/models"
	"thesis-portal/internal/service"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles user login
// @Summary User login
// @Description Authenticate with email and password and receive a bearer token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		if service.KindOf(err) == service.KindAuthorization {
			slog.Warn("Login failed", "email", req.Email, "ip", r.RemoteAddr, "request_id", middleware.GetRequestID(r))
		}
		respondWithServiceError(w, r, err)
		return
	}

	slog.Info("User logged in successfully", "user_id", result.User.ID, "role", result.User.Role)
	respondWithJSON(w, http.StatusOK, result)
}

// Logout handles user logout
// @Summary User logout
// @Description Invalidate the session of the presented token
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	token, _ := middleware.GetToken(r)

	if err := h.authService.Logout(r.Context(), token); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	slog.Info("User logged out", "user_id", actor.ID)
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me returns the authenticated user
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(r.Context(), actor)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}
