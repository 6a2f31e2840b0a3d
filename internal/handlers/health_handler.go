package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to HealthChecker
type HealthCheckerFunc func(ctx context.Context) error

// HealthCheck calls f
func (f HealthCheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components"`
}

// HealthHandler reports service health
type HealthHandler struct {
	version    string
	components map[string]HealthChecker
}

// NewHealthHandler creates a health handler over the named components
func NewHealthHandler(version string, components map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{version: version, components: components}
}

// Health checks every component
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Version: h.version, Components: make(map[string]string, len(h.components))}
	status := http.StatusOK
	for name, checker := range h.components {
		if err := checker.HealthCheck(ctx); err != nil {
			slog.Error("Health check failed", "component", name, "error", err)
			resp.Components[name] = "error"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}
	respondWithJSON(w, status, resp)
}
