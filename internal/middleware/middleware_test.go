package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"thesis-portal/internal/config"
	"thesis-portal/internal/models"
	"thesis-portal/internal/service"
)

type fakeAuthenticator struct {
	actors map[string]models.Actor
	err    error
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (models.Actor, error) {
	if f.err != nil {
		return models.Actor{}, f.err
	}
	actor, ok := f.actors[token]
	if !ok {
		return models.Actor{}, &service.Error{Kind: service.KindAuthorization, Code: service.CodeInvalidCredentials}
	}
	return actor, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthenticate(t *testing.T) {
	secretary := models.Actor{ID: 7, Role: models.RoleSecretary}
	m := NewAuthMiddleware(&fakeAuthenticator{actors: map[string]models.Actor{"good": secretary}})

	var seen models.Actor
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetActor(r)
		if token, _ := GetToken(r); token != "good" {
			t.Errorf("GetToken() = %q", token)
		}
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/theses", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("Status = %d, want %d", rr.Code, tt.want)
			}
		})
	}

	if seen != secretary {
		t.Errorf("Actor in context = %+v, want %+v", seen, secretary)
	}
}

func TestAuthenticateStoreFailure(t *testing.T) {
	m := NewAuthMiddleware(&fakeAuthenticator{err: errors.New("connection refused")})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/theses", nil)
	req.Header.Set("Authorization", "Bearer any")
	rr := httptest.NewRecorder()

	m.Authenticate(okHandler).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["code"] != service.CodeInternal {
		t.Errorf("Code = %q", body["code"])
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(models.RoleProfessor, models.RoleSecretary)(okHandler)

	tests := []struct {
		name  string
		actor *models.Actor
		want  int
	}{
		{"professor", &models.Actor{ID: 1, Role: models.RoleProfessor}, http.StatusOK},
		{"secretary", &models.Actor{ID: 2, Role: models.RoleSecretary}, http.StatusOK},
		{"student", &models.Actor{ID: 3, Role: models.RoleStudent}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(req.Context(), *tt.actor))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("Status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var inContext string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inContext = GetRequestID(r)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rr.Header().Get(RequestIDHeader)
	if generated == "" || generated != inContext {
		t.Errorf("Generated id %q, context id %q", generated, inContext)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("Incoming id should be reused, got %q", got)
	}
}

func TestCORSMiddleware(t *testing.T) {
	m := NewCORSMiddleware(&config.CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	handler := m.Handler(okHandler)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/theses", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("Status = %d, want 204", rr.Code)
		}
		if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
			t.Errorf("Allow-Methods = %q", got)
		}
		if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Allow-Credentials = %q", got)
		}
		if got := rr.Header().Get("Access-Control-Max-Age"); got != "300" {
			t.Errorf("Max-Age = %q", got)
		}
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/theses", nil)
		req.Header.Set("Origin", "http://evil.example")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("Foreign origin must not be allowed")
		}
		if rr.Code != http.StatusOK {
			t.Errorf("Request should still reach the handler, got %d", rr.Code)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{Enabled: true, Requests: 2, Duration: time.Hour})
	handler := rl.Limit(okHandler)

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := range 2 {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("Request %d: status %d", i, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("Third request should be limited, got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("Other clients have their own bucket, got %d", code)
	}

	if removed := rl.EvictIdle(-1); removed != 2 {
		t.Errorf("EvictIdle() removed %d clients, want 2", removed)
	}
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Errorf("Evicted client should start fresh, got %d", code)
	}
}

func TestGetIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := getIP(req); got != "192.0.2.1" {
		t.Errorf("getIP() = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := getIP(req); got != "203.0.113.9" {
		t.Errorf("getIP() with proxy chain = %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/theses", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("Missing header %s", h)
		}
	}
}
