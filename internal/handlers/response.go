package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"thesis-portal/internal/middleware"
	"thesis-portal/internal/models"
	"thesis-portal/internal/service"
)

// Error messages shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgUnauthorized       = "Unauthorized"
	ErrMsgInvalidID          = "Invalid id"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := JSONResponse(w, payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// statusFor maps a service error kind to its HTTP status
func statusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindAuthorization:
		if service.CodeOf(err) == service.CodeInvalidCredentials {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes err using the service error taxonomy.
// Persistence details were logged by the service and are never exposed.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	body := ErrorResponse{Error: "internal error", Code: service.CodeInternal}
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		body = ErrorResponse{Error: svcErr.Message, Code: svcErr.Code, Fields: svcErr.Fields}
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "request_id", middleware.GetRequestID(r), "error", err)
		body = ErrorResponse{Error: "internal error", Code: service.CodeInternal}
	}
	respondWithJSON(w, status, body)
}

// decodeJSON reads a size-limited JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		msg := ErrMsgInvalidRequestBody
		if !errors.Is(err, io.EOF) {
			msg = fmt.Sprintf("%s: %v", ErrMsgInvalidRequestBody, err)
		}
		respondWithError(w, http.StatusBadRequest, service.CodeValidationFailed, msg)
		return false
	}
	return true
}

// pathID parses a positive integer path value
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, service.CodeValidationFailed, ErrMsgInvalidID)
		return 0, false
	}
	return uint(id), true
}

// requireActor returns the authenticated caller or writes 401
func requireActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", ErrMsgUnauthorized)
	}
	return actor, ok
}
