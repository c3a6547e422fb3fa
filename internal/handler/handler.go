// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/loanwise/loanwise/internal/auth"
	"github.com/loanwise/loanwise/internal/features"
	"github.com/loanwise/loanwise/internal/handler/dto"
	"github.com/loanwise/loanwise/internal/ml"
	"github.com/loanwise/loanwise/internal/service"
)

// Handler serves the unauthenticated fallback routes.
type Handler struct {
	version string
}

// New creates a new Handler instance.
func New(version string) *Handler {
	return &Handler{version: version}
}

// Root describes the service.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "loanwise",
		"version": h.version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// decodeJSON decodes a request body, rejecting unknown trailing data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// handleServiceError maps domain errors to HTTP responses. Unexpected
// errors are logged here and nowhere else.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *features.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:  "Invalid loan application",
			Code:   "VALIDATION_FAILED",
			Fields: verr.Fields,
		})
	case errors.Is(err, auth.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Incorrect email or password")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered")
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_EMAIL", "Invalid email address")
	case errors.Is(err, service.ErrWeakPassword):
		writeError(w, http.StatusUnprocessableEntity, "WEAK_PASSWORD", "Password must be at least 8 characters")
	case errors.Is(err, service.ErrInvalidName):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_NAME", "Full name is too long")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
	case errors.Is(err, ml.ErrArtifactMissing):
		logger.Warn("scoring unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "Model artifact is not loaded")
	case errors.Is(err, ml.ErrArtifactCorrupt):
		logger.Error("model artifact corrupt", "error", err)
		writeError(w, http.StatusInternalServerError, "MODEL_CORRUPT", "Model artifact could not be used")
	case errors.Is(err, service.ErrPersistence):
		logger.Error("persistence failure", "error", err)
		writeError(w, http.StatusInternalServerError, "PERSISTENCE_FAILED", "Prediction could not be stored")
	default:
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
