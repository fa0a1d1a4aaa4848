package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vyomlabs/vyom/internal/backend"
	"github.com/vyomlabs/vyom/internal/credential"
	"github.com/vyomlabs/vyom/internal/feature"
	"github.com/vyomlabs/vyom/internal/log"
	"github.com/vyomlabs/vyom/internal/qr"
	"github.com/vyomlabs/vyom/internal/session"
)

// writeJSON writes a JSON response with the given status code.
// If encoding fails after WriteHeader the status is already on the
// wire; the error is only logged.
func writeJSON(w http.ResponseWriter, logger log.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, logger log.Logger, status int, code, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps a domain error onto an HTTP error response.
func writeDomainError(w http.ResponseWriter, logger log.Logger, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	writeError(w, logger, status, code, message)
}

// classify maps a domain error to (status, code, client message).
// Authentication failures share one message so username probing learns
// nothing.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, credential.ErrValidation),
		errors.Is(err, feature.ErrPromptRequired),
		errors.Is(err, feature.ErrAttachmentRequired),
		errors.Is(err, feature.ErrAttachmentUnsupported),
		errors.Is(err, session.ErrInvalidName),
		errors.Is(err, qr.ErrEmptyContent),
		errors.Is(err, qr.ErrInvalidColor),
		errors.Is(err, qr.ErrInvalidSize):
		return http.StatusBadRequest, "validation_failed", err.Error()

	case errors.Is(err, credential.ErrInvalidCredentials),
		errors.Is(err, credential.ErrNotFound):
		return http.StatusUnauthorized, "invalid_credentials", "invalid username or password"

	case errors.Is(err, credential.ErrDuplicateUsername):
		return http.StatusConflict, "duplicate_username", "username is taken"

	case errors.Is(err, feature.ErrUnknownFeature),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrAttachmentNotFound):
		return http.StatusNotFound, "not_found", err.Error()

	default:
		var backendErr *backend.Error
		if errors.As(err, &backendErr) {
			return http.StatusBadGateway, "backend_failed", backendErr.Error()
		}
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
