package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dataloom-io/review-engine/pkg/apperrors"
)

// ApiResponse is the standard envelope for mutation endpoints.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// serviceError maps service-layer failures onto HTTP status codes and stable
// error codes.
func serviceError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrTaskNotAnalyzed):
		return ErrorResponse(w, http.StatusNotFound, "task_not_analyzed", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrInvalidIdent):
		return ErrorResponse(w, http.StatusBadRequest, "invalid_identifier", err.Error())
	case errors.Is(err, apperrors.ErrEmptyComment):
		return ErrorResponse(w, http.StatusBadRequest, "empty_comment", err.Error())
	case errors.Is(err, apperrors.ErrSuspectInput):
		return ErrorResponse(w, http.StatusBadRequest, "suspect_input", err.Error())
	default:
		return ErrorResponse(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
