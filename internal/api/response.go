package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zapponejosh/ordo-api/internal/liturgy"
)

// Response represents a standard API response.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, status int, message, code string) error {
	return WriteJSON(w, status, Response{
		Success: false,
		Error:   &ErrorInfo{Message: message, Code: code},
	})
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusNotFound, message, "NOT_FOUND")
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusBadRequest, message, "BAD_REQUEST")
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// StatusOf maps an engine error onto an HTTP status: invalid input is the
// client's fault, an unavailable dataset is a temporary server condition.
func StatusOf(err error) int {
	var e *liturgy.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case liturgy.CodeInvalidDate, liturgy.CodeInvalidRite:
		return http.StatusBadRequest
	case liturgy.CodeDataLoadFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteEngineError writes err with its engine code, or as an internal
// error when it carries none.
func WriteEngineError(w http.ResponseWriter, err error) error {
	var e *liturgy.Error
	if !errors.As(err, &e) {
		return WriteInternalError(w, "Internal server error")
	}
	return WriteError(w, StatusOf(err), e.Error(), string(e.Code))
}
