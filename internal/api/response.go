package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrorCode is a string type for consistent error codes.
type ErrorCode string

const (
	ErrorCodeInternalServerError ErrorCode = "internal_server_error"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed    ErrorCode = "method_not_allowed"
	ErrorCodeValidationFailed    ErrorCode = "validation_failed"
	ErrorCodeResourceNotFound    ErrorCode = "resource_not_found"
	ErrorCodeServiceUnavailable  ErrorCode = "service_unavailable"
)

// APIError is the body of every failed request.
type APIError struct {
	Success    bool      `json:"success"`
	Message    string    `json:"error"`
	Code       ErrorCode `json:"code"`
	StatusCode int       `json:"-"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, statusCode int) APIError {
	return APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

var errRoomNotFound = NewAPIError(ErrorCodeResourceNotFound, "Room not found", http.StatusNotFound)

func respondWithError(w http.ResponseWriter, logger *slog.Logger, apiErr APIError) {
	respondWithJSON(w, logger, apiErr.StatusCode, apiErr)
}

// respondWithJSON sends a JSON response with the specified status code.
func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}
