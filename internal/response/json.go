package response

import (
	"encoding/json"
	"net/http"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the standard response wrapper
type APIResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
	Code    int       `json:"code"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError carries the status code again plus a details string.
type APIError struct {
	Code    int    `json:"code"`
	Details string `json:"details"`
}

// successResponse keeps "data" even when it is null or empty.
type successResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Code    int    `json:"code"`
}

// JSON sends a success envelope with the given status code
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, successResponse{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
		Code:    status,
	})
}

// Error sends an error envelope
func Error(w http.ResponseWriter, status int, message, details string) {
	write(w, status, APIResponse{
		Status:  StatusError,
		Message: message,
		Code:    status,
		Error: &APIError{
			Code:    status,
			Details: details,
		},
	})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Common error responses
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, message)
}

func TooManyRequests(w http.ResponseWriter) {
	Error(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded")
}
