package infrastructure

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"Data"`
}

// RespondJSON writes a success envelope.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

// RespondMessage writes a success envelope carrying only a message string.
func RespondMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"message": message})
}

// RespondError maps err onto an HTTP status and writes a failure envelope.
// The body carries the sentinel's message, not the wrapped detail, so
// internal context never leaks to clients.
func RespondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := ErrInternalServer.Error()

	for sentinel, code := range statusByError {
		if errors.Is(err, sentinel) {
			status = code
			msg = sentinel.Error()
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Data: map[string]string{"error": msg}})
}

// RespondValidationErrors writes the itemized field error list produced by
// form validation. Unlike token errors these are fine to spell out.
func RespondValidationErrors(w http.ResponseWriter, validationErrors []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(Response{
		Success: false,
		Data: map[string]interface{}{
			"error":            "Validation Errors",
			"validationErrors": validationErrors,
		},
	})
}

var statusByError = map[error]int{
	ErrBadRequest:         http.StatusBadRequest,
	ErrInvalidCredentials: http.StatusUnauthorized,
	ErrUnauthorized:       http.StatusUnauthorized,
	ErrForbidden:          http.StatusForbidden,
	ErrNotFound:           http.StatusNotFound,
	ErrConflict:           http.StatusConflict,
	ErrTooManyRequests:    http.StatusTooManyRequests,
	ErrInternalServer:     http.StatusInternalServerError,
}
