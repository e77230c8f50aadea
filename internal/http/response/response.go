package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the uniform wire shape for every API response.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, Envelope{Success: true, Data: data})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	write(w, r, status, Envelope{Success: false, Error: &APIError{Code: code, Message: message, Details: details}})
}

func write(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.ErrorContext(r.Context(), "response encode failed", "error", err, "path", r.URL.Path)
	}
}
