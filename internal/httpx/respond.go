package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// fallbackBody is sent when a response value cannot be encoded.
var fallbackBody = []byte(`{"error":"internal_error","message":"failed to encode response"}` + "\n")

// WriteJSON writes v as a JSON response with the given status code. v is
// encoded before any header is written, so an unencodable value becomes a
// 500 instead of a truncated body under the intended status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode JSON response",
			"status", status,
			"error", err.Error(),
		)
		status, body = http.StatusInternalServerError, fallbackBody
	} else {
		body = append(body, '\n')
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	}
	WriteJSON(w, status, resp)
}
