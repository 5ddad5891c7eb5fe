// httputil/json.go
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v as JSON with status. The value is encoded before any
// header is sent, so an encoding failure still produces a clean 500.
// Invalid status codes (outside 100-599) are clamped to 500.
func WriteJSON(w http.ResponseWriter, status int, v any, logger *zap.Logger) {
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}

	body, err := json.Marshal(v)
	if err != nil {
		if logger != nil {
			logger.Error("json encoding failed", zap.Error(err), zap.String("type", fmt.Sprintf("%T", v)))
		}
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "internal_error"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// JSONError writes a structured JSON error with an error code and message.
func JSONError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: code, Message: message}, nil)
}
