package bitlytest

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorResponse is the body Bitly sends with 4xx and 5xx statuses.
type errorResponse struct {
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
	Resource    string `json:"resource,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing left but to log.
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, description string) {
	writeJSON(w, status, errorResponse{
		Message:     message,
		Description: description,
		Resource:    "bitlinks",
	})
}
