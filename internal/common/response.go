package common

import (
	"encoding/json"
	"net/http"
)

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success renders the operation envelope {"success": true, ...payload}.
func Success(w http.ResponseWriter, status int, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	JSON(w, status, body)
}

// Failure renders the operation envelope {"success": false, "error": message, "details": ...}.
func Failure(w http.ResponseWriter, status int, message string, details any) {
	body := map[string]any{
		"success": false,
		"error":   message,
	}
	if details != nil {
		body["details"] = details
	}
	JSON(w, status, body)
}
