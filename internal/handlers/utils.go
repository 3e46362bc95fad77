package handlers

import (
	"net/http"

	"github.com/goccy/go-json"

	"photo-rater/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatus writes v as JSON with the given status code.
func writeJSONStatus(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeMessage writes a {"message": ...} body, the shape auth errors use.
func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSONStatus(w, statusCode, map[string]string{"message": message})
}

// writeResult writes a {"status": ..., "message": ...} body, the shape
// rating responses use.
func writeResult(w http.ResponseWriter, statusCode int, status, message string) {
	writeJSONStatus(w, statusCode, map[string]string{"status": status, "message": message})
}
