package handler

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes v as the JSON response body. Encoding errors are not
// recoverable once the status line is out, so they are ignored.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the API's error shape: {"error": "..."}. Party
// channels report errors on the websocket instead; this is for the HTTP
// surface only.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
