package engine

import (
	"encoding/json"
	"net/http"
)

// errorBody is the generic JSON error envelope used by every pipeline exit
// that has no configured fallback response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError writes a generic JSON error and returns the status for
// logging. Encoding a flat struct cannot fail, so the error is ignored.
func writeError(w http.ResponseWriter, status int, code, message string) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Message: message})
	return status
}
