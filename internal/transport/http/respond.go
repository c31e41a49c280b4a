package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"watchtower/pkg/platform/sentinel"
)

// writeJSON centralizes response encoding so handlers stay thin.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates sentinel errors into HTTP status codes with a
// consistent JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		status = http.StatusNotFound
		message = "not found"
	case errors.Is(err, sentinel.ErrConflict):
		status = http.StatusConflict
		message = "conflict"
	case errors.Is(err, sentinel.ErrUnavailable):
		status = http.StatusServiceUnavailable
		message = "unavailable"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

// writeBadRequest reports a validation failure with detail.
func writeBadRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": detail})
}
