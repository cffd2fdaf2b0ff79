package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/maintenance"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP status codes. NotFound and
// validation failures are surfaced as such; anything else is a 500 without
// leaking store internals.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case maintenance.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, maintenance.ErrUnsupportedInterval):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
