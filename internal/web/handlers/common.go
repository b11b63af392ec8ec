// Package handlers implements the HTTP API consumed by punch terminals,
// enrollment kiosks, and the HR admin UI.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stafftrack/attendance/internal/database"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// EnrollmentStore combines the enrollment read and write contracts.
type EnrollmentStore interface {
	database.EnrollmentReader
	database.EnrollmentWriter
}

// GeofenceStore combines the geofence read and write contracts.
type GeofenceStore interface {
	database.GeofenceReader
	database.GeofenceWriter
}

// decodeJSON parses a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
