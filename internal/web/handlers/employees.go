package handlers

import (
	"log"
	"net/http"

	"github.com/stafftrack/attendance/internal/directory"
)

// EmployeeHandler serves directory lookups for frontends: the kiosk manual
// fallback and the HR admin UI search for employees by name.
type EmployeeHandler struct {
	directory directory.Reader
}

func NewEmployeeHandler(dir directory.Reader) *EmployeeHandler {
	return &EmployeeHandler{directory: dir}
}

type employeeResponse struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	FullName  string `json:"full_name"`
}

// Search handles GET /employees?name=. Matching is diacritics-insensitive
// and only active employees are returned.
func (h *EmployeeHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	matches, err := h.directory.SearchEmployees(r.Context(), name)
	if err != nil {
		log.Printf("Employee search failed: %v", err)
		respondError(w, http.StatusInternalServerError, "directory lookup failed")
		return
	}

	out := make([]employeeResponse, 0, len(matches))
	for _, e := range matches {
		out = append(out, employeeResponse{ID: e.ID, CompanyID: e.CompanyID, FullName: e.FullName})
	}
	respondJSON(w, http.StatusOK, map[string]any{"employees": out})
}
