package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/geofence"
)

// GeofenceHandler manages geofence configs for the HR admin UI.
type GeofenceHandler struct {
	store GeofenceStore
}

// NewGeofenceHandler creates a geofence handler.
func NewGeofenceHandler(store GeofenceStore) *GeofenceHandler {
	return &GeofenceHandler{store: store}
}

type geofenceConfig struct {
	Lat               *float64 `json:"lat"`
	Lng               *float64 `json:"lng"`
	RadiusM           float64  `json:"radius_m"`
	Active            bool     `json:"active"`
	UseCompanyDefault bool     `json:"use_company_default,omitempty"`
}

func geofenceToJSON(g *database.StoredGeofence) *geofenceConfig {
	if g == nil {
		return nil
	}
	return &geofenceConfig{
		Lat:               g.Lat,
		Lng:               g.Lng,
		RadiusM:           g.RadiusM,
		Active:            g.Active,
		UseCompanyDefault: g.UseCompanyDefault,
	}
}

// GetCompany returns the company default geofence.
func (h *GeofenceHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")

	g, err := h.store.CompanyDefault(r.Context(), companyID)
	if err != nil {
		log.Printf("Failed to load company geofence %s: %v", sanitizeForLog(companyID), err)
		respondError(w, http.StatusInternalServerError, "failed to load geofence")
		return
	}
	if g == nil {
		respondError(w, http.StatusNotFound, "no geofence configured")
		return
	}
	respondJSON(w, http.StatusOK, geofenceToJSON(g))
}

// PutCompany upserts the company default geofence. The radius is validated
// here at the write boundary.
func (h *GeofenceHandler) PutCompany(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")

	var req geofenceConfig
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := geofence.ValidateRadius(req.RadiusM); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.store.Upsert(r.Context(), database.StoredGeofence{
		Scope:     database.ScopeCompany,
		CompanyID: companyID,
		Lat:       req.Lat,
		Lng:       req.Lng,
		RadiusM:   req.RadiusM,
		Active:    req.Active,
	})
	if err != nil {
		log.Printf("Failed to upsert company geofence %s: %v", sanitizeForLog(companyID), err)
		respondError(w, http.StatusInternalServerError, "failed to save geofence")
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// GetEmployee returns the employee override geofence.
func (h *GeofenceHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	g, err := h.store.EmployeeOverride(r.Context(), employeeID)
	if err != nil {
		log.Printf("Failed to load employee geofence %s: %v", sanitizeForLog(employeeID), err)
		respondError(w, http.StatusInternalServerError, "failed to load geofence")
		return
	}
	if g == nil {
		respondError(w, http.StatusNotFound, "no geofence configured")
		return
	}
	respondJSON(w, http.StatusOK, geofenceToJSON(g))
}

// PutEmployee upserts an employee override geofence.
func (h *GeofenceHandler) PutEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	var req geofenceConfig
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := geofence.ValidateRadius(req.RadiusM); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.store.Upsert(r.Context(), database.StoredGeofence{
		Scope:             database.ScopeEmployee,
		EmployeeID:        employeeID,
		Lat:               req.Lat,
		Lng:               req.Lng,
		RadiusM:           req.RadiusM,
		Active:            req.Active,
		UseCompanyDefault: req.UseCompanyDefault,
	})
	if err != nil {
		log.Printf("Failed to upsert employee geofence %s: %v", sanitizeForLog(employeeID), err)
		respondError(w, http.StatusInternalServerError, "failed to save geofence")
		return
	}
	respondJSON(w, http.StatusOK, req)
}
