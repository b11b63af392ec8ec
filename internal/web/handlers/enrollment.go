package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stafftrack/attendance/internal/capture"
	"github.com/stafftrack/attendance/internal/database"
)

// EnrollmentHandler persists registration captures and manages stored
// enrollments.
type EnrollmentHandler struct {
	store    EnrollmentStore
	manager  *capture.Manager
	identify *database.IdentifyIndex
}

// NewEnrollmentHandler creates an enrollment handler.
func NewEnrollmentHandler(store EnrollmentStore, manager *capture.Manager, identify *database.IdentifyIndex) *EnrollmentHandler {
	return &EnrollmentHandler{store: store, manager: manager, identify: identify}
}

type completeEnrollmentRequest struct {
	SessionID string `json:"session_id"`
}

// Complete persists the descriptors of a completed registration session as
// the employee's enrollment: one descriptor per angle, front marked primary.
// Re-registration replaces the previous enrollment angle by angle.
func (h *EnrollmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	var req completeEnrollmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	session, err := h.manager.Get(req.SessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "capture session not found")
		return
	}
	if session.Mode != capture.ModeRegistration {
		respondError(w, http.StatusConflict, "session is not a registration session")
		return
	}
	if session.EmployeeID != employeeID {
		respondError(w, http.StatusConflict, "session belongs to a different employee")
		return
	}

	captured, err := session.Descriptors()
	if err != nil {
		respondError(w, http.StatusConflict, "capture session not complete")
		return
	}

	for _, angle := range database.RegistrationAngles {
		d, ok := captured[angle]
		if !ok {
			respondError(w, http.StatusConflict, "capture session missing angle "+string(angle))
			return
		}
		err := h.store.Save(r.Context(), database.StoredDescriptor{
			EmployeeID: employeeID,
			Angle:      angle,
			Vector:     d.Vector,
			Primary:    angle == database.AngleFront,
			Model:      d.Model,
			Dim:        len(d.Vector),
		})
		if err != nil {
			log.Printf("Failed to save %s descriptor for employee %s: %v", angle, sanitizeForLog(employeeID), err)
			respondError(w, http.StatusInternalServerError, "failed to save enrollment")
			return
		}
	}

	h.manager.Remove(session.ID)
	h.refreshIdentify(r, employeeID)

	respondJSON(w, http.StatusCreated, map[string]any{
		"employee_id": employeeID,
		"angles":      database.RegistrationAngles,
	})
}

// refreshIdentify reindexes the employee's new primary descriptor.
func (h *EnrollmentHandler) refreshIdentify(r *http.Request, employeeID string) {
	if h.identify == nil {
		return
	}

	stored, err := h.store.GetAll(r.Context(), employeeID)
	if err != nil {
		log.Printf("Failed to reload enrollment for identify index: %v", err)
		return
	}
	h.identify.RemoveEmployee(employeeID)
	for _, d := range stored {
		if d.Primary {
			h.identify.Add(d)
		}
	}
}

// Status reports whether the employee is enrolled and which angles are stored.
func (h *EnrollmentHandler) Status(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	stored, err := h.store.GetAll(r.Context(), employeeID)
	if err != nil {
		log.Printf("Failed to load enrollment for employee %s: %v", sanitizeForLog(employeeID), err)
		respondError(w, http.StatusInternalServerError, "failed to load enrollment")
		return
	}

	angles := make([]database.Angle, 0, len(stored))
	var primary database.Angle
	for _, d := range stored {
		angles = append(angles, d.Angle)
		if d.Primary {
			primary = d.Angle
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"employee_id":   employeeID,
		"enrolled":      len(stored) > 0,
		"angles":        angles,
		"primary_angle": primary,
	})
}

// Delete removes the employee's enrollment entirely.
func (h *EnrollmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	if err := h.store.DeleteAll(r.Context(), employeeID); err != nil {
		log.Printf("Failed to delete enrollment for employee %s: %v", sanitizeForLog(employeeID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete enrollment")
		return
	}
	if h.identify != nil {
		h.identify.RemoveEmployee(employeeID)
	}

	respondJSON(w, http.StatusOK, map[string]any{"employee_id": employeeID, "enrolled": false})
}
