package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stafftrack/attendance/internal/capture"
	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/directory"
	"github.com/stafftrack/attendance/internal/punch"
)

// PunchHandler exposes the punch authorization operation and the per-employee
// punch history.
type PunchHandler struct {
	orchestrator *punch.Orchestrator
	directory    directory.Reader
	manager      *capture.Manager
	history      database.AttendanceReader
}

// NewPunchHandler creates a punch handler.
func NewPunchHandler(orchestrator *punch.Orchestrator, dir directory.Reader, manager *capture.Manager, history database.AttendanceReader) *PunchHandler {
	return &PunchHandler{orchestrator: orchestrator, directory: dir, manager: manager, history: history}
}

type punchRequest struct {
	EmployeeID      string             `json:"employee_id"`
	Type            database.PunchType `json:"type"`
	Device          string             `json:"device"`
	Location        *punch.Location    `json:"location,omitempty"`
	LocationFailure punch.Reason       `json:"location_failure,omitempty"`

	// SessionID references a completed verification capture session whose
	// front descriptor feeds the face check. Optional: a punch without a
	// capture relies on location alone.
	SessionID string `json:"session_id,omitempty"`
}

type punchResponse struct {
	Authorized bool                        `json:"authorized"`
	Reason     punch.Reason                `json:"reason,omitempty"`
	Method     database.VerificationMethod `json:"method"`

	DistanceM      *float64 `json:"distance_m,omitempty"`
	FaceConfidence *float64 `json:"face_confidence,omitempty"`

	NotEnrolled   bool `json:"not_enrolled,omitempty"`
	ConfigMissing bool `json:"config_missing,omitempty"`

	PunchID string `json:"punch_id,omitempty"`
}

// Attempt evaluates a check-in/check-out punch.
func (h *PunchHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	var req punchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if !database.ValidPunchType(req.Type) {
		respondError(w, http.StatusBadRequest, "type must be check_in or check_out")
		return
	}

	emp, err := h.directory.Employee(r.Context(), req.EmployeeID)
	if err != nil {
		log.Printf("Failed to look up employee %s: %v", sanitizeForLog(req.EmployeeID), err)
		respondError(w, http.StatusInternalServerError, "directory lookup failed")
		return
	}
	if emp == nil {
		respondError(w, http.StatusNotFound, "employee not found")
		return
	}
	if !emp.Active {
		respondError(w, http.StatusForbidden, "employee is not active")
		return
	}

	company, err := h.directory.Company(r.Context(), emp.CompanyID)
	if err != nil {
		log.Printf("Failed to look up company %s: %v", sanitizeForLog(emp.CompanyID), err)
		respondError(w, http.StatusInternalServerError, "directory lookup failed")
		return
	}

	descriptorVec, ok := h.capturedDescriptor(w, req)
	if !ok {
		return
	}

	attempt := punch.Request{
		EmployeeID:      req.EmployeeID,
		CompanyID:       emp.CompanyID,
		Type:            req.Type,
		Device:          req.Device,
		Location:        req.Location,
		LocationFailure: req.LocationFailure,
		Descriptor:      descriptorVec,
	}
	if company != nil {
		attempt.CompanyRequiresFace = company.RequireFace
	}

	dec, err := h.orchestrator.AttemptPunch(r.Context(), attempt)
	if err != nil {
		log.Printf("Punch attempt for employee %s failed: %v", sanitizeForLog(req.EmployeeID), err)
		respondError(w, http.StatusInternalServerError, "punch attempt failed")
		return
	}

	resp := punchResponse{
		Authorized:    dec.Authorized,
		Reason:        dec.Reason,
		Method:        dec.Method,
		NotEnrolled:   dec.NotEnrolled,
		ConfigMissing: dec.ConfigMissing,
	}
	if dec.Location != nil {
		d := dec.Location.DistanceM
		resp.DistanceM = &d
	}
	if dec.Face != nil {
		c := dec.Face.Confidence
		resp.FaceConfidence = &c
	}
	if dec.Record != nil {
		resp.PunchID = dec.Record.ID
	}

	status := http.StatusOK
	if !dec.Authorized {
		status = http.StatusForbidden
	}
	respondJSON(w, status, resp)
}

type punchHistoryEntry struct {
	ID               string                      `json:"id"`
	Type             database.PunchType          `json:"type"`
	Timestamp        time.Time                   `json:"timestamp"`
	Method           database.VerificationMethod `json:"method"`
	LocationVerified bool                        `json:"location_verified"`
	FaceVerified     bool                        `json:"face_verified"`
	DistanceM        *float64                    `json:"distance_m,omitempty"`
	FaceConfidence   *float64                    `json:"face_confidence,omitempty"`
	Device           string                      `json:"device,omitempty"`
}

// History lists an employee's latest punches, newest first. The optional
// limit query parameter caps the page size.
func (h *PunchHandler) History(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	emp, err := h.directory.Employee(r.Context(), employeeID)
	if err != nil {
		log.Printf("Failed to look up employee %s: %v", sanitizeForLog(employeeID), err)
		respondError(w, http.StatusInternalServerError, "directory lookup failed")
		return
	}
	if emp == nil {
		respondError(w, http.StatusNotFound, "employee not found")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	records, err := h.history.Recent(r.Context(), employeeID, limit)
	if err != nil {
		log.Printf("Failed to read punch history for %s: %v", sanitizeForLog(employeeID), err)
		respondError(w, http.StatusInternalServerError, "punch history lookup failed")
		return
	}

	out := make([]punchHistoryEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, punchHistoryEntry{
			ID:               rec.ID,
			Type:             rec.Type,
			Timestamp:        rec.Timestamp,
			Method:           rec.Method,
			LocationVerified: rec.LocationVerified,
			FaceVerified:     rec.FaceVerified,
			DistanceM:        rec.DistanceM,
			FaceConfidence:   rec.FaceConfidence,
			Device:           rec.Device,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"punches": out})
}

// capturedDescriptor pulls the front-angle descriptor out of the referenced
// verification session, if one was supplied. The session is consumed.
func (h *PunchHandler) capturedDescriptor(w http.ResponseWriter, req punchRequest) ([]float32, bool) {
	if req.SessionID == "" {
		return nil, true
	}

	session, err := h.manager.Get(req.SessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "capture session not found")
		return nil, false
	}
	if session.Mode != capture.ModeVerification {
		respondError(w, http.StatusConflict, "session is not a verification session")
		return nil, false
	}
	if session.EmployeeID != req.EmployeeID {
		respondError(w, http.StatusConflict, "session belongs to a different employee")
		return nil, false
	}

	captured, err := session.Descriptors()
	if err != nil {
		respondError(w, http.StatusConflict, "capture session not complete")
		return nil, false
	}
	front, ok := captured[database.AngleFront]
	if !ok {
		respondError(w, http.StatusConflict, "capture session has no front descriptor")
		return nil, false
	}

	h.manager.Remove(session.ID)
	return front.Vector, true
}
