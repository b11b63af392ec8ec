package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stafftrack/attendance/internal/capture"
	"github.com/stafftrack/attendance/internal/descriptor"
	"github.com/stafftrack/attendance/internal/directory"
)

// maxFrameBytes bounds a single pushed camera frame.
const maxFrameBytes = 10 << 20

// CaptureHandler drives capture sessions over HTTP. The device starts a
// session, streams frames into it, and submits angles as the UI prompts.
type CaptureHandler struct {
	manager   *capture.Manager
	directory directory.Reader
}

// NewCaptureHandler creates a capture handler.
func NewCaptureHandler(manager *capture.Manager, dir directory.Reader) *CaptureHandler {
	return &CaptureHandler{manager: manager, directory: dir}
}

type startCaptureRequest struct {
	EmployeeID string       `json:"employee_id"`
	Mode       capture.Mode `json:"mode"`
}

// Start creates a new capture session for an active employee.
func (h *CaptureHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startCaptureRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Mode != capture.ModeRegistration && req.Mode != capture.ModeVerification {
		respondError(w, http.StatusBadRequest, "mode must be registration or verification")
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

	session := h.manager.StartSession(req.EmployeeID, req.Mode)
	respondJSON(w, http.StatusCreated, session.Snapshot())
}

// Status returns the session snapshot for UI polling.
func (h *CaptureHandler) Status(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// PushFrame accepts a camera frame from the device. The body is the raw
// encoded image.
func (h *CaptureHandler) PushFrame(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	frame, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes))
	if err != nil || len(frame) == 0 {
		respondError(w, http.StatusBadRequest, "frame body required")
		return
	}

	session.PushFrame(frame)
	respondJSON(w, http.StatusAccepted, session.Snapshot())
}

// SubmitAngle accepts the current angle's capture.
func (h *CaptureHandler) SubmitAngle(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	angle, err := session.SubmitAngle(r.Context())
	switch {
	case errors.Is(err, descriptor.ErrNoFaceDetected):
		respondError(w, http.StatusConflict, "no face currently detected")
		return
	case errors.Is(err, capture.ErrNotAwaitingFace), errors.Is(err, capture.ErrSessionTerminal):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Printf("Failed to submit angle for session %s: %v", sanitizeForLog(session.ID), err)
		respondError(w, http.StatusInternalServerError, "capture failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"angle":   angle,
		"session": session.Snapshot(),
	})
}

// Cancel aborts the session and releases its camera.
func (h *CaptureHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.Cancel()
	h.manager.Remove(session.ID)
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// ReportCameraFailure marks the session failed because the device could not
// acquire its camera.
func (h *CaptureHandler) ReportCameraFailure(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.ReportCameraFailure()
	respondJSON(w, http.StatusOK, session.Snapshot())
}

func (h *CaptureHandler) session(w http.ResponseWriter, r *http.Request) (*capture.Session, bool) {
	id := chi.URLParam(r, "id")
	session, err := h.manager.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "capture session not found")
		return nil, false
	}
	return session, true
}
