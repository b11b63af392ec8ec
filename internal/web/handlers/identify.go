package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/stafftrack/attendance/internal/capture"
	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/directory"
	"github.com/stafftrack/attendance/internal/match"
)

// identifyCandidates is how many index hits are re-scored against full
// enrollments before giving up.
const identifyCandidates = 3

// IdentifyHandler answers "whose face is this" for kiosks where employees do
// not state an ID first. The index search only nominates candidates; the
// verdict always comes from the matcher against the candidate's full
// enrollment.
type IdentifyHandler struct {
	index       *database.IdentifyIndex
	enrollments database.EnrollmentReader
	directory   directory.Reader
	matcher     *match.Matcher
	manager     *capture.Manager
}

// NewIdentifyHandler creates an identify handler.
func NewIdentifyHandler(
	index *database.IdentifyIndex,
	enrollments database.EnrollmentReader,
	dir directory.Reader,
	matcher *match.Matcher,
	manager *capture.Manager,
) *IdentifyHandler {
	return &IdentifyHandler{
		index:       index,
		enrollments: enrollments,
		directory:   dir,
		matcher:     matcher,
		manager:     manager,
	}
}

type identifyRequest struct {
	SessionID string `json:"session_id"`
}

type identifyResponse struct {
	EmployeeID string  `json:"employee_id"`
	FullName   string  `json:"full_name,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Identify resolves a completed verification capture to an employee.
func (h *IdentifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	session, err := h.manager.Get(req.SessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "capture session not found")
		return
	}
	captured, err := session.Descriptors()
	if err != nil {
		respondError(w, http.StatusConflict, "capture session not complete")
		return
	}
	front, ok := captured[database.AngleFront]
	if !ok {
		respondError(w, http.StatusConflict, "capture session has no front descriptor")
		return
	}

	candidates, err := h.index.Search(front.Vector, identifyCandidates)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "identify index unavailable")
		return
	}

	for _, c := range candidates {
		enrolled, err := h.enrollments.GetAll(r.Context(), c.EmployeeID)
		if err != nil {
			log.Printf("Failed to load enrollment for candidate %s: %v", sanitizeForLog(c.EmployeeID), err)
			respondError(w, http.StatusInternalServerError, "failed to load enrollment")
			return
		}

		res, err := h.matcher.Best(front.Vector, enrolled)
		if errors.Is(err, match.ErrNotEnrolled) {
			continue
		}
		if err != nil {
			log.Printf("Match against candidate %s failed: %v", sanitizeForLog(c.EmployeeID), err)
			respondError(w, http.StatusInternalServerError, "face match failed")
			return
		}
		if !res.Verified {
			continue
		}

		resp := identifyResponse{EmployeeID: c.EmployeeID, Confidence: res.Confidence}
		if emp, err := h.directory.Employee(r.Context(), c.EmployeeID); err == nil && emp != nil {
			resp.FullName = emp.FullName
		}
		respondJSON(w, http.StatusOK, resp)
		return
	}

	respondError(w, http.StatusNotFound, "no matching employee")
}
