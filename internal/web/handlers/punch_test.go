package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stafftrack/attendance/internal/capture"
	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/database/mock"
	"github.com/stafftrack/attendance/internal/descriptor"
	"github.com/stafftrack/attendance/internal/match"
	"github.com/stafftrack/attendance/internal/punch"
)

const (
	testLat = 29.3759
	testLng = 47.9774
)

type punchFixture struct {
	enrollments *mock.MockEnrollmentStore
	geofences   *mock.MockGeofenceStore
	log         *mock.MockAttendanceLog
	manager     *capture.Manager
	handler     *PunchHandler
}

func newPunchFixture(t *testing.T, ext *descriptor.Fake) *punchFixture {
	t.Helper()

	f := &punchFixture{
		enrollments: mock.NewMockEnrollmentStore(),
		geofences:   mock.NewMockGeofenceStore(),
		log:         mock.NewMockAttendanceLog(),
		manager:     newTestManager(t, ext),
	}

	orch := punch.NewOrchestrator(f.geofences, f.enrollments, f.log, match.NewMatcher(0, 0), time.Minute)
	f.handler = NewPunchHandler(orch, newFakeDirectory(), f.manager, f.log)

	lat, lng := testLat, testLng
	err := f.geofences.Upsert(context.Background(), database.StoredGeofence{
		Scope:     database.ScopeCompany,
		CompanyID: "acme",
		Lat:       &lat,
		Lng:       &lng,
		RadiusM:   100,
		Active:    true,
	})
	if err != nil {
		t.Fatalf("failed to seed geofence: %v", err)
	}
	return f
}

func deviceLocation() *punch.Location {
	return &punch.Location{Lat: testLat, Lng: testLng, CapturedAt: time.Now()}
}

func TestPunchWithVerificationSession(t *testing.T) {
	vec := []float32{0.3, 0.4, 0, 0}
	ext := &descriptor.Fake{ReadyVector: vec}
	f := newPunchFixture(t, ext)

	err := f.enrollments.Save(context.Background(), database.StoredDescriptor{
		EmployeeID: "emp-1",
		Angle:      database.AngleFront,
		Vector:     vec,
		Primary:    true,
	})
	if err != nil {
		t.Fatalf("failed to seed enrollment: %v", err)
	}

	session := f.manager.StartSession("emp-1", capture.ModeVerification)
	runCaptureToComplete(t, f.manager, session)

	rec := httptest.NewRecorder()
	f.handler.Attempt(rec, jsonRequest(t, http.MethodPost, "/punch", punchRequest{
		EmployeeID: "emp-1",
		Type:       database.PunchCheckIn,
		Device:     "kiosk-7",
		Location:   deviceLocation(),
		SessionID:  session.ID,
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp punchResponse
	decodeResponse(t, rec, &resp)
	if !resp.Authorized || resp.Method != database.MethodGeoFace {
		t.Errorf("expected authorized geo_face, got %+v", resp)
	}
	if resp.FaceConfidence == nil || *resp.FaceConfidence != 100 {
		t.Errorf("expected confidence 100, got %v", resp.FaceConfidence)
	}
	if resp.PunchID == "" {
		t.Error("expected punch id for authorized punch")
	}
	if len(f.log.Records()) != 1 {
		t.Errorf("expected 1 persisted punch, got %d", len(f.log.Records()))
	}

	// Session is consumed by the punch.
	if _, err := f.manager.Get(session.ID); err == nil {
		t.Error("verification session should be consumed")
	}
}

func TestPunchRejectedOutOfRange(t *testing.T) {
	ext := &descriptor.Fake{ReadyVector: []float32{1, 0, 0, 0}}
	f := newPunchFixture(t, ext)

	loc := deviceLocation()
	loc.Lat += 0.01 // ~1.1km away

	rec := httptest.NewRecorder()
	f.handler.Attempt(rec, jsonRequest(t, http.MethodPost, "/punch", punchRequest{
		EmployeeID: "emp-1",
		Type:       database.PunchCheckOut,
		Location:   loc,
	}))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp punchResponse
	decodeResponse(t, rec, &resp)
	if resp.Authorized || resp.Reason != punch.ReasonLocationOutOfRange {
		t.Errorf("expected location_out_of_range, got %+v", resp)
	}
	if resp.DistanceM == nil || *resp.DistanceM < 1000 {
		t.Errorf("expected distance over 1km, got %v", resp.DistanceM)
	}
}

func TestPunchUnenrolledNotBlocked(t *testing.T) {
	ext := &descriptor.Fake{ReadyVector: []float32{1, 0, 0, 0}}
	f := newPunchFixture(t, ext)

	rec := httptest.NewRecorder()
	f.handler.Attempt(rec, jsonRequest(t, http.MethodPost, "/punch", punchRequest{
		EmployeeID: "emp-1",
		Type:       database.PunchCheckIn,
		Location:   deviceLocation(),
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp punchResponse
	decodeResponse(t, rec, &resp)
	if !resp.Authorized || resp.Method != database.MethodGeoOnly || !resp.NotEnrolled {
		t.Errorf("expected authorized geo_only with not_enrolled, got %+v", resp)
	}
}

func TestPunchValidation(t *testing.T) {
	ext := &descriptor.Fake{ReadyVector: []float32{1, 0, 0, 0}}
	f := newPunchFixture(t, ext)

	tests := []struct {
		name string
		body punchRequest
		want int
	}{
		{"bad type", punchRequest{EmployeeID: "emp-1", Type: "lunch"}, http.StatusBadRequest},
		{"unknown employee", punchRequest{EmployeeID: "ghost", Type: database.PunchCheckIn}, http.StatusNotFound},
		{"inactive employee", punchRequest{EmployeeID: "emp-2", Type: database.PunchCheckIn}, http.StatusForbidden},
		{"missing session", punchRequest{EmployeeID: "emp-1", Type: database.PunchCheckIn, SessionID: "ghost"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.handler.Attempt(rec, jsonRequest(t, http.MethodPost, "/punch", tt.body))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPunchRejectsForeignSession(t *testing.T) {
	ext := &descriptor.Fake{ReadyVector: []float32{1, 0, 0, 0}}
	f := newPunchFixture(t, ext)

	session := f.manager.StartSession("emp-2", capture.ModeVerification)

	rec := httptest.NewRecorder()
	f.handler.Attempt(rec, jsonRequest(t, http.MethodPost, "/punch", punchRequest{
		EmployeeID: "emp-1",
		Type:       database.PunchCheckIn,
		Location:   deviceLocation(),
		SessionID:  session.ID,
	}))

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for foreign session, got %d", rec.Code)
	}
}

func TestPunchHistory(t *testing.T) {
	ext := &descriptor.Fake{ReadyVector: []float32{1, 0, 0, 0}}
	f := newPunchFixture(t, ext)

	base := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)
	for i, rec := range []database.PunchRecord{
		{ID: "p-1", EmployeeID: "emp-1", Type: database.PunchCheckIn, Method: database.MethodGeoOnly, LocationVerified: true, Device: "kiosk-7"},
		{ID: "p-2", EmployeeID: "emp-2", Type: database.PunchCheckIn, Method: database.MethodGeoOnly},
		{ID: "p-3", EmployeeID: "emp-1", Type: database.PunchCheckOut, Method: database.MethodGeoFace, FaceVerified: true},
	} {
		rec.Timestamp = base.Add(time.Duration(i) * time.Hour)
		if err := f.log.Append(context.Background(), rec); err != nil {
			t.Fatalf("failed to seed punch log: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/employees/emp-1/punches", nil)
	f.handler.History(rec, requestWithChiParams(req, map[string]string{"id": "emp-1"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Punches []punchHistoryEntry `json:"punches"`
	}
	decodeResponse(t, rec, &resp)
	if len(resp.Punches) != 2 {
		t.Fatalf("expected 2 punches for emp-1, got %d", len(resp.Punches))
	}
	if resp.Punches[0].ID != "p-3" || resp.Punches[1].ID != "p-1" {
		t.Errorf("expected newest first p-3, p-1, got %+v", resp.Punches)
	}
	if resp.Punches[0].Method != database.MethodGeoFace || !resp.Punches[0].FaceVerified {
		t.Errorf("unexpected latest punch: %+v", resp.Punches[0])
	}
}

func TestPunchHistoryLimit(t *testing.T) {
	ext := &descriptor.Fake{ReadyVector: []float32{1, 0, 0, 0}}
	f := newPunchFixture(t, ext)

	for i := 0; i < 3; i++ {
		err := f.log.Append(context.Background(), database.PunchRecord{
			ID:         string(rune('a' + i)),
			EmployeeID: "emp-1",
			Type:       database.PunchCheckIn,
		})
		if err != nil {
			t.Fatalf("failed to seed punch log: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/employees/emp-1/punches?limit=1", nil)
	f.handler.History(rec, requestWithChiParams(req, map[string]string{"id": "emp-1"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Punches []punchHistoryEntry `json:"punches"`
	}
	decodeResponse(t, rec, &resp)
	if len(resp.Punches) != 1 || resp.Punches[0].ID != "c" {
		t.Errorf("expected only the latest punch, got %+v", resp.Punches)
	}
}

func TestPunchHistoryValidation(t *testing.T) {
	ext := &descriptor.Fake{ReadyVector: []float32{1, 0, 0, 0}}
	f := newPunchFixture(t, ext)

	tests := []struct {
		name string
		id   string
		path string
		want int
	}{
		{"unknown employee", "ghost", "/employees/ghost/punches", http.StatusNotFound},
		{"bad limit", "emp-1", "/employees/emp-1/punches?limit=zero", http.StatusBadRequest},
		{"negative limit", "emp-1", "/employees/emp-1/punches?limit=-1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			f.handler.History(rec, requestWithChiParams(req, map[string]string{"id": tt.id}))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
