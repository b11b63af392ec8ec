package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stafftrack/attendance/internal/capture"
	"github.com/stafftrack/attendance/internal/descriptor"
	"github.com/stafftrack/attendance/internal/directory"
)

// fakeDirectory is an in-memory directory.Reader for handler tests.
type fakeDirectory struct {
	employees map[string]*directory.Employee
	companies map[string]*directory.Company
	err       error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		employees: map[string]*directory.Employee{
			"emp-1": {ID: "emp-1", CompanyID: "acme", FullName: "Jana Novak", Active: true},
			"emp-2": {ID: "emp-2", CompanyID: "acme", FullName: "Sam Day", Active: false},
		},
		companies: map[string]*directory.Company{
			"acme": {ID: "acme", Name: "Acme", RequireFace: true},
		},
	}
}

func (d *fakeDirectory) Employee(ctx context.Context, id string) (*directory.Employee, error) {
	return d.employees[id], d.err
}

func (d *fakeDirectory) Company(ctx context.Context, id string) (*directory.Company, error) {
	return d.companies[id], d.err
}

func (d *fakeDirectory) SearchEmployees(ctx context.Context, name string) ([]directory.Employee, error) {
	if d.err != nil {
		return nil, d.err
	}
	folded := directory.FoldName(name)
	var out []directory.Employee
	for _, e := range d.employees {
		if e.Active && strings.Contains(directory.FoldName(e.FullName), folded) {
			out = append(out, *e)
		}
	}
	return out, nil
}

// newTestManager creates a capture manager with tight timings and a scripted
// extractor.
func newTestManager(t *testing.T, ext *descriptor.Fake) *capture.Manager {
	t.Helper()
	m := capture.NewManager(ext, capture.Options{
		PollInterval:      2 * time.Millisecond,
		SettleDelay:       time.Millisecond,
		ReadinessTimeout:  100 * time.Millisecond,
		ReadinessInterval: 2 * time.Millisecond,
		OpenTimeout:       time.Second,
	}, time.Minute)
	t.Cleanup(m.Close)
	return m
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeResponse parses a JSON response body.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// runCaptureToComplete drives a session through frame pushes until it
// finishes a verification capture.
func runCaptureToComplete(t *testing.T, manager *capture.Manager, session *capture.Session) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		session.PushFrame([]byte("frame"))
		st := session.Snapshot()
		if st.State == capture.StateAwaitingFace && st.FaceDetected {
			if _, err := session.SubmitAngle(context.Background()); err == nil {
				return
			}
		}
		if st.State == capture.StateComplete {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("capture session never completed, state %s", session.Snapshot().State)
}
