// Package mock provides in-memory implementations of the database interfaces
// for testing.
package mock

import (
	"context"
	"sync"

	"github.com/stafftrack/attendance/internal/database"
)

// MockEnrollmentStore implements database.EnrollmentReader and
// database.EnrollmentWriter over an in-memory map.
type MockEnrollmentStore struct {
	mu          sync.RWMutex
	descriptors map[string][]database.StoredDescriptor
	nextID      int64

	// Error injection
	GetAllError    error
	SaveError      error
	DeleteAllError error
}

// NewMockEnrollmentStore creates an empty mock enrollment store.
func NewMockEnrollmentStore() *MockEnrollmentStore {
	return &MockEnrollmentStore{
		descriptors: make(map[string][]database.StoredDescriptor),
	}
}

// GetAll returns every descriptor stored for the employee.
func (m *MockEnrollmentStore) GetAll(ctx context.Context, employeeID string) ([]database.StoredDescriptor, error) {
	if m.GetAllError != nil {
		return nil, m.GetAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredDescriptor, len(m.descriptors[employeeID]))
	copy(out, m.descriptors[employeeID])
	return out, nil
}

// Save stores a descriptor, replacing any existing one for the same angle and
// keeping at most one primary per employee.
func (m *MockEnrollmentStore) Save(ctx context.Context, d database.StoredDescriptor) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	d.ID = m.nextID

	existing := m.descriptors[d.EmployeeID]
	kept := existing[:0:0]
	for _, e := range existing {
		if e.Angle == d.Angle {
			continue
		}
		if d.Primary {
			e.Primary = false
		}
		kept = append(kept, e)
	}
	m.descriptors[d.EmployeeID] = append(kept, d)
	return nil
}

// DeleteAll removes an employee's enrollment.
func (m *MockEnrollmentStore) DeleteAll(ctx context.Context, employeeID string) error {
	if m.DeleteAllError != nil {
		return m.DeleteAllError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.descriptors, employeeID)
	return nil
}

// MockGeofenceStore implements database.GeofenceReader and
// database.GeofenceWriter.
type MockGeofenceStore struct {
	mu       sync.RWMutex
	company  map[string]*database.StoredGeofence
	employee map[string]*database.StoredGeofence
	nextID   int64

	// Error injection
	CompanyDefaultError   error
	EmployeeOverrideError error
	UpsertError           error
}

// NewMockGeofenceStore creates an empty mock geofence store.
func NewMockGeofenceStore() *MockGeofenceStore {
	return &MockGeofenceStore{
		company:  make(map[string]*database.StoredGeofence),
		employee: make(map[string]*database.StoredGeofence),
	}
}

// CompanyDefault returns the company geofence, or nil if unset.
func (m *MockGeofenceStore) CompanyDefault(ctx context.Context, companyID string) (*database.StoredGeofence, error) {
	if m.CompanyDefaultError != nil {
		return nil, m.CompanyDefaultError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneGeofence(m.company[companyID]), nil
}

// EmployeeOverride returns the employee's override, or nil if unset.
func (m *MockGeofenceStore) EmployeeOverride(ctx context.Context, employeeID string) (*database.StoredGeofence, error) {
	if m.EmployeeOverrideError != nil {
		return nil, m.EmployeeOverrideError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneGeofence(m.employee[employeeID]), nil
}

// Upsert stores a geofence config by scope.
func (m *MockGeofenceStore) Upsert(ctx context.Context, g database.StoredGeofence) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if g.ID == 0 {
		m.nextID++
		g.ID = m.nextID
	}
	switch g.Scope {
	case database.ScopeCompany:
		m.company[g.CompanyID] = &g
	case database.ScopeEmployee:
		m.employee[g.EmployeeID] = &g
	}
	return nil
}

func cloneGeofence(g *database.StoredGeofence) *database.StoredGeofence {
	if g == nil {
		return nil
	}
	out := *g
	return &out
}

// MockAttendanceLog implements database.AttendanceLog, recording appended
// punches in order.
type MockAttendanceLog struct {
	mu      sync.Mutex
	records []database.PunchRecord

	// Error injection
	AppendError error
	RecentError error
}

// NewMockAttendanceLog creates an empty mock attendance log.
func NewMockAttendanceLog() *MockAttendanceLog {
	return &MockAttendanceLog{}
}

// Append records a punch.
func (m *MockAttendanceLog) Append(ctx context.Context, rec database.PunchRecord) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Recent returns the employee's latest punches, newest first.
func (m *MockAttendanceLog) Recent(ctx context.Context, employeeID string, limit int) ([]database.PunchRecord, error) {
	if m.RecentError != nil {
		return nil, m.RecentError
	}
	if limit <= 0 {
		limit = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []database.PunchRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].EmployeeID == employeeID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

// Records returns a copy of everything appended so far.
func (m *MockAttendanceLog) Records() []database.PunchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.PunchRecord, len(m.records))
	copy(out, m.records)
	return out
}
