// Package database defines the storage contracts for enrollments, geofence
// configs, and the append-only attendance log, plus the shared row types.
// Concrete implementations live in the postgres and mock subpackages.
package database

import (
	"context"

	"github.com/stafftrack/attendance/internal/geofence"
)

// EnrollmentReader reads an employee's stored face descriptors.
type EnrollmentReader interface {
	// GetAll returns every descriptor for the employee, all angles included.
	// An enrolled employee has up to one descriptor per angle.
	GetAll(ctx context.Context, employeeID string) ([]StoredDescriptor, error)
}

// EnrollmentWriter persists face descriptors produced by registration.
type EnrollmentWriter interface {
	// Save stores a descriptor, replacing any previous descriptor for the
	// same employee and angle. When d.Primary is set, the primary flag is
	// cleared on the employee's other descriptors so at most one remains.
	Save(ctx context.Context, d StoredDescriptor) error
	// DeleteAll removes an employee's enrollment entirely.
	DeleteAll(ctx context.Context, employeeID string) error
}

// GeofenceReader loads geofence config candidates for resolution.
type GeofenceReader interface {
	// CompanyDefault returns the company-wide geofence, or nil if unset.
	CompanyDefault(ctx context.Context, companyID string) (*StoredGeofence, error)
	// EmployeeOverride returns the employee's override, or nil if unset.
	EmployeeOverride(ctx context.Context, employeeID string) (*StoredGeofence, error)
}

// GeofenceWriter upserts geofence configs. Radius bounds are enforced here,
// at the write boundary, never at verification time.
type GeofenceWriter interface {
	Upsert(ctx context.Context, g StoredGeofence) error
}

// AttendanceLog is the external append-only punch store.
type AttendanceLog interface {
	Append(ctx context.Context, rec PunchRecord) error
}

// AttendanceReader reads back an employee's punch history.
type AttendanceReader interface {
	// Recent returns the employee's latest punches, newest first.
	Recent(ctx context.Context, employeeID string, limit int) ([]PunchRecord, error)
}

// AttendanceStore is the full attendance log surface. The orchestrator only
// appends; the history endpoint reads.
type AttendanceStore interface {
	AttendanceLog
	AttendanceReader
}

// ToConfig converts a stored geofence row into a resolution candidate.
// A nil receiver maps to a nil candidate so callers can pass lookup results
// straight through.
func (g *StoredGeofence) ToConfig() *geofence.Config {
	if g == nil {
		return nil
	}
	cfg := &geofence.Config{
		RadiusM:           g.RadiusM,
		Active:            g.Active,
		UseCompanyDefault: g.UseCompanyDefault,
	}
	if g.Lat != nil && g.Lng != nil {
		cfg.Center = &geofence.Point{Lat: *g.Lat, Lng: *g.Lng}
	}
	return cfg
}
