package database

import (
	"time"
)

// Angle is the head pose under which a face descriptor was captured.
type Angle string

const (
	AngleFront Angle = "front"
	AngleLeft  Angle = "left"
	AngleRight Angle = "right"
	AngleUp    Angle = "up"
	AngleDown  Angle = "down"
)

// RegistrationAngles is the fixed capture order for enrollment. The front
// descriptor is always marked primary.
var RegistrationAngles = []Angle{AngleFront, AngleLeft, AngleRight, AngleUp, AngleDown}

// ValidAngle reports whether a is one of the known capture angles.
func ValidAngle(a Angle) bool {
	switch a {
	case AngleFront, AngleLeft, AngleRight, AngleUp, AngleDown:
		return true
	}
	return false
}

// StoredDescriptor represents a face descriptor stored for an employee.
type StoredDescriptor struct {
	ID         int64
	EmployeeID string
	Angle      Angle
	Vector     []float32
	Primary    bool
	Model      string
	Dim        int
	CreatedAt  time.Time
}

// GeofenceScope distinguishes the company default from employee overrides.
type GeofenceScope string

const (
	ScopeCompany  GeofenceScope = "company"
	ScopeEmployee GeofenceScope = "employee"
)

// StoredGeofence is a geofence config row. Coordinates are nullable: a row may
// exist (e.g. radius configured by an admin) before coordinates are set.
type StoredGeofence struct {
	ID                int64
	Scope             GeofenceScope
	CompanyID         string // set for company scope
	EmployeeID        string // set for employee scope
	Lat               *float64
	Lng               *float64
	RadiusM           float64
	Active            bool
	UseCompanyDefault bool // employee scope only
	UpdatedAt         time.Time
}

// PunchType is the direction of a time-clock punch.
type PunchType string

const (
	PunchCheckIn  PunchType = "check_in"
	PunchCheckOut PunchType = "check_out"
)

// ValidPunchType reports whether t is a known punch direction.
func ValidPunchType(t PunchType) bool {
	return t == PunchCheckIn || t == PunchCheckOut
}

// VerificationMethod records which signals authorized a punch.
type VerificationMethod string

const (
	MethodGeoFace  VerificationMethod = "geo_face"
	MethodGeoOnly  VerificationMethod = "geo_only"
	MethodFaceOnly VerificationMethod = "face_only"
	MethodManual   VerificationMethod = "manual"
)

// PunchRecord is an authorized attendance punch. Records are append-only and
// immutable once persisted.
type PunchRecord struct {
	ID               string
	EmployeeID       string
	Type             PunchType
	Timestamp        time.Time
	Lat              *float64
	Lng              *float64
	DistanceM        *float64
	LocationVerified bool
	FaceConfidence   *float64
	FaceVerified     bool
	Method           VerificationMethod
	Device           string
}
