// Package punch authorizes time-clock punches by combining the geofence and
// face verification signals into a single accept/reject decision.
package punch

import (
	"time"

	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/geofence"
	"github.com/stafftrack/attendance/internal/match"
)

// Reason identifies why a punch was rejected.
type Reason string

const (
	ReasonGeolocationUnavailable      Reason = "geolocation_unavailable"
	ReasonGeolocationTimeout          Reason = "geolocation_timeout"
	ReasonGeolocationPermissionDenied Reason = "geolocation_permission_denied"
	ReasonLocationOutOfRange          Reason = "location_out_of_range"
	ReasonFaceMatchBelowThreshold     Reason = "face_match_below_threshold"
	ReasonFaceCaptureMissing          Reason = "face_capture_missing"
)

// ValidLocationFailure reports whether r is a device geolocation failure the
// client may report.
func ValidLocationFailure(r Reason) bool {
	switch r {
	case ReasonGeolocationUnavailable, ReasonGeolocationTimeout, ReasonGeolocationPermissionDenied:
		return true
	}
	return false
}

// Location is a device-reported position. CapturedAt is when the device fix
// was taken; cached fixes older than the configured maximum are rejected as a
// timeout.
type Location struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	CapturedAt time.Time `json:"captured_at"`
}

// Request carries everything the orchestrator needs for one punch attempt.
// The caller resolves the company policy flag and runs the capture session;
// the orchestrator derives everything else.
type Request struct {
	EmployeeID string
	CompanyID  string
	Type       database.PunchType
	Device     string

	// Location is the device position, nil when geolocation failed.
	// LocationFailure then says why.
	Location        *Location
	LocationFailure Reason

	// Descriptor is the front-angle capture from the verification session,
	// nil when no capture ran.
	Descriptor []float32

	// CompanyRequiresFace is the company-level face verification setting.
	CompanyRequiresFace bool
}

// Decision is the outcome of a punch attempt. Exactly one of Record (with
// Authorized true) or Reason (with Authorized false) is meaningful.
type Decision struct {
	Authorized bool
	Reason     Reason
	Method     database.VerificationMethod
	Record     *database.PunchRecord

	// Evidence, present when the corresponding check ran.
	Location *geofence.Result
	Face     *match.Result

	// Informational conditions that do not block authorization on their own.
	NotEnrolled   bool // face required by policy but employee has no enrollment
	ConfigMissing bool // no geofence config resolves, location check skipped
}

// methodFor derives the verification method tag from the two signals. The
// table is total: every combination yields exactly one method.
func methodFor(locationVerified, faceVerified bool) database.VerificationMethod {
	switch {
	case locationVerified && faceVerified:
		return database.MethodGeoFace
	case locationVerified:
		return database.MethodGeoOnly
	case faceVerified:
		return database.MethodFaceOnly
	default:
		return database.MethodManual
	}
}
