// Package geofence verifies punch locations against configured geofences.
package geofence

import (
	"errors"
	"fmt"
	"math"
)

// earthRadiusM is the mean Earth radius in meters used by the haversine formula.
const earthRadiusM = 6371000.0

// Radius bounds in meters, enforced when a config is written.
const (
	MinRadiusM = 10.0
	MaxRadiusM = 1000.0
)

// ErrConfigMissing is returned when neither an employee override nor a company
// default resolves to concrete coordinates. This is an administrative error,
// distinct from a failed verification.
var ErrConfigMissing = errors.New("no geofence config resolves to coordinates")

// Point is a geographic coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Config is a geofence candidate as stored: coordinates may be absent.
type Config struct {
	Center            *Point
	RadiusM           float64
	Active            bool
	UseCompanyDefault bool // only meaningful on employee overrides
}

// Resolved is a geofence that is guaranteed to have concrete coordinates.
type Resolved struct {
	Center  Point
	RadiusM float64
}

// Result is the outcome of a location verification.
type Result struct {
	DistanceM float64
	Verified  bool
}

// Distance computes the great-circle (haversine) distance between two points
// in meters.
func Distance(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng

	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

// Verify checks whether the device position falls inside the resolved
// geofence. Both the distance and the verdict are returned so callers can
// present "you are N meters away" feedback.
func Verify(fence Resolved, device Point) Result {
	d := Distance(fence.Center, device)
	return Result{
		DistanceM: d,
		Verified:  d <= fence.RadiusM,
	}
}

// Resolve picks the effective geofence for an employee. An active employee
// override with concrete coordinates wins unless it is flagged to use the
// company default; otherwise the company default applies. Returns
// ErrConfigMissing when neither candidate yields coordinates.
func Resolve(override, companyDefault *Config) (Resolved, error) {
	if override != nil && override.Active && !override.UseCompanyDefault && override.Center != nil {
		return Resolved{Center: *override.Center, RadiusM: override.RadiusM}, nil
	}
	if companyDefault != nil && companyDefault.Active && companyDefault.Center != nil {
		return Resolved{Center: *companyDefault.Center, RadiusM: companyDefault.RadiusM}, nil
	}
	return Resolved{}, ErrConfigMissing
}

// ValidateRadius enforces the allowed radius range at configuration time.
// Out-of-range values are rejected at the boundary, never clamped later.
func ValidateRadius(radiusM float64) error {
	if radiusM < MinRadiusM || radiusM > MaxRadiusM {
		return fmt.Errorf("geofence radius must be between %.0f and %.0f meters, got %.1f", MinRadiusM, MaxRadiusM, radiusM)
	}
	return nil
}
