package punch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/geofence"
	"github.com/stafftrack/attendance/internal/match"
)

// Orchestrator is the only component that makes the accept/reject call for a
// punch. It resolves the geofence, runs both verification signals, applies
// the authorization rule, and persists authorized punches.
type Orchestrator struct {
	geofences   database.GeofenceReader
	enrollments database.EnrollmentReader
	log         database.AttendanceLog
	matcher     *match.Matcher

	maxLocationAge time.Duration
	now            func() time.Time
}

// NewOrchestrator wires the orchestrator. maxLocationAge bounds how old a
// cached device fix may be before it is treated as a geolocation timeout.
func NewOrchestrator(
	geofences database.GeofenceReader,
	enrollments database.EnrollmentReader,
	log database.AttendanceLog,
	matcher *match.Matcher,
	maxLocationAge time.Duration,
) *Orchestrator {
	if maxLocationAge <= 0 {
		maxLocationAge = 60 * time.Second
	}
	return &Orchestrator{
		geofences:      geofences,
		enrollments:    enrollments,
		log:            log,
		matcher:        matcher,
		maxLocationAge: maxLocationAge,
		now:            time.Now,
	}
}

// AttemptPunch evaluates one check-in/check-out attempt. The returned Decision
// is always populated on a nil error; rejection is a Decision, not an error.
// Errors are reserved for invalid requests and collaborator failures
// (store reads, attendance log persistence).
func (o *Orchestrator) AttemptPunch(ctx context.Context, req Request) (Decision, error) {
	if !database.ValidPunchType(req.Type) {
		return Decision{}, fmt.Errorf("invalid punch type %q", req.Type)
	}
	if req.EmployeeID == "" {
		return Decision{}, errors.New("employee id is required")
	}

	var dec Decision

	fence, locationRequired, err := o.resolveGeofence(ctx, req, &dec)
	if err != nil {
		return Decision{}, err
	}

	locVerified, rejection := o.verifyLocation(req, fence, locationRequired, &dec)
	if rejection != "" {
		dec.Reason = rejection
		dec.Method = methodFor(false, false)
		return dec, nil
	}

	faceVerified, faceRequired, err := o.verifyFace(ctx, req, &dec)
	if err != nil {
		return Decision{}, err
	}

	dec.Method = methodFor(locVerified, faceVerified)

	if locationRequired && !locVerified {
		dec.Reason = ReasonLocationOutOfRange
		return dec, nil
	}
	if faceRequired && !faceVerified {
		if dec.Reason == "" {
			dec.Reason = ReasonFaceMatchBelowThreshold
		}
		return dec, nil
	}

	rec := o.buildRecord(req, dec)
	if err := o.log.Append(ctx, rec); err != nil {
		return Decision{}, fmt.Errorf("failed to persist punch: %w", err)
	}

	dec.Authorized = true
	dec.Record = &rec
	return dec, nil
}

// resolveGeofence loads both config candidates and resolves precedence.
// A missing config means location verification is not required; the condition
// is still surfaced so the caller can flag it to an administrator.
func (o *Orchestrator) resolveGeofence(ctx context.Context, req Request, dec *Decision) (geofence.Resolved, bool, error) {
	override, err := o.geofences.EmployeeOverride(ctx, req.EmployeeID)
	if err != nil {
		return geofence.Resolved{}, false, fmt.Errorf("failed to load employee geofence: %w", err)
	}
	companyDefault, err := o.geofences.CompanyDefault(ctx, req.CompanyID)
	if err != nil {
		return geofence.Resolved{}, false, fmt.Errorf("failed to load company geofence: %w", err)
	}

	fence, err := geofence.Resolve(override.ToConfig(), companyDefault.ToConfig())
	if errors.Is(err, geofence.ErrConfigMissing) {
		dec.ConfigMissing = true
		return geofence.Resolved{}, false, nil
	}
	return fence, true, nil
}

// verifyLocation runs the geofence check when one is configured. Returns a
// rejection reason when location verification is required but the device
// could not produce a usable fix.
func (o *Orchestrator) verifyLocation(req Request, fence geofence.Resolved, required bool, dec *Decision) (bool, Reason) {
	if !required {
		return false, ""
	}

	if req.Location == nil {
		reason := req.LocationFailure
		if !ValidLocationFailure(reason) {
			reason = ReasonGeolocationUnavailable
		}
		return false, reason
	}
	if !req.Location.CapturedAt.IsZero() && o.now().Sub(req.Location.CapturedAt) > o.maxLocationAge {
		return false, ReasonGeolocationTimeout
	}

	res := geofence.Verify(fence, geofence.Point{Lat: req.Location.Lat, Lng: req.Location.Lng})
	dec.Location = &res
	return res.Verified, ""
}

// verifyFace runs the matcher. Face verification is required only when the
// company enables it AND the employee has at least one enrolled descriptor;
// an employee with zero descriptors degrades to "not required" but the
// condition is still reported so the caller can prompt enrollment.
func (o *Orchestrator) verifyFace(ctx context.Context, req Request, dec *Decision) (verified, required bool, err error) {
	enrolled, err := o.enrollments.GetAll(ctx, req.EmployeeID)
	if err != nil {
		return false, false, fmt.Errorf("failed to load enrollment: %w", err)
	}

	if len(enrolled) == 0 {
		if req.CompanyRequiresFace {
			dec.NotEnrolled = true
		}
		return false, false, nil
	}

	if req.Descriptor == nil {
		if req.CompanyRequiresFace {
			dec.Reason = ReasonFaceCaptureMissing
			return false, true, nil
		}
		return false, false, nil
	}

	res, err := o.matcher.Best(req.Descriptor, enrolled)
	if err != nil {
		return false, false, fmt.Errorf("face match failed: %w", err)
	}
	dec.Face = &res
	return res.Verified, req.CompanyRequiresFace, nil
}

func (o *Orchestrator) buildRecord(req Request, dec Decision) database.PunchRecord {
	rec := database.PunchRecord{
		ID:         uuid.New().String(),
		EmployeeID: req.EmployeeID,
		Type:       req.Type,
		Timestamp:  o.now(),
		Method:     dec.Method,
		Device:     req.Device,
	}
	if req.Location != nil {
		lat, lng := req.Location.Lat, req.Location.Lng
		rec.Lat, rec.Lng = &lat, &lng
	}
	if dec.Location != nil {
		d := dec.Location.DistanceM
		rec.DistanceM = &d
		rec.LocationVerified = dec.Location.Verified
	}
	if dec.Face != nil {
		c := dec.Face.Confidence
		rec.FaceConfidence = &c
		rec.FaceVerified = dec.Face.Verified
	}
	return rec
}
