// Package match scores a freshly captured face descriptor against an
// employee's enrolled descriptors.
package match

import (
	"errors"
	"fmt"
	"math"

	"github.com/stafftrack/attendance/internal/database"
)

// Default decision constants. Both are heuristics inherited from the previous
// attendance system and can be overridden through configuration.
const (
	// DefaultDistanceThreshold is the euclidean distance mapped to 0% confidence.
	DefaultDistanceThreshold = 0.6
	// DefaultMinConfidence is the confidence required to declare a match verified.
	DefaultMinConfidence = 70.0
)

// ErrNotEnrolled signals that the employee has zero stored descriptors.
// Distinct from a low-confidence mismatch: callers treat it as "face
// verification not applicable", not as a failed match.
var ErrNotEnrolled = errors.New("employee has no enrolled descriptors")

// ErrDimensionMismatch signals that a stored descriptor's length differs from
// the captured one. Treated as a data-integrity error rather than a silent
// partial comparison.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// Matcher holds the decision constants.
type Matcher struct {
	DistanceThreshold float64
	MinConfidence     float64
}

// NewMatcher creates a matcher with the given constants, falling back to the
// defaults for non-positive values.
func NewMatcher(distanceThreshold, minConfidence float64) *Matcher {
	if distanceThreshold <= 0 {
		distanceThreshold = DefaultDistanceThreshold
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Matcher{DistanceThreshold: distanceThreshold, MinConfidence: minConfidence}
}

// Result is the outcome of matching a captured descriptor.
type Result struct {
	Confidence float64        // 0-100
	Distance   float64        // euclidean distance of the best match
	Angle      database.Angle // enrollment angle that produced the best match
	Verified   bool
}

// EuclideanDistance computes the euclidean distance between two descriptors
// of equal length.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Confidence converts a descriptor distance to a 0-100 score. Distance 0 maps
// to 100 and anything at or beyond the threshold maps to 0; the mapping is
// linear in between.
func (m *Matcher) Confidence(distance float64) float64 {
	c := (1 - distance/m.DistanceThreshold) * 100
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// Best compares the captured descriptor against every enrolled descriptor
// (all angles, not just the primary) and returns the maximum confidence found
// along with the angle that produced it. A pure reduce: comparison order does
// not matter.
//
// Returns ErrNotEnrolled when the employee has no descriptors and
// ErrDimensionMismatch when any stored descriptor's length differs from the
// captured one.
func (m *Matcher) Best(captured []float32, enrolled []database.StoredDescriptor) (Result, error) {
	if len(enrolled) == 0 {
		return Result{}, ErrNotEnrolled
	}

	best := Result{Confidence: -1}
	for i := range enrolled {
		d, err := EuclideanDistance(captured, enrolled[i].Vector)
		if err != nil {
			return Result{}, fmt.Errorf("descriptor %d (angle %s): %w", enrolled[i].ID, enrolled[i].Angle, err)
		}
		if c := m.Confidence(d); c > best.Confidence {
			best = Result{Confidence: c, Distance: d, Angle: enrolled[i].Angle}
		}
	}

	best.Verified = best.Confidence >= m.MinConfidence
	return best, nil
}
