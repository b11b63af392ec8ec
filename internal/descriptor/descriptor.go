// Package descriptor wraps the external face-embedding capability. The
// extractor is consumed as a black box: it turns a camera frame into a
// fixed-length numeric descriptor, or reports that no face was found.
package descriptor

import (
	"context"
	"errors"
)

// ErrNoFaceDetected signals that the frame contained no detectable face.
// A transient, per-frame condition: callers absorb it locally and never
// escalate it to a session failure on its own.
var ErrNoFaceDetected = errors.New("no face detected in frame")

// ErrNotReady signals that the extraction capability is still loading.
// Retryable after a short wait.
var ErrNotReady = errors.New("descriptor extractor not ready")

// Descriptor is a fixed-length numeric face representation.
type Descriptor struct {
	Vector []float32
	Model  string
	Dim    int
	// Score is the extractor's own detection score for the chosen face,
	// not the match confidence.
	Score float64
}

// Extractor is the consumed black-box capability.
type Extractor interface {
	// Extract computes the descriptor for the most prominent face in the
	// frame. Returns ErrNoFaceDetected when the frame has no face.
	Extract(ctx context.Context, frame []byte) (*Descriptor, error)
	// Ready reports whether the extraction model is loaded. Returns
	// ErrNotReady while the capability is still warming up.
	Ready(ctx context.Context) error
}
