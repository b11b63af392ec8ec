// Package capture drives the face capture workflow: camera acquisition,
// periodic face-presence polling, and angle sequencing for registration or a
// single capture for verification.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/descriptor"
)

// State is the capture session lifecycle state.
type State string

const (
	StateIdle               State = "idle"
	StateModelLoading       State = "model_loading"
	StateCameraInitializing State = "camera_initializing"
	StateAwaitingFace       State = "awaiting_face"
	StateFrameCaptured      State = "frame_captured"
	StateComplete           State = "complete"
	StateCancelled          State = "cancelled"
	StateFailed             State = "failed"
)

// Terminal reports whether no further transitions are possible from s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateCancelled || s == StateFailed
}

// Mode selects the capture workflow.
type Mode string

const (
	// ModeRegistration captures all five angles in fixed order.
	ModeRegistration Mode = "registration"
	// ModeVerification captures a single front-angle frame.
	ModeVerification Mode = "verification"
)

// FailureReason identifies why a session entered StateFailed.
type FailureReason string

const (
	FailureCameraUnavailable FailureReason = "camera_unavailable"
	FailureVideoNotReady     FailureReason = "video_not_ready"
	FailureExtractorNotReady FailureReason = "extractor_not_ready"
)

// Session operation errors.
var (
	ErrSessionTerminal = errors.New("capture session already finished")
	ErrNotAwaitingFace = errors.New("session is not awaiting a face")
	ErrNotComplete     = errors.New("capture session not complete")
)

// Options tune the session's timing. Zero values fall back to defaults.
type Options struct {
	PollInterval      time.Duration // face presence poll cadence
	SettleDelay       time.Duration // pause after the inter-angle camera restart
	ReadinessTimeout  time.Duration // how long to wait for the extractor model
	ReadinessInterval time.Duration // extractor readiness re-check cadence
	OpenTimeout       time.Duration // camera acquisition timeout
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.PollInterval <= 0 {
		out.PollInterval = 500 * time.Millisecond
	}
	if out.SettleDelay <= 0 {
		out.SettleDelay = 400 * time.Millisecond
	}
	if out.ReadinessTimeout <= 0 {
		out.ReadinessTimeout = 20 * time.Second
	}
	if out.ReadinessInterval <= 0 {
		out.ReadinessInterval = 500 * time.Millisecond
	}
	if out.OpenTimeout <= 0 {
		out.OpenTimeout = 15 * time.Second
	}
	return out
}

// Status is a point-in-time snapshot of a session for the UI.
type Status struct {
	ID            string         `json:"id"`
	EmployeeID    string         `json:"employee_id"`
	Mode          Mode           `json:"mode"`
	State         State          `json:"state"`
	CurrentAngle  database.Angle `json:"current_angle,omitempty"`
	FaceDetected  bool           `json:"face_detected"`
	CapturedCount int            `json:"captured_count"`
	Failure       FailureReason  `json:"failure,omitempty"`
}

// Session owns one capture workflow. The camera is a scoped resource: it is
// released on every exit path (complete, cancel, failure), not just success.
type Session struct {
	ID         string
	EmployeeID string
	Mode       Mode

	camera    Camera
	extractor descriptor.Extractor
	opts      Options

	mu           sync.Mutex
	state        State
	angleIdx     int
	faceDetected bool
	latest       *descriptor.Descriptor
	captured     map[database.Angle]*descriptor.Descriptor
	failure      FailureReason

	pollCancel context.CancelFunc
	teardown   sync.Once
	lastTouch  time.Time
}

// NewSession creates a session in StateIdle. Call Start to begin.
func NewSession(id, employeeID string, mode Mode, cam Camera, ext descriptor.Extractor, opts Options) *Session {
	return &Session{
		ID:         id,
		EmployeeID: employeeID,
		Mode:       mode,
		camera:     cam,
		extractor:  ext,
		opts:       opts.withDefaults(),
		state:      StateIdle,
		captured:   make(map[database.Angle]*descriptor.Descriptor),
		lastTouch:  time.Now(),
	}
}

// angles returns the capture sequence for the session mode.
func (s *Session) angles() []database.Angle {
	if s.Mode == ModeVerification {
		return []database.Angle{database.AngleFront}
	}
	return database.RegistrationAngles
}

// Start runs the entry sequence asynchronously: wait for the extractor model,
// acquire the camera, then begin polling for a face. The session is observable
// in StateModelLoading/StateCameraInitializing while this is in flight.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateModelLoading
	s.mu.Unlock()

	go s.run(ctx)
}

func (s *Session) run(ctx context.Context) {
	if !s.waitForExtractor(ctx) {
		return
	}

	s.setState(StateCameraInitializing)
	if !s.openCamera(ctx) {
		return
	}

	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateAwaitingFace
	pollCtx, cancel := context.WithCancel(context.Background())
	s.pollCancel = cancel
	s.mu.Unlock()

	go s.pollFace(pollCtx)
}

// waitForExtractor blocks until the extraction capability reports ready.
// Surfaces a "loading" status while waiting and fails only after the timeout.
func (s *Session) waitForExtractor(ctx context.Context) bool {
	deadline := time.Now().Add(s.opts.ReadinessTimeout)
	for {
		if s.currentState().Terminal() {
			return false
		}
		err := s.extractor.Ready(ctx)
		if err == nil {
			return true
		}
		if !errors.Is(err, descriptor.ErrNotReady) || time.Now().After(deadline) {
			s.fail(FailureExtractorNotReady)
			return false
		}
		select {
		case <-ctx.Done():
			s.fail(FailureExtractorNotReady)
			return false
		case <-time.After(s.opts.ReadinessInterval):
		}
	}
}

// openCamera acquires the camera, mapping acquisition errors onto distinct
// failure reasons.
func (s *Session) openCamera(ctx context.Context) bool {
	openCtx, cancel := context.WithTimeout(ctx, s.opts.OpenTimeout)
	defer cancel()

	err := s.camera.Open(openCtx)
	if err == nil {
		return true
	}
	if errors.Is(err, ErrVideoNotReady) || errors.Is(err, context.DeadlineExceeded) {
		s.fail(FailureVideoNotReady)
	} else {
		s.fail(FailureCameraUnavailable)
	}
	return false
}

// pollFace is the recurring face-presence check. NoFaceDetected outcomes are
// absorbed here and never escalate; the poll only flips the faceDetected flag
// and caches the latest descriptor for SubmitAngle.
func (s *Session) pollFace(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := s.camera.Frame(ctx)
		if err != nil {
			s.setDetected(false, nil)
			continue
		}

		d, err := s.extractor.Extract(ctx, frame)
		if err != nil {
			// Transient per-frame conditions (no face, extractor hiccup)
			// just clear the flag until the next tick.
			s.setDetected(false, nil)
			continue
		}
		s.setDetected(true, d)
	}
}

func (s *Session) setDetected(detected bool, d *descriptor.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingFace {
		return
	}
	s.faceDetected = detected
	s.latest = d
}

// SubmitAngle accepts the current angle's capture. It succeeds only while a
// face is currently detected. After acceptance the session either advances to
// the next angle (restarting the camera for a fresh detection baseline) or
// completes if this was the last angle.
func (s *Session) SubmitAngle(ctx context.Context) (database.Angle, error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return "", ErrSessionTerminal
	}
	if s.state != StateAwaitingFace {
		s.mu.Unlock()
		return "", ErrNotAwaitingFace
	}
	if !s.faceDetected || s.latest == nil {
		s.mu.Unlock()
		return "", descriptor.ErrNoFaceDetected
	}

	angle := s.angles()[s.angleIdx]
	s.captured[angle] = s.latest
	s.state = StateFrameCaptured
	s.lastTouch = time.Now()
	last := s.angleIdx == len(s.angles())-1
	s.mu.Unlock()

	if last {
		s.complete()
		return angle, nil
	}

	// Deliberate stop-then-start between angles so the next capture starts
	// from a fresh detection baseline.
	_ = s.camera.Close()
	select {
	case <-ctx.Done():
		s.Cancel()
		return angle, ctx.Err()
	case <-time.After(s.opts.SettleDelay):
	}
	if s.currentState().Terminal() {
		return angle, ErrSessionTerminal
	}
	if !s.openCamera(ctx) {
		return angle, fmt.Errorf("camera restart failed after %s capture", angle)
	}

	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		// Cancel landed during the restart; its release has already run, so
		// the camera reacquired just above must be closed here.
		_ = s.camera.Close()
		return angle, ErrSessionTerminal
	}
	s.angleIdx++
	s.faceDetected = false
	s.latest = nil
	s.state = StateAwaitingFace
	s.mu.Unlock()

	return angle, nil
}

// complete finishes a successful session, releasing the camera.
func (s *Session) complete() {
	s.mu.Lock()
	s.state = StateComplete
	s.mu.Unlock()
	s.release()
}

// Cancel aborts the session from any state. Always releases the camera and
// stops the detection poll; safe to call repeatedly.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateCancelled
	s.mu.Unlock()
	s.release()
}

// ReportCameraFailure is called by the device when it cannot acquire its
// camera (permission denied or hardware error). Fatal to the session.
func (s *Session) ReportCameraFailure() {
	s.fail(FailureCameraUnavailable)
}

func (s *Session) fail(reason FailureReason) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.failure = reason
	s.mu.Unlock()
	s.release()
}

// release stops the poll and closes the camera exactly once. Every exit path
// funnels through here.
func (s *Session) release() {
	s.teardown.Do(func() {
		s.mu.Lock()
		cancel := s.pollCancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		_ = s.camera.Close()
	})
}

// PushFrame forwards a device frame to the session camera, if it is remote.
func (s *Session) PushFrame(frame []byte) {
	s.mu.Lock()
	s.lastTouch = time.Now()
	s.mu.Unlock()
	if rc, ok := s.camera.(*RemoteCamera); ok {
		rc.Push(frame)
	}
}

func (s *Session) currentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.state = st
}

// Snapshot returns the session status for the UI.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:            s.ID,
		EmployeeID:    s.EmployeeID,
		Mode:          s.Mode,
		State:         s.state,
		FaceDetected:  s.faceDetected,
		CapturedCount: len(s.captured),
		Failure:       s.failure,
	}
	if s.state == StateAwaitingFace || s.state == StateFrameCaptured {
		st.CurrentAngle = s.angles()[s.angleIdx]
	}
	return st
}

// Descriptors returns the captured descriptors keyed by angle. Only valid
// once the session is complete.
func (s *Session) Descriptors() (map[database.Angle]*descriptor.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateComplete {
		return nil, ErrNotComplete
	}
	out := make(map[database.Angle]*descriptor.Descriptor, len(s.captured))
	for a, d := range s.captured {
		out[a] = d
	}
	return out, nil
}

// LastTouched reports the last client interaction, for idle expiry.
func (s *Session) LastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouch
}
