package capture

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Camera is the scoped video resource a capture session owns. Open acquires
// the stream, Frame returns the most recent frame, Close releases the stream.
// A session opens and closes its camera between angle captures to force a
// fresh detection baseline.
type Camera interface {
	Open(ctx context.Context) error
	Frame(ctx context.Context) ([]byte, error)
	Close() error
}

// Camera acquisition errors. The session maps these onto distinct failure
// reasons so the UI can tell "permission denied" from "stream never started".
var (
	ErrCameraDenied  = errors.New("camera permission denied")
	ErrVideoNotReady = errors.New("video stream never became ready")
	ErrNoFrame       = errors.New("no fresh frame available")
)

// RemoteCamera adapts a device that pushes frames over HTTP into the Camera
// interface. The session polls it like a local video stream; the device keeps
// it fed via Push.
type RemoteCamera struct {
	mu       sync.Mutex
	open     bool
	frame    []byte
	frameAt  time.Time
	maxAge   time.Duration // frames older than this are considered stale
	waitOpen time.Duration // how long Open waits for the first frame
}

// NewRemoteCamera creates a device-fed camera. maxAge bounds frame staleness;
// waitOpen bounds how long Open blocks waiting for the stream to start.
func NewRemoteCamera(maxAge, waitOpen time.Duration) *RemoteCamera {
	return &RemoteCamera{maxAge: maxAge, waitOpen: waitOpen}
}

// Push stores the latest device frame. Frames pushed while the camera is
// closed are dropped, which is what forces the fresh baseline after an
// inter-angle restart.
func (c *RemoteCamera) Push(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return
	}
	c.frame = frame
	c.frameAt = time.Now()
}

// Open marks the stream live and waits for the first frame to arrive.
// Returns ErrVideoNotReady if no frame shows up in time.
func (c *RemoteCamera) Open(ctx context.Context) error {
	c.mu.Lock()
	c.open = true
	c.frame = nil
	c.mu.Unlock()

	deadline := time.Now().Add(c.waitOpen)
	for {
		c.mu.Lock()
		ready := c.frame != nil
		c.mu.Unlock()
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrVideoNotReady
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Frame returns the most recent fresh frame.
func (c *RemoteCamera) Frame(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.frame == nil {
		return nil, ErrNoFrame
	}
	if time.Since(c.frameAt) > c.maxAge {
		return nil, ErrNoFrame
	}
	return c.frame, nil
}

// Close releases the stream and drops any buffered frame.
func (c *RemoteCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.frame = nil
	return nil
}
