package descriptor

import (
	"context"
	"sync"
)

// Fake is a scripted Extractor for tests. Each Extract call pops the next
// queued outcome; an empty queue falls back to ReadyVector.
type Fake struct {
	mu sync.Mutex

	// ReadyErr is returned by Ready. Nil means ready.
	ReadyErr error
	// ReadyVector is returned by Extract when the outcome queue is empty.
	// Nil means ErrNoFaceDetected.
	ReadyVector []float32
	// Outcomes are consumed in order by Extract calls.
	Outcomes []FakeOutcome

	// Calls counts Extract invocations.
	Calls int
}

// FakeOutcome is one scripted Extract result.
type FakeOutcome struct {
	Vector []float32
	Err    error
}

// Extract returns the next scripted outcome.
func (f *Fake) Extract(ctx context.Context, frame []byte) (*Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	if len(f.Outcomes) > 0 {
		out := f.Outcomes[0]
		f.Outcomes = f.Outcomes[1:]
		if out.Err != nil {
			return nil, out.Err
		}
		return &Descriptor{Vector: out.Vector, Dim: len(out.Vector), Score: 0.99}, nil
	}

	if f.ReadyVector == nil {
		return nil, ErrNoFaceDetected
	}
	return &Descriptor{Vector: f.ReadyVector, Dim: len(f.ReadyVector), Score: 0.99}, nil
}

// Ready returns the configured readiness error.
func (f *Fake) Ready(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ReadyErr
}
