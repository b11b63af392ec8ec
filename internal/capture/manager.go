package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stafftrack/attendance/internal/descriptor"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("capture session not found")

// Manager tracks live capture sessions and expires the abandoned ones.
// Expiry cancels the session, which releases its camera.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	extractor descriptor.Extractor
	opts      Options
	ttl       time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a session manager. ttl bounds how long a session may sit
// without client interaction before it is cancelled.
func NewManager(ext descriptor.Extractor, opts Options, ttl time.Duration) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		extractor: ext,
		opts:      opts,
		ttl:       ttl,
		done:      make(chan struct{}),
	}
	go m.expireLoop()
	return m
}

// StartSession creates a session for the employee, wires a device-fed camera
// and kicks off the capture workflow. Sessions outlive the HTTP request that
// created them, so the workflow runs on a background context.
func (m *Manager) StartSession(employeeID string, mode Mode) *Session {
	cam := NewRemoteCamera(2*time.Second, m.opts.withDefaults().OpenTimeout)
	s := NewSession(uuid.New().String(), employeeID, mode, cam, m.extractor, m.opts)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	s.Start(context.Background())
	return s
}

// Get returns a live session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove drops a session from tracking. Terminal sessions only; the caller is
// expected to have read the result first.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Close stops the expiry loop and cancels every live session.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Cancel()
	}
}

func (m *Manager) expireLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.expire()
		}
	}
}

func (m *Manager) expire() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.LastTouched().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Cancel()
	}
}
