// Package session tracks the live form bindings of connected pages.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/edidform/internal/binding"
	"github.com/matthewbaird/edidform/internal/visibility"
)

// Session holds the per-page binding state.
type Session struct {
	ID           string    `json:"id"`
	Form         string    `json:"form"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`

	mu   sync.Mutex
	last binding.Result
}

// NewSession creates a session for the named form.
func NewSession(form string) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		Form:         form,
		CreatedAt:    now,
		LastActiveAt: now,
		last:         make(binding.Result),
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.LastActiveAt = time.Now()
	s.mu.Unlock()
}

// Diff records res as the page's current state and returns only the
// directives that changed since the previous call. full is true when no
// state had been pushed for any section in res yet.
func (s *Session) Diff(res binding.Result) (delta binding.Result, full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()

	full = true
	delta = make(binding.Result)
	for section, st := range res {
		prev, seen := s.last[section]
		if seen {
			full = false
			if prev.Equal(st) {
				continue
			}
		}
		changed := make(visibility.State)
		for f, d := range st {
			if old, ok := prev[f]; !ok || old != d {
				changed[f] = d
			}
		}
		if len(changed) > 0 {
			delta[section] = changed
		}
		s.last[section] = st
	}
	return delta, full
}

// Reset forgets the pushed state, so the next Diff is a full push.
func (s *Session) Reset() {
	s.mu.Lock()
	s.last = make(binding.Result)
	s.mu.Unlock()
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.LastActiveAt) > timeout
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a session manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Create creates a new session and returns it.
func (m *Manager) Create(form string) *Session {
	s := NewSession(form)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions and returns how many
// were dropped.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}
