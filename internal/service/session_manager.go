package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sedna-dashboard/internal/accounts"
	"github.com/sedna-dashboard/internal/favorites"
	"github.com/sedna-dashboard/internal/logging"
	"github.com/sedna-dashboard/internal/overlay"
	"github.com/sedna-dashboard/internal/types"
)

// Session is the memory-only state of one dashboard tab
type Session struct {
	ID        string
	Favorites *favorites.Store
	Menu      *overlay.Menu
	Accounts  *accounts.Book
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns when the session was last used
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionManager maps session IDs to sessions and expires idle ones
type SessionManager struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSessionManager creates a session manager. Sessions idle for longer than
// ttl are dropped by the janitor.
func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create mints a new session with fresh state
func (m *SessionManager) Create() *Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Favorites: favorites.NewStore(),
		Menu:      overlay.NewMenu(),
		Accounts:  accounts.NewBook(),
		CreatedAt: now,
		lastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s
}

// Get returns the session with id and marks it used
func (m *SessionManager) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &types.ServiceError{Code: "INVALID_PARAMETER", Message: "session id must be a UUID"}
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, &types.ServiceError{
			Code:    "SESSION_NOT_FOUND",
			Message: "session not found or expired",
			Details: map[string]interface{}{"sessionId": id},
		}
	}
	s.touch(m.now())
	return s, nil
}

// Delete drops a session
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many went
func (m *SessionManager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Start runs the janitor every interval until Stop
func (m *SessionManager) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("session janitor interval must be positive, got %v", interval)
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("session janitor is already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.janitor(ctx, interval, m.stopCh, m.doneCh)
	return nil
}

// Stop stops the janitor and waits for it to exit
func (m *SessionManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SessionManager) janitor(ctx context.Context, interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logging.WithFields(map[string]interface{}{
					"expired": n,
					"live":    m.Count(),
				}).Debug("Expired idle sessions")
			}
		}
	}
}
