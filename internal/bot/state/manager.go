package state

import (
	"sync"
	"time"
)

// Manager is the in-memory session store, used when Redis is not
// configured.
type Manager struct {
	sessions map[int64]Session
	mu       sync.RWMutex
}

// NewManager creates a new in-memory session store
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int64]Session),
	}
}

// Get returns the user's session
func (m *Manager) Get(userID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, exists := m.sessions[userID]
	return session, exists
}

// Set stores the user's session, stamping its update time
func (m *Manager) Set(userID int64, session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.UpdatedAt = time.Now()
	m.sessions[userID] = session
}

// Clear removes the user's session
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
