package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMCPSessionTimeout is how long an idle MCP session stays valid.
const DefaultMCPSessionTimeout = 24 * time.Hour

// SessionIDManager issues and tracks the session ids of the streamable HTTP
// MCP endpoint. Sessions that were idle longer than the timeout, or that
// this process never issued, are reported as terminated so clients
// initialize again.
type SessionIDManager struct {
	sessions       map[string]time.Time // session id to last access
	mu             sync.Mutex
	cleanupTicker  *time.Ticker
	cleanupDone    chan struct{}
	stopOnce       sync.Once
	sessionTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// NewSessionIDManager creates a manager and starts its cleanup goroutine.
// Call Stop to release it.
func NewSessionIDManager(timeout time.Duration, logger *slog.Logger) *SessionIDManager {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultMCPSessionTimeout
	}

	m := &SessionIDManager{
		sessions:       make(map[string]time.Time),
		cleanupTicker:  time.NewTicker(10 * time.Minute),
		cleanupDone:    make(chan struct{}),
		sessionTimeout: timeout,
		now:            time.Now,
		logger:         logger,
	}

	go m.cleanupExpiredSessions()

	return m
}

// Generate creates a new session id.
func (m *SessionIDManager) Generate() string {
	id := "mcp-session-" + uuid.NewString()

	m.mu.Lock()
	m.sessions[id] = m.now()
	m.mu.Unlock()

	return id
}

// Validate reports whether sessionID is terminated and refreshes its last
// access time otherwise.
func (m *SessionIDManager) Validate(sessionID string) (isTerminated bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lastAccess, ok := m.sessions[sessionID]
	if !ok {
		return true, nil
	}

	now := m.now()
	if now.Sub(lastAccess) > m.sessionTimeout {
		delete(m.sessions, sessionID)
		return true, nil
	}
	m.sessions[sessionID] = now
	return false, nil
}

// Terminate ends a session. Clients may always terminate their session.
func (m *SessionIDManager) Terminate(sessionID string) (isNotAllowed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return false, nil
}

// Count returns the number of tracked sessions.
func (m *SessionIDManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionIDManager) removeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expired := 0
	for id, lastAccess := range m.sessions {
		if now.Sub(lastAccess) > m.sessionTimeout {
			delete(m.sessions, id)
			expired++
		}
	}
	return expired
}

func (m *SessionIDManager) cleanupExpiredSessions() {
	for {
		select {
		case <-m.cleanupTicker.C:
			if expired := m.removeExpired(); expired > 0 {
				m.logger.Info("cleaned up expired MCP sessions", "count", expired)
			}
		case <-m.cleanupDone:
			return
		}
	}
}

// Stop stops the cleanup goroutine.
func (m *SessionIDManager) Stop() {
	m.stopOnce.Do(func() {
		m.cleanupTicker.Stop()
		close(m.cleanupDone)
	})
}
