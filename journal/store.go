// Package journal provides storage for the transcript of server sessions.
package journal

import (
	"slices"
	"sync"
	"time"
)

// Exchange is one request read by the server together with the response it
// wrote. Response is empty for notifications.
type Exchange struct {
	ID        int64         `json:"id"`
	Seq       int           `json:"seq"`
	Method    string        `json:"method"`
	RequestID string        `json:"request_id,omitzero"`
	Request   string        `json:"request"`
	Response  string        `json:"response,omitzero"`
	IsError   bool          `json:"is_error"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Store defines the interface for persisting session transcripts.
type Store interface {
	// Append adds an exchange to a session and returns its assigned ID.
	Append(sessionID string, ex Exchange) (int64, error)

	// Exchanges retrieves a session's exchanges in the order they happened.
	Exchanges(sessionID string) ([]Exchange, error)

	// Sessions returns all session IDs in the store.
	Sessions() ([]string, error)

	// DeleteSession removes all data for a session.
	DeleteSession(sessionID string) error

	// Close closes the store and releases resources.
	Close() error
}

// MemoryStore provides an in-memory implementation of Store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]Exchange
	nextID   int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]Exchange),
		nextID:   1,
	}
}

// Append adds an exchange to the in-memory store and returns its assigned ID.
func (m *MemoryStore) Append(sessionID string, ex Exchange) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ex.ID = m.nextID
	m.nextID++
	m.sessions[sessionID] = append(m.sessions[sessionID], ex)
	return ex.ID, nil
}

// Exchanges returns a copy of a session's exchanges.
func (m *MemoryStore) Exchanges(sessionID string) ([]Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.sessions[sessionID]), nil
}

// Sessions returns all session IDs in sorted order.
func (m *MemoryStore) Sessions() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		sessions = append(sessions, id)
	}
	slices.Sort(sessions)
	return sessions, nil
}

// DeleteSession removes all data for a session.
func (m *MemoryStore) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
