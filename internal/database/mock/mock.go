// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockReferenceStore is a mock implementation of database.ReferenceStore
type MockReferenceStore struct {
	mu   sync.RWMutex
	refs map[string]database.ReferenceEmbedding

	SaveCalls int

	// Error injection
	GetError   error
	SaveError  error
	CountError error
}

// NewMockReferenceStore creates a new mock reference store
func NewMockReferenceStore() *MockReferenceStore {
	return &MockReferenceStore{refs: make(map[string]database.ReferenceEmbedding)}
}

// AddReference adds a reference embedding to the mock store
func (m *MockReferenceStore) AddReference(ref database.ReferenceEmbedding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[ref.Path] = ref
}

// Get retrieves a reference embedding by path
func (m *MockReferenceStore) Get(ctx context.Context, path string) (*database.ReferenceEmbedding, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.refs[path]
	if !ok {
		return nil, nil
	}
	ref.Embedding = append([]float32(nil), ref.Embedding...)
	return &ref, nil
}

// Save stores a reference embedding
func (m *MockReferenceStore) Save(ctx context.Context, ref *database.ReferenceEmbedding) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	m.refs[ref.Path] = *ref
	return nil
}

// Count returns the number of stored references
func (m *MockReferenceStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.refs), nil
}

// MockSessionWriter is a mock implementation of database.SessionWriter
type MockSessionWriter struct {
	mu       sync.RWMutex
	sessions map[string]database.StoredSession
	entries  map[string][]database.StoredEntry

	// Error injection
	SaveError    error
	RecentError  error
	EntriesError error
}

// NewMockSessionWriter creates a new mock session writer
func NewMockSessionWriter() *MockSessionWriter {
	return &MockSessionWriter{
		sessions: make(map[string]database.StoredSession),
		entries:  make(map[string][]database.StoredEntry),
	}
}

// SaveSession stores a session and its entries
func (m *MockSessionWriter) SaveSession(ctx context.Context, s *database.StoredSession, entries []database.StoredEntry) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	stored := make([]database.StoredEntry, len(entries))
	for i, e := range entries {
		e.SessionID = s.ID
		stored[i] = e
	}
	m.entries[s.ID] = stored
	return nil
}

// Recent returns stored sessions, newest first
func (m *MockSessionWriter) Recent(ctx context.Context, limit int) ([]database.StoredSession, error) {
	if m.RecentError != nil {
		return nil, m.RecentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]database.StoredSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Entries returns the entries of one session
func (m *MockSessionWriter) Entries(ctx context.Context, sessionID string) ([]database.StoredEntry, error) {
	if m.EntriesError != nil {
		return nil, m.EntriesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.StoredEntry(nil), m.entries[sessionID]...), nil
}

var (
	_ database.ReferenceStore = (*MockReferenceStore)(nil)
	_ database.SessionWriter  = (*MockSessionWriter)(nil)
)
