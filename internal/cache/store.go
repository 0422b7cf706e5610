package cache

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Entry is a stored response
type Entry struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
}

// Store persists cached responses by request key
type Store interface {
	// Get returns the entry for key; ok is false on a miss
	Get(ctx context.Context, key string) (entry *Entry, ok bool, err error)
	// Set stores entry under key, replacing any prior entry
	Set(ctx context.Context, key string, entry *Entry) error
}

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Get implements Store
func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return entry.clone(), true, nil
}

// Set implements Store
func (m *MemoryStore) Set(_ context.Context, key string, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry.clone()
	return nil
}

// Len returns the number of cached entries
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (e *Entry) clone() *Entry {
	body := make([]byte, len(e.Body))
	copy(body, e.Body)
	return &Entry{
		StatusCode: e.StatusCode,
		Header:     e.Header.Clone(),
		Body:       body,
		StoredAt:   e.StoredAt,
	}
}
