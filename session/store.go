package session

import (
	"context"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned when no record exists for the given
	// scope / key pair in the underlying store.
	ErrNotFound = fmt.Errorf("session: record not found")
)

// Store is the abstract scoped key-value store session state persists to.
// Scopes namespace independent workflows; keys namespace the records within
// one workflow (the session record and the capability-cache snapshot are
// stored under separate keys so they can be restored independently).
type Store interface {
	Put(ctx context.Context, scope, key string, data []byte) error
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Delete(ctx context.Context, scope, key string) error
}

// InMemoryStore is a volatile Store implementation keeping all records in a
// nested map guarded by an RWMutex. Data is copied on save / retrieval to
// avoid accidental external mutation of internal buffers. Best suited for
// tests and single-process prototypes; production deployments supply a
// durable implementation.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string][]byte // scope -> key -> raw bytes
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]map[string][]byte)}
}

// Put stores (or overwrites) the record bytes for the given scope and key.
// The input slice is copied before storage.
func (s *InMemoryStore) Put(_ context.Context, scope, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[scope]; !exists {
		s.records[scope] = make(map[string][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.records[scope][key] = cp
	return nil
}

// Get returns a copy of the stored record bytes or ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, scope, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.records[scope]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := m[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Delete removes the record if present; deleting an absent record is not an
// error.
func (s *InMemoryStore) Delete(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.records[scope]; ok {
		delete(m, key)
	}
	return nil
}
