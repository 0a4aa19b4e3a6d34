package subscriber

import (
	"context"
	"sync"
)

// MemoryStore keeps the set in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu  sync.Mutex
	set *Set

	// SaveErr, when set, is returned by Save without storing anything.
	SaveErr error
	// LoadErr, when set, is returned by Load.
	LoadErr error

	saves int
}

func NewMemoryStore(ids ...int64) *MemoryStore {
	return &MemoryStore{set: NewSet(ids...)}
}

func (m *MemoryStore) Load(_ context.Context) (*Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, Wrap("memory load", m.LoadErr)
	}
	// Copy to avoid sharing with callers
	return m.set.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.SaveErr != nil {
		return Wrap("memory save", m.SaveErr)
	}
	m.set = s.Clone()
	return nil
}

// Saves counts Save calls, failed ones included.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Snapshot returns the stored members.
func (m *MemoryStore) Snapshot() *Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.Clone()
}
