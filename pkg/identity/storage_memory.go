package identity

import "sync"

// MemoryStorage is an in-memory Storage implementation.
// Useful for testing and development. Data is lost when the process exits.
//
// All methods are safe for concurrent use.
type MemoryStorage struct {
	mu     sync.RWMutex
	record *Record

	saves  int
	erases int
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns a copy of the stored record.
func (m *MemoryStorage) Load() (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.record == nil {
		return nil, nil
	}
	return m.record.Clone(), nil
}

// Save stores a copy of r.
func (m *MemoryStorage) Save(r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record = r.Clone()
	m.saves++
	return nil
}

// Erase clears the entries covered by scope.
func (m *MemoryStorage) Erase(scope Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.erases++
	if m.record != nil {
		m.record.erase(scope)
	}
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStorage) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Erases returns how many times Erase was called.
func (m *MemoryStorage) Erases() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.erases
}

// Verify MemoryStorage implements Storage.
var _ Storage = (*MemoryStorage)(nil)
