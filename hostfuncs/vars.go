package hostfuncs

import (
	"sync"
)

// DefaultMaxVarBytes caps the combined size of a plugin's variables (1MB).
const DefaultMaxVarBytes = 1 * 1024 * 1024

// VarStore persists plugin variables between calls.
type VarStore interface {
	// Get returns the value stored under name. A missing name is not an
	// error; it returns ok == false.
	Get(name string) (value []byte, ok bool, err error)
	// Set stores value under name, replacing any previous value.
	Set(name string, value []byte) error
	// Delete removes name. Removing a missing name is not an error.
	Delete(name string) error
	// Size returns the combined length of all stored values.
	Size() (int, error)
}

// MemoryVarStore keeps variables in a map for the lifetime of the process.
type MemoryVarStore struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewMemoryVarStore creates an empty in-memory store.
func NewMemoryVarStore() *MemoryVarStore {
	return &MemoryVarStore{data: make(map[string][]byte)}
}

// Get implements VarStore.
func (s *MemoryVarStore) Get(name string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements VarStore.
func (s *MemoryVarStore) Set(name string, value []byte) error {
	s.mu.Lock()
	s.data[name] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

// Delete implements VarStore.
func (s *MemoryVarStore) Delete(name string) error {
	s.mu.Lock()
	delete(s.data, name)
	s.mu.Unlock()
	return nil
}

// Size implements VarStore.
func (s *MemoryVarStore) Size() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, v := range s.data {
		n += len(v)
	}
	return n, nil
}
