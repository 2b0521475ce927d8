package rules

import (
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory artifact store for tests.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (s *MemStore) Read(artifactID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.data[artifactID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, artifactID)
	}
	cp := make([]byte, len(content))
	copy(cp, content)
	return cp, nil
}

func (s *MemStore) Write(artifactID string, content []byte) error {
	if artifactID == "" {
		return fmt.Errorf("invalid artifact id %q", artifactID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(content))
	copy(cp, content)
	s.data[artifactID] = cp
	return nil
}

func (s *MemStore) Exists(artifactID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[artifactID]
	return ok
}

func (s *MemStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
