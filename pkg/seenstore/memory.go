package seenstore

import "sync"

type memoryStore struct {
	sync.Mutex
	seen map[string]bool
}

// NewMemoryStore keeps seen ids in process memory only. Alerts re-fire
// after a restart, useful for tests and dry runs.
func NewMemoryStore() Store {
	return &memoryStore{seen: make(map[string]bool)}
}

func (s *memoryStore) Has(id string) bool {
	s.Lock()
	defer s.Unlock()
	return s.seen[id]
}

func (s *memoryStore) Add(id string) error {
	s.Lock()
	defer s.Unlock()
	s.seen[id] = true
	return nil
}

func (s *memoryStore) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.seen)
}

func (s *memoryStore) Close() error {
	return nil
}
