package seenstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

type fileStore struct {
	sync.Mutex
	path  string
	seen  map[string]bool
	order []string
}

// NewFileStore keeps the seen ids as a JSON array of strings at
// <dir>/<alert>.seen.json, rewritten on every Add.
func NewFileStore(dir, alert string) (Store, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}

	s := &fileStore{
		path: filepath.Join(dir, alert+".seen.json"),
		seen: make(map[string]bool),
	}

	err = s.load()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *fileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var ids []string
	err = json.Unmarshal(data, &ids)
	if err != nil {
		// a corrupt file only costs duplicate alerts, never lost ones
		slog.Warn("seen state corrupt, starting empty", "path", s.path, "err", err.Error())
		return nil
	}

	for _, id := range ids {
		if !s.seen[id] {
			s.seen[id] = true
			s.order = append(s.order, id)
		}
	}

	return nil
}

func (s *fileStore) Has(id string) bool {
	s.Lock()
	defer s.Unlock()
	return s.seen[id]
}

func (s *fileStore) Add(id string) error {
	s.Lock()
	defer s.Unlock()

	if s.seen[id] {
		return nil
	}
	s.seen[id] = true
	s.order = append(s.order, id)

	data, err := json.Marshal(s.order)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

func (s *fileStore) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.seen)
}

func (s *fileStore) Close() error {
	return nil
}
