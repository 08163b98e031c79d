package feed

import (
	"context"
	"os"
)

// Source supplies one snapshot batch per pass.
type Source interface {
	Fetch(ctx context.Context) ([]Event, error)
}

// FileSource reads a snapshot file from disk on every fetch.
type FileSource struct {
	Path string
}

func (s *FileSource) Fetch(ctx context.Context) ([]Event, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return Events(data)
}
