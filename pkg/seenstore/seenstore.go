package seenstore

import (
	"fmt"
)

// Store tracks which events an alert already fired for, so restarts
// don't spam the same alert twice. Has fails open: a backend that
// cannot answer logs the error and reports "not seen", trading the
// odd duplicate alert for never losing one.
type Store interface {
	Has(id string) bool
	Add(id string) error
	Len() int
	Close() error
}

// Config carries the connection settings for every backend, the
// factory picks whichever fields the chosen backend needs.
type Config struct {
	Backend     string
	Dir         string
	RedisURL    string
	PostgresURL string
	NatsURL     string
	Bucket      string
}

// Open creates the seen store for one alert. Each alert gets its own
// namespace (file, bucket or key prefix) within the backend.
func Open(cfg Config, alert string) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir, alert)
	case "memory":
		return NewMemoryStore(), nil
	case "bolt":
		return NewBoltStore(cfg.Dir, alert), nil
	case "redis":
		return NewRedisStore(cfg.RedisURL, alert), nil
	case "postgres":
		return NewPostgresStore(cfg.PostgresURL, alert)
	case "s3":
		return NewS3Store(cfg.Bucket, alert)
	case "jetstream":
		return NewJetstreamStore(cfg.NatsURL, alert)
	}
	return nil, fmt.Errorf("unknown seen store backend: %s", cfg.Backend)
}
