package seenstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const kvTimeout = 5 * time.Second

type jetstreamStore struct {
	url    string
	bucket string

	nc     *nats.Conn
	kv     jetstream.KeyValue
	opened bool
}

// NewJetstreamStore keeps seen ids in a jetstream key-value bucket
// named seen-<alert>, shared by every replica of the service. The
// connection opens on first use, the bucket is created when missing.
func NewJetstreamStore(url, alert string) (Store, error) {
	if len(url) == 0 {
		url = nats.DefaultURL
	}
	return &jetstreamStore{url: url, bucket: "seen-" + alert}, nil
}

func (s *jetstreamStore) open() error {
	if s.opened {
		return nil
	}

	nc, err := nats.Connect(s.url)
	if err != nil {
		return err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), kvTimeout)
	defer cancel()

	kv, err := js.KeyValue(ctx, s.bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: s.bucket})
	}
	if err != nil {
		nc.Close()
		return err
	}

	s.nc = nc
	s.kv = kv
	s.opened = true

	return nil
}

func (s *jetstreamStore) Has(id string) bool {
	err := s.open()
	if err != nil {
		slog.Error("seen lookup failed", "backend", "jetstream", "id", id, "err", err.Error())
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), kvTimeout)
	defer cancel()

	_, err = s.kv.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, jetstream.ErrKeyNotFound) {
			slog.Error("seen lookup failed", "backend", "jetstream", "id", id, "err", err.Error())
		}
		return false
	}

	return true
}

func (s *jetstreamStore) Add(id string) error {
	err := s.open()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), kvTimeout)
	defer cancel()

	_, err = s.kv.Put(ctx, id, []byte(time.Now().UTC().Format(time.RFC3339)))
	return err
}

func (s *jetstreamStore) Len() int {
	err := s.open()
	if err != nil {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), kvTimeout)
	defer cancel()

	keys, err := s.kv.ListKeys(ctx)
	if err != nil {
		return 0
	}

	count := 0
	for range keys.Keys() {
		count++
	}

	return count
}

func (s *jetstreamStore) Close() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	s.nc.Close()
	return nil
}
