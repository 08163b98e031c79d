package seenstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

type boltStore struct {
	storePath  string
	bucketName []byte

	db     *bolt.DB
	opened bool
}

// NewBoltStore keeps seen ids in a bolt db at <dir>/<alert>.seen.db.
// One file per alert, so alerts never contend on the file lock.
// The value under each id is the firing time, handy when inspecting
// the db by hand.
func NewBoltStore(dir, alert string) Store {
	return &boltStore{
		storePath:  filepath.Join(dir, alert+".seen.db"),
		bucketName: []byte(alert),
	}
}

func (s *boltStore) open() (err error) {
	if s.opened {
		return
	}

	err = os.MkdirAll(filepath.Dir(s.storePath), 0755)
	if err != nil {
		return
	}

	s.db, err = bolt.Open(s.storePath, 0600, nil)
	if err != nil {
		return
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		_, err = tx.CreateBucketIfNotExists(s.bucketName)
		return err
	})

	if err == nil {
		s.opened = true
	}

	return
}

func (s *boltStore) Has(id string) bool {
	err := s.open()
	if err != nil {
		slog.Error("seen lookup failed", "backend", "bolt", "id", id, "err", err.Error())
		return false
	}

	var found bool
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		found = b.Get([]byte(id)) != nil
		return nil
	})
	if err != nil {
		slog.Error("seen lookup failed", "backend", "bolt", "id", id, "err", err.Error())
		return false
	}

	return found
}

func (s *boltStore) Add(id string) error {
	err := s.open()
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		return b.Put([]byte(id), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

func (s *boltStore) Len() int {
	err := s.open()
	if err != nil {
		return 0
	}

	count := 0
	s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucketName).Stats().KeyN
		return nil
	})

	return count
}

func (s *boltStore) Close() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	return s.db.Close()
}
