package seenstore

import (
	"log/slog"

	"github.com/gomodule/redigo/redis"
)

type redisStore struct {
	key  string
	pool *redis.Pool
}

// NewRedisStore keeps seen ids in a redis set under "seen:<alert>".
func NewRedisStore(redisURL, alert string) Store {
	return &redisStore{
		key: "seen:" + alert,
		pool: &redis.Pool{
			MaxActive: 5,
			MaxIdle:   5,
			Wait:      true,
			Dial: func() (redis.Conn, error) {
				return redis.DialURL(redisURL)
			},
		},
	}
}

func (s *redisStore) Has(id string) bool {
	c := s.pool.Get()
	defer c.Close()

	found, err := redis.Bool(c.Do("SISMEMBER", s.key, id))
	if err != nil {
		slog.Error("seen lookup failed", "backend", "redis", "id", id, "err", err.Error())
		return false
	}

	return found
}

func (s *redisStore) Add(id string) error {
	c := s.pool.Get()
	defer c.Close()

	_, err := c.Do("SADD", s.key, id)
	return err
}

func (s *redisStore) Len() int {
	c := s.pool.Get()
	defer c.Close()

	n, _ := redis.Int(c.Do("SCARD", s.key))
	return n
}

func (s *redisStore) Close() error {
	return s.pool.Close()
}
