package snapshot

import (
	"fmt"

	"github.com/go-redis/redis/v7"
)

// RedisStore persists snapshot values as plain redis strings. Useful when
// several storefront instances behind one session affinity layer should
// survive a restart with warm caches.
type RedisStore struct {
	conn *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := conn.Ping().Result(); err != nil {
		return nil, fmt.Errorf("snapshot: connect redis: %w", err)
	}
	return &RedisStore{conn: conn}, nil
}

func (s *RedisStore) Get(key string) (string, bool) {
	val, err := s.conn.Get(key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *RedisStore) Set(key, value string) error {
	return s.conn.Set(key, value, 0).Err()
}

func (s *RedisStore) Remove(key string) error {
	return s.conn.Del(key).Err()
}

func (s *RedisStore) Close() error {
	return s.conn.Close()
}
