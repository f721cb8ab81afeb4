package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a shared cache tier backed by Redis. It lets multiple
// instances reuse each other's upstream fetches.
type RedisStore struct {
	rdb    *redis.Client
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return &RedisStore{rdb: rdb}, nil
}

// Get retrieves a value from Redis by key.
func (s *RedisStore) Get(key string) ([]byte, bool) {
	val, err := s.rdb.Get(context.Background(), key).Bytes()
	if err != nil {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return val, true
}

// Set stores a value with the given key and TTL. A TTL of 0 stores the
// entry without an expiry.
func (s *RedisStore) Set(key string, value []byte, ttl time.Duration) {
	s.rdb.Set(context.Background(), key, value, ttl)
}

// Delete removes a value from Redis.
func (s *RedisStore) Delete(key string) {
	s.rdb.Del(context.Background(), key)
}

// Clear flushes the selected Redis database.
func (s *RedisStore) Clear() {
	s.rdb.FlushDB(context.Background())
}

// Stats returns store statistics. Redis does not expose per-client
// counters, so only locally observed hits and misses are reported.
func (s *RedisStore) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
