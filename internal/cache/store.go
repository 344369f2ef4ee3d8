// Package cache keeps short-lived JSON copies of read projections in Redis.
// A nil *Store is valid and behaves as a cache that always misses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Store {
	if client == nil {
		return nil
	}
	return &Store{client: client, prefix: prefix}
}

// Connect dials addr and pings it. An empty addr disables caching.
func Connect(ctx context.Context, addr, password, prefix string) (*Store, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return New(client, prefix), nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// GetJSON decodes the cached value into dst. It reports false on a miss.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if s == nil {
		return false, nil
	}

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) genKey(k string) string {
	return s.prefix + "gen:" + k
}

// Generation returns the invalidation counter of key. Read it before loading the
// value that will be passed to SetJSONAt.
func (s *Store) Generation(ctx context.Context, key string) (int64, error) {
	if s == nil {
		return 0, nil
	}

	gen, err := s.client.Get(ctx, s.genKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// setIfGeneration stores ARGV[2] under KEYS[1] only while KEYS[2] still equals ARGV[1].
var setIfGeneration = redis.NewScript(`
if (redis.call('GET', KEYS[2]) or '0') ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// SetJSONAt stores v only if key has not been invalidated since gen was read. It
// reports whether the value was written.
func (s *Store) SetJSONAt(ctx context.Context, key string, gen int64, v any, ttl time.Duration) (bool, error) {
	if s == nil {
		return false, nil
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	n, err := setIfGeneration.Run(ctx, s.client,
		[]string{s.key(key), s.genKey(key)},
		strconv.FormatInt(gen, 10), payload, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Invalidate deletes keys and bumps their generations, so a reader that loaded
// before the bump cannot write its stale copy back.
func (s *Store) Invalidate(ctx context.Context, keys ...string) error {
	if s == nil || len(keys) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Incr(ctx, s.genKey(k))
			pipe.Del(ctx, s.key(k))
		}
		return nil
	})
	return err
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
