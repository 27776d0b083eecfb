package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "observatorio:offline"

// RedisStorage keeps each cache in a Redis hash (field = URL, value = JSON
// entry) and the cache names in a set, so several proxies can share one
// precache.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage connects to the Redis server at url.
func NewRedisStorage(ctx context.Context, url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStorageFromClient(client, defaultRedisPrefix), nil
}

// NewRedisStorageFromClient wraps an existing client. Keys are namespaced
// under prefix.
func NewRedisStorageFromClient(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

func (s *RedisStorage) namesKey() string {
	return s.prefix + ":caches"
}

func (s *RedisStorage) cacheKey(name string) string {
	return s.prefix + ":cache:" + name
}

func (s *RedisStorage) Put(ctx context.Context, name string, entries []Entry) error {
	fields := make(map[string]interface{}, len(entries))
	for _, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode entry %s: %w", e.URL, err)
		}
		fields[e.URL] = b
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(fields) > 0 {
			pipe.HSet(ctx, s.cacheKey(name), fields)
		}
		pipe.SAdd(ctx, s.namesKey(), name)
		return nil
	})
	return err
}

func (s *RedisStorage) Match(ctx context.Context, key string) (*Entry, bool, error) {
	names, err := s.Names(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, name := range names {
		raw, err := s.client.HGet(ctx, s.cacheKey(name), key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, false, fmt.Errorf("decode entry %s: %w", key, err)
		}
		return &e, true, nil
	}
	return nil, false, nil
}

func (s *RedisStorage) Names(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.namesKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *RedisStorage) Keys(ctx context.Context, name string) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.cacheKey(name)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *RedisStorage) Delete(ctx context.Context, name string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.cacheKey(name))
		pipe.SRem(ctx, s.namesKey(), name)
		return nil
	})
	return err
}

// Close releases the Redis connection.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
