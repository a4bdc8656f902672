package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by a Store when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Store is the key/value backend of Cached.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore keeps cached responses in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at url (redis://...).
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Get returns the stored value or ErrCacheMiss.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

// Set stores value for ttl.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Ping checks the connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Cached serves repeated queries from a Store. Cache failures are logged and bypassed.
type Cached struct {
	next  Searcher
	store Store
	ttl   time.Duration
}

// NewCached wraps next with a cache.
func NewCached(next Searcher, store Store, ttl time.Duration) *Cached {
	return &Cached{next: next, store: store, ttl: ttl}
}

// Name identifies the wrapped provider.
func (c *Cached) Name() string { return c.next.Name() }

func (c *Cached) key(query string) string {
	return "search:" + c.next.Name() + ":" + strings.ToLower(strings.TrimSpace(query))
}

// Search returns a cached response when present and otherwise calls the wrapped searcher.
func (c *Cached) Search(ctx context.Context, query string) (*Response, error) {
	key := c.key(query)

	if data, err := c.store.Get(ctx, key); err == nil {
		var resp Response
		if err := json.Unmarshal(data, &resp); err == nil {
			logger.Debug("search cache hit", "key", key)
			return &resp, nil
		}
		logger.Warn("discarding undecodable cache entry", "key", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.Warn("search cache read failed", "key", key, "error", err)
	}

	resp, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			logger.Warn("search cache write failed", "key", key, "error", err)
		}
	}

	return resp, nil
}
