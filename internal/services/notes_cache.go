package services

import (
	"context"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NotesCache stores generated lesson notes by key.
type NotesCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, notes string, ttl time.Duration) error
}

type redisNotesCache struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisNotesCache shares the process-wide client; it never closes it.
func NewRedisNotesCache(rdb goredis.UniversalClient, prefix string) NotesCache {
	if prefix == "" {
		prefix = "smartboard:notes:"
	}
	return &redisNotesCache{rdb: rdb, prefix: prefix}
}

func (c *redisNotesCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *redisNotesCache) Set(ctx context.Context, key, notes string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.prefix+key, notes, ttl).Err()
}

type memoryEntry struct {
	notes     string
	expiresAt time.Time
}

type memoryNotesCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryNotesCache is the single-replica fallback when Redis is not configured.
func NewMemoryNotesCache() NotesCache {
	return &memoryNotesCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *memoryNotesCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.notes, true, nil
}

func (c *memoryNotesCache) Set(_ context.Context, key, notes string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{notes: notes}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}
