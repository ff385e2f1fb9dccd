// Package cache holds per-round ranking populations. Population data of a
// finalized round is immutable, so entries are only dropped on finalization or
// expiry; concurrent writers simply overwrite each other.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/result-portal/internal/config"
	"github.com/stemsi/result-portal/internal/model"
)

// PopulationCache stores the ranking population of a round.
type PopulationCache interface {
	// Get returns the cached population and whether it was found.
	Get(ctx context.Context, roundID string) ([]model.PopulationEntry, bool, error)
	Set(ctx context.Context, roundID string, entries []model.PopulationEntry) error
	Invalidate(ctx context.Context, roundID string) error
}

// RedisPopulationCache keeps populations as JSON strings in Redis.
type RedisPopulationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPopulationCache creates a Redis-backed cache. A zero ttl keeps entries until invalidated.
func NewRedisPopulationCache(rdb *redis.Client, ttl time.Duration) *RedisPopulationCache {
	return &RedisPopulationCache{rdb: rdb, ttl: ttl}
}

func (c *RedisPopulationCache) Get(ctx context.Context, roundID string) ([]model.PopulationEntry, bool, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.RoundPopulationKey(roundID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get population: %w", err)
	}

	var entries []model.PopulationEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("decode population: %w", err)
	}
	return entries, true, nil
}

func (c *RedisPopulationCache) Set(ctx context.Context, roundID string, entries []model.PopulationEntry) error {
	if entries == nil {
		entries = []model.PopulationEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode population: %w", err)
	}
	if err := c.rdb.Set(ctx, config.CacheKey.RoundPopulationKey(roundID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set population: %w", err)
	}
	return nil
}

func (c *RedisPopulationCache) Invalidate(ctx context.Context, roundID string) error {
	if err := c.rdb.Del(ctx, config.CacheKey.RoundPopulationKey(roundID)).Err(); err != nil {
		return fmt.Errorf("redis del population: %w", err)
	}
	return nil
}

// MemoryPopulationCache keeps populations in process memory.
type MemoryPopulationCache struct {
	entries sync.Map // round id -> *memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	population []model.PopulationEntry
	expires    time.Time
}

// NewMemoryPopulationCache creates an in-process cache. A zero ttl keeps entries until invalidated.
func NewMemoryPopulationCache(ttl time.Duration) *MemoryPopulationCache {
	return &MemoryPopulationCache{ttl: ttl, now: time.Now}
}

func (c *MemoryPopulationCache) Get(_ context.Context, roundID string) ([]model.PopulationEntry, bool, error) {
	v, ok := c.entries.Load(roundID)
	if !ok {
		return nil, false, nil
	}
	e := v.(*memoryEntry)
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.entries.CompareAndDelete(roundID, v)
		return nil, false, nil
	}
	return e.population, true, nil
}

func (c *MemoryPopulationCache) Set(_ context.Context, roundID string, entries []model.PopulationEntry) error {
	e := &memoryEntry{population: append([]model.PopulationEntry(nil), entries...)}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.entries.Store(roundID, e)
	return nil
}

func (c *MemoryPopulationCache) Invalidate(_ context.Context, roundID string) error {
	c.entries.Delete(roundID)
	return nil
}
