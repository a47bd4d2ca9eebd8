package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/irfndi/foresight-go/internal/pipeline"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// SnapshotEntry wraps a published session state with cache metadata.
type SnapshotEntry struct {
	State    *pipeline.State `json:"state"`
	CachedAt time.Time       `json:"cached_at"`
}

// SnapshotCacheStats tracks cache performance metrics.
type SnapshotCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// RedisSnapshotCache stores the last published state of each session so any
// replica can serve read-only requests for it.
type RedisSnapshotCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger

	mu    sync.RWMutex
	stats SnapshotCacheStats
}

// NewRedisSnapshotCache creates a Redis-backed snapshot cache.
func NewRedisSnapshotCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisSnapshotCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisSnapshotCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: "session_state:",
		logger: logger,
	}
}

// Save stores state under sessionID. An older version never overwrites a
// newer one already in the cache.
func (c *RedisSnapshotCache) Save(ctx context.Context, sessionID string, state *pipeline.State) error {
	if state == nil {
		return errors.New("nil state")
	}

	existing, found, err := c.load(ctx, sessionID)
	if err == nil && found && existing.Version > state.Version {
		c.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"version":    state.Version,
			"cached":     existing.Version,
		}).Debug("Skipping older session snapshot")
		return nil
	}

	data, err := json.Marshal(SnapshotEntry{State: state, CachedAt: time.Now().UTC()})
	if err != nil {
		c.count(func(s *SnapshotCacheStats) { s.Errors++ })
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	if err := c.redis.Set(ctx, c.prefix+sessionID, data, c.ttl).Err(); err != nil {
		c.count(func(s *SnapshotCacheStats) { s.Errors++ })
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	c.count(func(s *SnapshotCacheStats) { s.Sets++ })
	return nil
}

// Load returns the cached state for sessionID. found is false on a miss.
func (c *RedisSnapshotCache) Load(ctx context.Context, sessionID string) (*pipeline.State, bool, error) {
	state, found, err := c.load(ctx, sessionID)
	switch {
	case err != nil:
		c.count(func(s *SnapshotCacheStats) { s.Errors++ })
	case found:
		c.count(func(s *SnapshotCacheStats) { s.Hits++ })
	default:
		c.count(func(s *SnapshotCacheStats) { s.Misses++ })
	}
	return state, found, err
}

func (c *RedisSnapshotCache) load(ctx context.Context, sessionID string) (*pipeline.State, bool, error) {
	data, err := c.redis.Get(ctx, c.prefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var entry SnapshotEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to deserialize snapshot: %w", err)
	}
	if entry.State == nil {
		return nil, false, nil
	}
	return entry.State, true, nil
}

// Delete removes the snapshot for sessionID.
func (c *RedisSnapshotCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.redis.Del(ctx, c.prefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Touch extends the TTL of a snapshot that is still being read.
func (c *RedisSnapshotCache) Touch(ctx context.Context, sessionID string) error {
	return c.redis.Expire(ctx, c.prefix+sessionID, c.ttl).Err()
}

// SessionIDs lists sessions that currently have a snapshot.
func (c *RedisSnapshotCache) SessionIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if len(key) > len(c.prefix) {
			ids = append(ids, key[len(c.prefix):])
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning snapshot keys: %w", err)
	}
	return ids, nil
}

// GetStats returns current cache statistics.
func (c *RedisSnapshotCache) GetStats() SnapshotCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *RedisSnapshotCache) count(fn func(*SnapshotCacheStats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}
