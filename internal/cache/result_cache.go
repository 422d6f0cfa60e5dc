// Package cache provides a keyed result cache for reasoning outputs.
// Identical inputs produce identical prompts at temperature zero, so a
// previously computed result can be served without another model call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/thirdop-reasoning-server/internal/domain"
)

const keyPrefix = "reasoning:"

// entry wraps a cached payload with its expiry for the memory tier.
type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Stats is a point-in-time snapshot of cache behavior.
type Stats struct {
	Hits            uint64 `json:"hits"`
	Misses          uint64 `json:"misses"`
	MemoryEntries   int    `json:"memory_entries"`
	RedisConfigured bool   `json:"redis_configured"`
}

// ResultCache is a two-tier cache: an in-process LRU in front of an
// optional shared Redis. Redis outages degrade the cache to memory-only
// operation; they never fail a request.
type ResultCache struct {
	logger *logrus.Logger
	ttl    time.Duration
	memory *lru.Cache
	redis  *redis.Client // nil when not configured

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewResultCache creates a result cache from configuration. A malformed
// Redis URL is a configuration error; an unreachable Redis is only a
// warning.
func NewResultCache(config domain.CacheConfig, logger *logrus.Logger) (*ResultCache, error) {
	size := config.MaxMemorySize
	if size <= 0 {
		size = 1000
	}
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	memory, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	c := &ResultCache{
		logger: logger,
		ttl:    ttl,
		memory: memory,
	}

	if config.RedisURL != "" {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, err
		}
		c.redis = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := c.redis.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, cache degraded to memory-only")
		}
	}

	return c, nil
}

// Key derives a stable cache key from the report kind and the request
// payload. Map keys serialize in sorted order, so logically identical
// payloads hash identically.
func Key(kind domain.ReportKind, payload interface{}) string {
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte("null")
	}
	h := sha256.New()
	h.Write([]byte(string(kind) + "::"))
	h.Write(b)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get looks the key up in the memory tier, then Redis, and unmarshals the
// stored payload into dest on a hit. A Redis hit is promoted into the
// memory tier.
func (c *ResultCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if v, ok := c.memory.Get(key); ok {
		e := v.(entry)
		if time.Now().Before(e.expiresAt) {
			if err := json.Unmarshal(e.payload, dest); err == nil {
				c.hits.Add(1)
				return true
			}
		}
		c.memory.Remove(key)
	}

	if c.redis != nil {
		payload, err := c.redis.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			// fall through to miss
		case err != nil:
			c.logger.WithError(err).Debug("Redis get failed, serving without cache")
		default:
			if err := json.Unmarshal(payload, dest); err == nil {
				c.memory.Add(key, entry{payload: payload, expiresAt: time.Now().Add(c.ttl)})
				c.hits.Add(1)
				return true
			}
		}
	}

	c.misses.Add(1)
	return false
}

// Set stores the value in both tiers. Failures are logged and swallowed;
// caching is best-effort.
func (c *ResultCache) Set(ctx context.Context, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal value for cache")
		return
	}

	c.memory.Add(key, entry{payload: payload, expiresAt: time.Now().Add(c.ttl)})

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WithError(err).Debug("Redis set failed, entry cached in memory only")
		}
	}
}

// Stats returns a snapshot of hit and miss counters.
func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:            c.hits.Load(),
		Misses:          c.misses.Load(),
		MemoryEntries:   c.memory.Len(),
		RedisConfigured: c.redis != nil,
	}
}

// Purge drops every entry from the memory tier. Redis entries age out on
// their own TTL.
func (c *ResultCache) Purge() {
	c.memory.Purge()
}

// Close releases the Redis connection if one was configured.
func (c *ResultCache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
