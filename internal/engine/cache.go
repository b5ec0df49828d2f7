package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// respCache holds extracted web articles, keyed by URL. L1 is a
// process-local map; L2 is Redis when REDIS_URL is reachable, so articles
// survive a restart. Video transcripts are not stored here: the youtube
// package keeps its own persistent cache.
var respCache *tieredCache

var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

type tieredCache struct {
	l1              sync.Map      // key → *cacheEntry
	rdb             *redis.Client // nil when L2 is off
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stop            chan struct{}
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func (c *tieredCache) entry(data []byte) *cacheEntry {
	return &cacheEntry{data: data, expiresAt: time.Now().Add(c.ttl)}
}

// InitCache (re)creates the article cache. An empty or unreachable
// redisURL leaves the cache memory-only. A previous cache is shut down.
func InitCache(redisURL string, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) {
	c := &tieredCache{ttl: ttl, maxEntries: maxEntries, cleanupInterval: cleanupInterval, stop: make(chan struct{})}
	if redisURL != "" {
		c.rdb = dialRedis(redisURL)
	}

	if prev := respCache; prev != nil {
		close(prev.stop)
		if prev.rdb != nil {
			prev.rdb.Close()
		}
	}
	respCache = c
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", maxEntries))

	go c.cleanupLoop()
}

// dialRedis returns nil when the URL is malformed or the server does not
// answer a ping within three seconds.
func dialRedis(redisURL string) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		return nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
		rdb.Close()
		return nil
	}
	slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
	return rdb
}

// CacheKey hashes parts such as ("article", url) into a short "gv:"-prefixed
// key shared by both tiers.
func CacheKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("gv:%x", hash[:12])
}

// CacheGet looks up a cached article. An L2 hit is copied into L1 with a
// fresh TTL.
func CacheGet(ctx context.Context, key string) ([]byte, bool) {
	c := respCache
	if c == nil {
		cacheMisses.Add(1)
		return nil, false
	}

	if data, ok := c.fromMemory(key); ok {
		slog.Debug("cache: L1 hit", slog.String("key", key))
		cacheHits.Add(1)
		return data, true
	}
	if c.rdb != nil {
		if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
			slog.Debug("cache: L2 hit", slog.String("key", key))
			cacheHits.Add(1)
			c.l1.Store(key, c.entry(data))
			return data, true
		}
	}

	cacheMisses.Add(1)
	return nil, false
}

// fromMemory drops an expired entry on the way out.
func (c *tieredCache) fromMemory(key string) ([]byte, bool) {
	val, ok := c.l1.Load(key)
	if !ok {
		return nil, false
	}
	e := val.(*cacheEntry)
	if time.Now().Before(e.expiresAt) {
		return e.data, true
	}
	c.l1.Delete(key)
	return nil, false
}

// CacheSet writes an article to both tiers. L2 write errors are
// logged at debug level only; the L1 copy still serves.
func CacheSet(ctx context.Context, key string, data []byte) {
	c := respCache
	if c == nil {
		return
	}
	c.makeRoom()
	c.l1.Store(key, c.entry(data))

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// CacheDelete forgets key in both tiers, e.g. after a refetch was forced.
func CacheDelete(ctx context.Context, key string) {
	c := respCache
	if c == nil {
		return
	}
	c.l1.Delete(key)
	if c.rdb != nil {
		c.rdb.Del(ctx, key)
	}
}

// CacheStats reports process-wide hit and miss counts for the metrics endpoint.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// CacheLoadJSON decodes a cached article. An entry that no longer
// decodes into T counts as a miss.
func CacheLoadJSON[T any](ctx context.Context, key string) (T, bool) {
	var out T
	data, ok := CacheGet(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON is CacheSet for values that marshal; unmarshalable values
// are silently not cached.
func CacheStoreJSON[T any](ctx context.Context, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSet(ctx, key, data)
}

func (c *tieredCache) size() int {
	n := 0
	c.l1.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// dropExpired removes every L1 entry past its deadline and returns how many
// went.
func (c *tieredCache) dropExpired(now time.Time) int {
	removed := 0
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*cacheEntry); ok && now.After(e.expiresAt) {
			c.l1.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// dropOldest removes the entry closest to expiry. All entries share one TTL,
// so that is also the one stored first.
func (c *tieredCache) dropOldest() bool {
	var oldestKey any
	var oldestAt time.Time
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*cacheEntry); ok && (oldestKey == nil || e.expiresAt.Before(oldestAt)) {
			oldestKey, oldestAt = key, e.expiresAt
		}
		return true
	})
	if oldestKey == nil {
		return false
	}
	c.l1.Delete(oldestKey)
	return true
}

// makeRoom keeps L1 below maxEntries before an insert: expired entries go
// first, then the oldest live ones. L2 relies on Redis TTLs instead.
func (c *tieredCache) makeRoom() {
	if c.maxEntries <= 0 {
		return
	}
	count := c.size()
	if count < c.maxEntries {
		return
	}
	count -= c.dropExpired(time.Now())
	for count >= c.maxEntries && c.dropOldest() {
		count--
	}
}

// cleanupLoop sweeps expired L1 entries until InitCache replaces this cache.
func (c *tieredCache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.dropExpired(now)
		}
	}
}
