package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultCacheTTL is seven days.
const DefaultCacheTTL = 168 * time.Hour

// VideoCache stores validated results keyed by video id. Expired and corrupt
// records are treated as absent; Get removes them, Stats only counts them.
type VideoCache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewVideoCache wraps store with a TTL. ttl <= 0 means DefaultCacheTTL.
func NewVideoCache(store Store, ttl time.Duration) *VideoCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &VideoCache{store: store, ttl: ttl, now: time.Now}
}

// TTL returns the configured time-to-live.
func (c *VideoCache) TTL() time.Duration { return c.ttl }

// Get returns the cached result for id if present and fresh.
func (c *VideoCache) Get(ctx context.Context, id string) (VideoResult, bool) {
	entry, err := c.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return VideoResult{}, false
	}
	if err != nil {
		slog.Warn("video cache: dropping unreadable entry", slog.String("id", id), slog.Any("error", err))
		c.drop(ctx, id)
		return VideoResult{}, false
	}
	if c.expired(entry) {
		slog.Debug("video cache: entry expired", slog.String("id", id), slog.Time("cached_at", entry.CachedAt))
		c.drop(ctx, id)
		return VideoResult{}, false
	}
	return entry.Metadata, true
}

// Set stores result for id, replacing any previous entry.
func (c *VideoCache) Set(ctx context.Context, id string, result VideoResult, provider string) error {
	data, err := json.MarshalIndent(CacheEntry{
		Metadata: result,
		CachedAt: c.now(),
		Provider: provider,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("video cache: encode %s: %w", id, err)
	}
	if err := c.store.Save(ctx, id, data); err != nil {
		return fmt.Errorf("video cache: save %s: %w", id, err)
	}
	return nil
}

// Invalidate removes the entry for id and reports whether one existed.
func (c *VideoCache) Invalidate(ctx context.Context, id string) (bool, error) {
	return c.store.Delete(ctx, id)
}

// Clear removes every entry and returns how many were removed.
func (c *VideoCache) Clear(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("video cache: list: %w", err)
	}
	removed := 0
	for _, k := range keys {
		ok, err := c.store.Delete(ctx, k)
		if err != nil {
			return removed, fmt.Errorf("video cache: delete %s: %w", k, err)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// Stats sweeps every entry without deleting anything.
func (c *VideoCache) Stats(ctx context.Context) (CacheStats, error) {
	st := CacheStats{TTLHours: c.ttl.Hours(), Backend: c.store.Name()}
	if d, ok := c.store.(interface{ Dir() string }); ok {
		st.Dir = d.Dir()
	}
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return st, fmt.Errorf("video cache: list: %w", err)
	}
	for _, k := range keys {
		st.Total++
		entry, err := c.load(ctx, k)
		if err != nil || c.expired(entry) {
			st.Expired++
			continue
		}
		st.Valid++
	}
	return st, nil
}

func (c *VideoCache) load(ctx context.Context, id string) (CacheEntry, error) {
	data, err := c.store.Load(ctx, id)
	if err != nil {
		return CacheEntry{}, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return CacheEntry{}, fmt.Errorf("decode: %w", err)
	}
	if entry.CachedAt.IsZero() || entry.Metadata.VideoID == "" {
		return CacheEntry{}, errors.New("decode: incomplete entry")
	}
	return entry, nil
}

func (c *VideoCache) expired(e CacheEntry) bool {
	return c.now().Sub(e.CachedAt) > c.ttl
}

func (c *VideoCache) drop(ctx context.Context, id string) {
	if _, err := c.store.Delete(ctx, id); err != nil {
		slog.Warn("video cache: delete failed", slog.String("id", id), slog.Any("error", err))
	}
}
