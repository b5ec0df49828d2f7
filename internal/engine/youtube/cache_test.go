package youtube

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(id string) VideoResult {
	return VideoResult{
		VideoID:        id,
		Title:          "Distributed Databases",
		ChannelName:    "Systems Channel",
		URL:            WatchURL(id),
		Transcript:     goodTranscript,
		SourceLanguage: "en",
		ProviderUsed:   "supadata",
	}
}

// storeFactories runs cache tests against every backend.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"file": func() Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "youtube"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func() Store {
			s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestVideoCache_RoundTrip(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := NewVideoCache(newStore(), 0)
			assert.Equal(t, DefaultCacheTTL, c.TTL())

			_, ok := c.Get(ctx, "abc123")
			assert.False(t, ok)

			want := sampleResult("abc123")
			require.NoError(t, c.Set(ctx, "abc123", want, "supadata"))

			got, ok := c.Get(ctx, "abc123")
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestVideoCache_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	c := NewVideoCache(storeFactories(t)["file"](), time.Hour)

	first := sampleResult("abc123")
	require.NoError(t, c.Set(ctx, "abc123", first, "direct"))
	second := first
	second.ProviderUsed = "decodo"
	require.NoError(t, c.Set(ctx, "abc123", second, "decodo"))

	got, ok := c.Get(ctx, "abc123")
	require.True(t, ok)
	assert.Equal(t, "decodo", got.ProviderUsed)
}

func TestVideoCache_ExpiryDeletesOnGetButNotOnStats(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()
			c := NewVideoCache(store, time.Hour)
			now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			c.now = func() time.Time { return now }

			require.NoError(t, c.Set(ctx, "old", sampleResult("old"), "direct"))
			require.NoError(t, c.Set(ctx, "fresh", sampleResult("fresh"), "direct"))

			// Age "old" only: rewrite it two hours in the past.
			c.now = func() time.Time { return now.Add(-2 * time.Hour) }
			require.NoError(t, c.Set(ctx, "old", sampleResult("old"), "direct"))
			c.now = func() time.Time { return now }

			st, err := c.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, st.Total)
			assert.Equal(t, 1, st.Valid)
			assert.Equal(t, 1, st.Expired)
			assert.Equal(t, 1.0, st.TTLHours)
			assert.Equal(t, store.Name(), st.Backend)

			// Stats must not have removed the expired entry.
			keys, err := store.Keys(ctx)
			require.NoError(t, err)
			assert.Len(t, keys, 2)

			_, ok := c.Get(ctx, "old")
			assert.False(t, ok)

			keys, err = store.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"fresh"}, keys)

			st, err = c.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, st.Total)
			assert.Equal(t, 1, st.Valid)
			assert.Equal(t, 0, st.Expired)
		})
	}
}

func TestVideoCache_StatsReportsDir(t *testing.T) {
	ctx := context.Background()
	store := storeFactories(t)["file"]().(*FileStore)
	st, err := NewVideoCache(store, time.Hour).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Dir(), st.Dir)

	st, err = NewVideoCache(storeFactories(t)["sqlite"](), time.Hour).Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Dir)
}

func TestVideoCache_CorruptEntrySelfHeals(t *testing.T) {
	ctx := context.Background()
	store := storeFactories(t)["file"]().(*FileStore)
	c := NewVideoCache(store, time.Hour)

	path := filepath.Join(store.Dir(), "abc123.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Expired, "corrupt entries count as expired")

	_, ok := c.Get(ctx, "abc123")
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "corrupt entry should be removed")

	require.NoError(t, c.Set(ctx, "abc123", sampleResult("abc123"), "direct"))
	_, ok = c.Get(ctx, "abc123")
	assert.True(t, ok)
}

func TestVideoCache_IncompleteEntryIsCorrupt(t *testing.T) {
	ctx := context.Background()
	store := storeFactories(t)["file"]()
	require.NoError(t, store.Save(ctx, "abc123", []byte(`{"provider":"direct"}`)))

	c := NewVideoCache(store, time.Hour)
	_, ok := c.Get(ctx, "abc123")
	assert.False(t, ok)
}

func TestVideoCache_InvalidateAndClear(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := NewVideoCache(newStore(), time.Hour)
			for _, id := range []string{"a1", "b2", "c3"} {
				require.NoError(t, c.Set(ctx, id, sampleResult(id), "direct"))
			}

			removed, err := c.Invalidate(ctx, "a1")
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = c.Invalidate(ctx, "a1")
			require.NoError(t, err)
			assert.False(t, removed)

			n, err := c.Clear(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = c.Clear(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	ctx := context.Background()
	s := storeFactories(t)["file"]()
	for _, key := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, s.Save(ctx, key, []byte("{}")), key)
	}
}

func TestFileStore_KeysIgnoresTempFiles(t *testing.T) {
	ctx := context.Background()
	s := storeFactories(t)["file"]().(*FileStore)
	require.NoError(t, s.Save(ctx, "abc123", []byte("{}")))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ".vault-123.tmp"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), nil, 0o644))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123"}, keys)
}

func TestStores_LoadMissing(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := newStore().Load(context.Background(), "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
