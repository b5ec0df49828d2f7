package youtube

import "time"

// VideoResult is a fully acquired and validated video: metadata plus transcript.
type VideoResult struct {
	VideoID        string `json:"video_id"`
	Title          string `json:"title"`
	ChannelName    string `json:"channel_name"`
	URL            string `json:"url"`
	Transcript     string `json:"transcript"`
	SourceLanguage string `json:"source_language"`
	ProviderUsed   string `json:"provider_used"`
}

// Transcript is what a provider returns on success.
type Transcript struct {
	Text     string
	Language string
}

// Metadata is the best-effort descriptive data for a video.
type Metadata struct {
	Title       string `json:"title"`
	ChannelName string `json:"channel_name"`
	Description string `json:"description,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// CacheEntry is the persisted form of a cached VideoResult.
type CacheEntry struct {
	Metadata VideoResult `json:"metadata"`
	CachedAt time.Time   `json:"cached_at"`
	Provider string      `json:"provider"`
}

// CacheStats is a non-mutating sweep over the cache.
type CacheStats struct {
	Total    int     `json:"total_files"`
	Valid    int     `json:"valid"`
	Expired  int     `json:"expired"`
	TTLHours float64 `json:"ttl_hours"`
	Backend  string  `json:"backend"`
	Dir      string  `json:"cache_dir,omitempty"` // file backend only
}
