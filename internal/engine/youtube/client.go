package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go_vault/internal/engine"
)

// Settings configures NewClient. Zero values select defaults.
type Settings struct {
	CacheDir         string
	CacheTTL         time.Duration
	CacheBackend     string // "file" (default) or "sqlite"
	BreakerThreshold int
	BreakerTimeout   time.Duration
	ProviderOrder    []ProviderName
	ProviderTimeout  time.Duration
	YouTubeAPIKeys   []string
	SupadataAPIKey   string
	DecodoAPIKey     string
	Languages        []string
	HTTPClient       *http.Client
	BrowserClient    *engine.BrowserClient
	Quality          QualityConfig
}

// Client acquires validated transcripts: cache, then providers in order with
// the direct provider behind a circuit breaker, then the quality gate.
type Client struct {
	cache     *VideoCache
	breaker   *CircuitBreaker
	providers map[ProviderName]TranscriptProvider
	metadata  MetadataProvider
	order     []ProviderName
	quality   QualityConfig
	closers   []func() error
}

// Option customises a Client built by NewClient.
type Option func(*Client)

// WithProvider replaces the provider registered under p.Name().
func WithProvider(p TranscriptProvider) Option {
	return func(c *Client) { c.providers[p.Name()] = p }
}

// WithMetadataProvider replaces the metadata lookup.
func WithMetadataProvider(m MetadataProvider) Option {
	return func(c *Client) { c.metadata = m }
}

// NewClient builds a Client with the file or SQLite cache under s.CacheDir
// and the breaker state file beside it.
func NewClient(s Settings, opts ...Option) (*Client, error) {
	if s.CacheDir == "" {
		return nil, errors.New("youtube: cache dir is required")
	}
	for _, name := range s.ProviderOrder {
		if !name.Valid() {
			return nil, fmt.Errorf("youtube: unknown provider %q in order", name)
		}
	}

	c := &Client{
		providers: make(map[ProviderName]TranscriptProvider),
		order:     s.ProviderOrder,
		quality:   s.Quality,
	}
	if len(c.order) == 0 {
		c.order = DefaultProviderOrder
	}
	if c.quality == (QualityConfig{}) {
		c.quality = DefaultQuality
	}

	store, err := openStore(s)
	if err != nil {
		return nil, err
	}
	if cl, ok := store.(interface{ Close() error }); ok {
		c.closers = append(c.closers, cl.Close)
	}
	c.cache = NewVideoCache(store, s.CacheTTL)

	c.breaker, err = NewCircuitBreaker(filepath.Join(s.CacheDir, "circuit_breaker_state.json"),
		s.BreakerThreshold, s.BreakerTimeout)
	if err != nil {
		return nil, err
	}

	c.providers[ProviderDirect] = &DirectProvider{
		HTTP: s.HTTPClient, Browser: s.BrowserClient, Langs: s.Languages, Timeout: s.ProviderTimeout,
	}
	lang := "en"
	if len(s.Languages) > 0 {
		lang = s.Languages[0]
	}
	c.providers[ProviderSupadata] = &SupadataProvider{
		APIKey: s.SupadataAPIKey, Lang: lang, HTTP: s.HTTPClient, Timeout: s.ProviderTimeout,
	}
	c.providers[ProviderDecodo] = &DecodoProvider{
		APIKey: s.DecodoAPIKey, Language: lang, HTTP: s.HTTPClient, Timeout: s.ProviderTimeout,
	}

	chain := MetadataChain{}
	if len(s.YouTubeAPIKeys) > 0 {
		chain = append(chain, &DataAPIMetadata{Keys: s.YouTubeAPIKeys, HTTP: s.HTTPClient, Timeout: s.ProviderTimeout})
	} else {
		slog.Warn("youtube: API key not configured, metadata via oEmbed only")
	}
	chain = append(chain, &OEmbedMetadata{HTTP: s.HTTPClient, Timeout: s.ProviderTimeout})
	c.metadata = chain

	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func openStore(s Settings) (Store, error) {
	switch s.CacheBackend {
	case "", "file":
		return NewFileStore(filepath.Join(s.CacheDir, "youtube"))
	case "sqlite":
		return OpenSQLiteStore(filepath.Join(s.CacheDir, "cache.db"))
	default:
		return nil, fmt.Errorf("youtube: unknown cache backend %q", s.CacheBackend)
	}
}

// Close releases the cache backend.
func (c *Client) Close() error {
	var errs []error
	for _, fn := range c.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// Cache exposes the video cache for administration.
func (c *Client) Cache() *VideoCache { return c.cache }

// Breaker exposes the direct provider's circuit breaker.
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// Quality returns the thresholds applied by GetTranscript.
func (c *Client) Quality() QualityConfig { return c.quality }

// DefaultOrder returns the configured provider order.
func (c *Client) DefaultOrder() []ProviderName { return c.order }

// GetTranscript resolves rawURL to a validated VideoResult. order overrides the
// configured provider order when non-empty.
//
// Errors: ErrInvalidURL for unparseable input; otherwise a *TranscriptError
// (matching ErrTranscriptUnavailable) or the context's error.
func (c *Client) GetTranscript(ctx context.Context, rawURL string, order []ProviderName) (VideoResult, error) {
	engine.IncrTranscriptRequest()

	videoID, err := ParseVideoID(rawURL)
	if err != nil {
		return VideoResult{}, err
	}

	if cached, ok := c.cache.Get(ctx, videoID); ok {
		engine.IncrTranscriptCacheHit()
		slog.Info("youtube: cache hit", slog.String("id", videoID), slog.String("provider", cached.ProviderUsed))
		return cached, nil
	}
	engine.IncrTranscriptCacheMiss()

	md := c.fetchMetadata(ctx, videoID)

	if len(order) == 0 {
		order = c.order
	}
	tr, provider, err := c.fetchWithFallback(ctx, videoID, order)
	if err != nil {
		return VideoResult{}, err
	}

	if issue := c.quality.Validate(tr.Text, md.Title); issue != "" {
		engine.IncrQualityRejection()
		slog.Warn("youtube: transcript rejected", slog.String("id", videoID),
			slog.String("provider", string(provider)), slog.String("issue", issue))
		return VideoResult{}, &TranscriptError{VideoID: videoID, Kind: FailureLowQuality, Detail: issue}
	}
	if !c.quality.Relevant(tr.Text, md.Title) {
		engine.IncrQualityRejection()
		slog.Warn("youtube: transcript does not match title", slog.String("id", videoID),
			slog.String("provider", string(provider)), slog.String("title", md.Title))
		return VideoResult{}, &TranscriptError{VideoID: videoID, Kind: FailureIrrelevant, Detail: "title: " + md.Title}
	}

	result := VideoResult{
		VideoID:        videoID,
		Title:          md.Title,
		ChannelName:    md.ChannelName,
		URL:            WatchURL(videoID),
		Transcript:     tr.Text,
		SourceLanguage: tr.Language,
		ProviderUsed:   string(provider),
	}
	if err := c.cache.Set(ctx, videoID, result, string(provider)); err != nil {
		slog.Warn("youtube: cache write failed", slog.String("id", videoID), slog.Any("error", err))
	}
	return result, nil
}

// fetchMetadata never fails; the placeholder stands in when no provider answers.
func (c *Client) fetchMetadata(ctx context.Context, videoID string) Metadata {
	if c.metadata != nil {
		md, err := c.metadata.FetchMetadata(ctx, videoID)
		if err == nil && md.Title != "" {
			if md.ChannelName == "" {
				md.ChannelName = "Unknown Channel"
			}
			return md
		}
		slog.Warn("youtube: metadata unavailable, using placeholder",
			slog.String("id", videoID), slog.Any("error", err))
	}
	return placeholderMetadata(videoID)
}

// fetchWithFallback tries providers strictly in order. Only the direct
// provider is guarded by the breaker; a breaker skip is reported but not
// recorded against it.
func (c *Client) fetchWithFallback(ctx context.Context, videoID string, order []ProviderName) (Transcript, ProviderName, error) {
	var failures []string
	for _, name := range order {
		p, ok := c.providers[name]
		if !ok {
			slog.Warn("youtube: unknown provider in order, skipping", slog.String("provider", string(name)))
			continue
		}
		guarded := name == ProviderDirect && c.breaker != nil

		if guarded && c.breaker.IsOpen() {
			engine.IncrBreakerSkip()
			slog.Info("youtube: circuit breaker open, skipping provider", slog.String("provider", string(name)))
			failures = append(failures, string(name)+": circuit breaker open")
			continue
		}

		engine.IncrProviderAttempt(string(name))
		tr, err := p.FetchTranscript(ctx, videoID)
		if err == nil && tr.Text != "" {
			if guarded {
				c.breaker.RecordSuccess()
			}
			slog.Info("youtube: transcript fetched", slog.String("id", videoID),
				slog.String("provider", string(name)), slog.Int("chars", len(tr.Text)))
			return tr, name, nil
		}
		if err == nil {
			err = unavailable(name, "empty transcript")
		}
		if ctx.Err() != nil {
			return Transcript{}, "", ctx.Err()
		}

		engine.IncrProviderFailure(string(name))
		if guarded {
			c.breaker.RecordFailure()
		}
		slog.Warn("youtube: provider failed", slog.String("id", videoID),
			slog.String("provider", string(name)), slog.Any("error", err))
		failures = append(failures, fmt.Sprintf("%s: %s", name, err))
	}
	if len(failures) == 0 {
		failures = append(failures, "no providers configured")
	}
	return Transcript{}, "", &TranscriptError{VideoID: videoID, Kind: FailureExhausted, Failures: failures}
}
