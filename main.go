// go_vault: content ingestion MCP server for a personal knowledge vault.
//
// Exposes youtube_transcript, ingest_source, read_article, transcript_cache,
// circuit_breaker and validate_transcript. Runs as HTTP MCP server or stdio transport.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_vault/internal/engine"
	"github.com/anatolykoptev/go_vault/internal/engine/sources"
	"github.com/anatolykoptev/go_vault/internal/engine/youtube"
	"github.com/anatolykoptev/go_vault/internal/vaultserver"
)

var version = "dev"

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	mcpPort := env.Str("MCP_PORT", "8893")

	c := initEngine()
	videos, err := initVideos(c)
	if err != nil {
		slog.Error("video client init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer videos.Close()

	reader := &sources.Reader{
		Videos:      videos,
		MaxPDFPages: c.MaxPDFPages,
		MaxPDFBytes: int64(c.MaxPDFSizeMB) << 20,
	}
	if c.SupadataAPIKey != "" {
		reader.Scraper = &youtube.SupadataProvider{APIKey: c.SupadataAPIKey, HTTP: c.HTTPClient}
	}

	slog.Info("starting go_vault", slog.String("port", mcpPort))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_vault",
		Version: version,
	}, nil)

	vaultserver.New(videos, reader).RegisterTools(server)
	slog.Info("tools registered", slog.Int("count", vaultserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_vault",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() engine.Config {
	c := engine.Config{
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 4096),
		MaxContentChars:      env.Int("MAX_CONTENT_CHARS", 60000),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 30*time.Second),
		SupadataAPIKey:       env.Str("SUPADATA_API_KEY", ""),
		ArticleCacheTTL:      env.Duration("ARTICLE_CACHE_TTL", 24*time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		WebRateDelay:         env.Duration("WEB_RATE_DELAY", 2*time.Second),
		MaxPDFPages:          env.Int("MAX_PDF_PAGES", sources.DefaultMaxPDFPages),
		MaxPDFSizeMB:         env.Int("MAX_PDF_SIZE_MB", sources.DefaultMaxPDFBytes>>20),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	bc, err := engine.NewBrowserClient(env.Str("WEBSHARE_API_KEY", ""))
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
	} else {
		slog.Warn("LLM_API_KEY not set, note generation disabled")
	}

	engine.Init(c)
	engine.InitCache(env.Str("REDIS_URL", ""), c.ArticleCacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
	return c
}

func initVideos(c engine.Config) (*youtube.Client, error) {
	order, err := youtube.ParseProviderOrderStrict(env.Str("YOUTUBE_TRANSCRIPT_PROVIDER_ORDER", "direct,supadata,decodo"))
	if err != nil {
		return nil, err
	}
	cacheDir := env.Str("CACHE_DIR", "")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cacheDir = filepath.Join(home, ".cache", "go_vault")
	}
	return youtube.NewClient(youtube.Settings{
		CacheDir:         cacheDir,
		CacheTTL:         time.Duration(env.Float("CACHE_TTL_HOURS", 168) * float64(time.Hour)),
		CacheBackend:     env.Str("CACHE_BACKEND", "file"),
		BreakerThreshold: env.Int("CIRCUIT_BREAKER_THRESHOLD", youtube.DefaultBreakerThreshold),
		BreakerTimeout:   time.Duration(env.Float("CIRCUIT_BREAKER_TIMEOUT_HOURS", 2) * float64(time.Hour)),
		ProviderOrder:    order,
		ProviderTimeout:  env.Duration("PROVIDER_TIMEOUT", 30*time.Second),
		YouTubeAPIKeys:   env.List("YOUTUBE_API_KEY", ""),
		SupadataAPIKey:   c.SupadataAPIKey,
		DecodoAPIKey:     env.Str("DECODO_API_KEY", ""),
		Languages:        env.List("TRANSCRIPT_LANGUAGES", "en"),
		HTTPClient:       c.HTTPClient,
		BrowserClient:    c.BrowserClient,
	})
}
