package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey            string
	LLMAPIKeyFallbacks   []string
	LLMAPIBase           string
	LLMModel             string
	LLMTemperature       float64
	LLMMaxTokens         int
	MaxContentChars      int
	FetchTimeout         time.Duration
	SupadataAPIKey       string
	ArticleCacheTTL      time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	WebRateDelay         time.Duration // minimum gap between requests to one domain
	MaxPDFPages          int
	MaxPDFSizeMB         int
	HTTPClient           *http.Client
	BrowserClient        *BrowserClient // nil = plain HTTP for watch pages
	LLMClient            *llm.Client    // nil = note generation disabled
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (youtube, sources).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
	initRateLimiter(c.WebRateDelay)
}
