package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests  atomic.Int64
	TranscriptCacheHits atomic.Int64
	TranscriptCacheMiss atomic.Int64
	BreakerSkips        atomic.Int64
	QualityRejections   atomic.Int64
	LLMCalls            atomic.Int64
	LLMErrors           atomic.Int64
	FetchRequests       atomic.Int64
	FetchErrors         atomic.Int64
	ArticleRequests     atomic.Int64
	PDFReads            atomic.Int64
	FileReads           atomic.Int64
	RateLimitWaits      atomic.Int64
}

// providerCounters holds per-provider attempt and failure counts, keyed
// "<provider>_attempts" and "<provider>_failures".
var providerCounters = struct {
	mu sync.Mutex
	m  map[string]*atomic.Int64
}{m: make(map[string]*atomic.Int64)}

func providerCounter(key string) *atomic.Int64 {
	providerCounters.mu.Lock()
	defer providerCounters.mu.Unlock()
	c, ok := providerCounters.m[key]
	if !ok {
		c = new(atomic.Int64)
		providerCounters.m[key] = c
	}
	return c
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	m := map[string]int64{
		"transcript_requests":   metrics.TranscriptRequests.Load(),
		"transcript_cache_hits": metrics.TranscriptCacheHits.Load(),
		"transcript_cache_miss": metrics.TranscriptCacheMiss.Load(),
		"breaker_skips":         metrics.BreakerSkips.Load(),
		"quality_rejections":    metrics.QualityRejections.Load(),
		"llm_calls":             metrics.LLMCalls.Load(),
		"llm_errors":            metrics.LLMErrors.Load(),
		"fetch_requests":        metrics.FetchRequests.Load(),
		"fetch_errors":          metrics.FetchErrors.Load(),
		"article_requests":      metrics.ArticleRequests.Load(),
		"pdf_reads":             metrics.PDFReads.Load(),
		"file_reads":            metrics.FileReads.Load(),
		"rate_limit_waits":      metrics.RateLimitWaits.Load(),
		"cache_hits":            hits,
		"cache_misses":          misses,
	}
	providerCounters.mu.Lock()
	for k, c := range providerCounters.m {
		m["provider_"+k] = c.Load()
	}
	providerCounters.mu.Unlock()
	return m
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the youtube sub-package.
func IncrTranscriptRequest()   { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptCacheHit()  { metrics.TranscriptCacheHits.Add(1) }
func IncrTranscriptCacheMiss() { metrics.TranscriptCacheMiss.Add(1) }
func IncrBreakerSkip()         { metrics.BreakerSkips.Add(1) }
func IncrQualityRejection()    { metrics.QualityRejections.Add(1) }

// IncrProviderAttempt counts a call to the named transcript provider.
func IncrProviderAttempt(name string) { providerCounter(name + "_attempts").Add(1) }

// IncrProviderFailure counts a failed call to the named transcript provider.
func IncrProviderFailure(name string) { providerCounter(name + "_failures").Add(1) }

// Incrementors for the sources sub-package.
func IncrArticleRequests() { metrics.ArticleRequests.Add(1) }
func IncrPDFReads()        { metrics.PDFReads.Add(1) }
func IncrFileReads()       { metrics.FileReads.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
