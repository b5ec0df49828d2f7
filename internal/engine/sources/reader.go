package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_vault/internal/engine/youtube"
)

// Defaults for PDF limits.
const (
	DefaultMaxPDFPages = 50
	DefaultMaxPDFBytes = 20 << 20
)

// WebScraper is a hosted page scraper used when local extraction fails.
// *youtube.SupadataProvider satisfies it.
type WebScraper interface {
	ScrapeWeb(ctx context.Context, pageURL string) (title, content string, err error)
}

// Reader dispatches sources to the matching reader.
type Reader struct {
	Videos      *youtube.Client // nil = video sources rejected
	Scraper     WebScraper      // nil = no hosted fallback
	MaxPDFPages int
	MaxPDFBytes int64
}

// Read detects the source kind and reads it. order overrides the transcript
// provider order for videos.
func (r *Reader) Read(ctx context.Context, source string, order []youtube.ProviderName) (*Content, error) {
	kind, err := Detect(source)
	if err != nil {
		return nil, err
	}
	slog.Info("sources: reading", slog.String("kind", string(kind)), slog.String("source", source))

	switch kind {
	case KindVideo:
		return r.ReadVideo(ctx, source, order)
	case KindPDF:
		return r.ReadPDF(ctx, source)
	case KindFile:
		return ReadFile(source)
	case KindWeb:
		return r.FetchArticle(ctx, source)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, kind)
}

// ReadVideo fetches a validated transcript through the video client.
func (r *Reader) ReadVideo(ctx context.Context, source string, order []youtube.ProviderName) (*Content, error) {
	if r.Videos == nil {
		return nil, errors.New("video client not configured")
	}
	v, err := r.Videos.GetTranscript(ctx, source, order)
	if err != nil {
		return nil, err
	}
	return &Content{
		Kind:     KindVideo,
		Source:   v.URL,
		Title:    v.Title,
		Author:   v.ChannelName,
		SiteName: "YouTube",
		Text:     v.Transcript,
		Language: v.SourceLanguage,
		Provider: v.ProviderUsed,
	}, nil
}

func (r *Reader) pdfLimits() (pages int, size int64) {
	pages, size = r.MaxPDFPages, r.MaxPDFBytes
	if pages <= 0 {
		pages = DefaultMaxPDFPages
	}
	if size <= 0 {
		size = DefaultMaxPDFBytes
	}
	return pages, size
}
