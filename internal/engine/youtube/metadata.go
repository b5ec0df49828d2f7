package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anatolykoptev/go_vault/internal/engine"
)

const (
	dataAPIBase   = "https://www.googleapis.com/youtube/v3"
	oembedBaseURL = "https://www.youtube.com/oembed"
)

// DataAPIMetadata reads the video snippet from the YouTube Data API v3.
// Keys are tried in order; a quota error on the first falls through to the next.
type DataAPIMetadata struct {
	Keys    []string
	HTTP    *http.Client
	Timeout time.Duration
	BaseURL string // default https://www.googleapis.com/youtube/v3
}

type dataAPIVideos struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Description  string `json:"description"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

func (m *DataAPIMetadata) FetchMetadata(ctx context.Context, videoID string) (Metadata, error) {
	var keys []string
	for _, k := range m.Keys {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return Metadata{}, errors.New("youtube data API: no API key")
	}
	ctx, cancel := context.WithTimeout(ctx, timeoutOr(m.Timeout))
	defer cancel()

	var lastErr error
	for _, key := range keys {
		md, err := m.fetch(ctx, videoID, key)
		if err == nil {
			return md, nil
		}
		lastErr = err
		slog.Debug("youtube data API key failed", slog.Any("error", err))
	}
	return Metadata{}, lastErr
}

func (m *DataAPIMetadata) fetch(ctx context.Context, videoID, key string) (Metadata, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("id", videoID)
	q.Set("key", key)
	endpoint := strings.TrimRight(orDefault(m.BaseURL, dataAPIBase), "/") + "/videos?" + q.Encode()

	status, body, err := doAPI(ctx, m.HTTP, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return req, nil
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("youtube data API: %w", err)
	}
	if status != http.StatusOK {
		return Metadata{}, fmt.Errorf("youtube data API %d: %s", status, engine.Truncate(string(body), 200))
	}
	var resp dataAPIVideos
	if err := json.Unmarshal(body, &resp); err != nil {
		return Metadata{}, fmt.Errorf("decode youtube data API: %w", err)
	}
	if len(resp.Items) == 0 {
		return Metadata{}, fmt.Errorf("video %s not found", videoID)
	}
	s := resp.Items[0].Snippet
	return Metadata{
		Title:       s.Title,
		ChannelName: s.ChannelTitle,
		Description: s.Description,
		PublishedAt: s.PublishedAt,
	}, nil
}

// OEmbedMetadata uses the public oEmbed endpoint. No key required, but it only
// returns title and channel.
type OEmbedMetadata struct {
	HTTP    *http.Client
	Timeout time.Duration
	BaseURL string // default https://www.youtube.com/oembed
}

func (m *OEmbedMetadata) FetchMetadata(ctx context.Context, videoID string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutOr(m.Timeout))
	defer cancel()

	q := url.Values{}
	q.Set("url", WatchURL(videoID))
	q.Set("format", "json")
	endpoint := orDefault(m.BaseURL, oembedBaseURL) + "?" + q.Encode()

	status, body, err := doAPI(ctx, m.HTTP, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("oembed: %w", err)
	}
	if status != http.StatusOK {
		return Metadata{}, fmt.Errorf("oembed: HTTP %d", status)
	}
	var out struct {
		Title      string `json:"title"`
		AuthorName string `json:"author_name"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return Metadata{}, fmt.Errorf("decode oembed: %w", err)
	}
	if out.Title == "" {
		return Metadata{}, errors.New("oembed: empty title")
	}
	return Metadata{Title: out.Title, ChannelName: out.AuthorName}, nil
}

// MetadataChain tries each provider in turn and returns the first success.
type MetadataChain []MetadataProvider

func (c MetadataChain) FetchMetadata(ctx context.Context, videoID string) (Metadata, error) {
	var errs []error
	for _, p := range c {
		md, err := p.FetchMetadata(ctx, videoID)
		if err == nil {
			return md, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Metadata{}, errors.New("no metadata provider configured")
	}
	return Metadata{}, errors.Join(errs...)
}

// placeholderMetadata is used when no provider could describe the video.
func placeholderMetadata(videoID string) Metadata {
	return Metadata{Title: "Video " + videoID, ChannelName: "Unknown Channel"}
}
