package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anatolykoptev/go_vault/internal/engine"
)

const (
	supadataBaseURL = "https://api.supadata.ai/v1"
	maxAPIBodyBytes = 4 << 20
)

// SupadataProvider fetches transcripts from the Supadata API.
type SupadataProvider struct {
	APIKey  string
	Lang    string // default "en"
	HTTP    *http.Client
	Timeout time.Duration
	BaseURL string // default https://api.supadata.ai/v1
}

func (p *SupadataProvider) Name() ProviderName { return ProviderSupadata }

type supadataTranscript struct {
	Content json.RawMessage `json:"content"`
	Lang    string          `json:"lang"`
	JobID   string          `json:"jobId"`
}

// text accepts both the plain-text form and the segment list form.
func (r supadataTranscript) text() (string, error) {
	if len(r.Content) == 0 || string(r.Content) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(r.Content, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var segs []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(r.Content, &segs); err != nil {
		return "", fmt.Errorf("unexpected content shape: %w", err)
	}
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return joinCaptionText(parts), nil
}

func (p *SupadataProvider) FetchTranscript(ctx context.Context, videoID string) (Transcript, error) {
	if p.APIKey == "" {
		return Transcript{}, unavailable(ProviderSupadata, "Supadata provider not configured (missing API key)")
	}
	ctx, cancel := context.WithTimeout(ctx, timeoutOr(p.Timeout))
	defer cancel()

	lang := p.Lang
	if lang == "" {
		lang = "en"
	}
	q := url.Values{}
	q.Set("url", WatchURL(videoID))
	q.Set("lang", lang)
	q.Set("text", "true")
	endpoint := strings.TrimRight(orDefault(p.BaseURL, supadataBaseURL), "/") + "/youtube/transcript?" + q.Encode()

	status, body, err := doAPI(ctx, p.HTTP, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-api-key", p.APIKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return Transcript{}, unavailableErr(ProviderSupadata, err, "Supadata request failed for %s", videoID)
	}
	switch {
	case status == http.StatusAccepted:
		return Transcript{}, unavailable(ProviderSupadata,
			"transcript not immediately available from Supadata for %s (async job)", videoID)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Transcript{}, unavailable(ProviderSupadata, "Supadata rejected API key (HTTP %d)", status)
	case status != http.StatusOK:
		return Transcript{}, unavailable(ProviderSupadata, "Supadata API error for %s: HTTP %d", videoID, status)
	}

	var resp supadataTranscript
	if err := json.Unmarshal(body, &resp); err != nil {
		return Transcript{}, unavailableErr(ProviderSupadata, err, "failed to parse Supadata response for %s", videoID)
	}
	if resp.JobID != "" {
		return Transcript{}, unavailable(ProviderSupadata,
			"transcript not immediately available from Supadata for %s (async job)", videoID)
	}
	text, err := resp.text()
	if err != nil {
		return Transcript{}, unavailableErr(ProviderSupadata, err, "failed to parse Supadata response for %s", videoID)
	}
	if text == "" {
		return Transcript{}, unavailable(ProviderSupadata, "empty transcript from Supadata for %s", videoID)
	}
	return Transcript{Text: text, Language: orDefault(resp.Lang, lang)}, nil
}

// ScrapeWeb fetches a web page as markdown through Supadata's scrape endpoint.
// Used as the last fallback for article extraction.
func (p *SupadataProvider) ScrapeWeb(ctx context.Context, pageURL string) (title, content string, err error) {
	if p.APIKey == "" {
		return "", "", errors.New("supadata: missing API key")
	}
	ctx, cancel := context.WithTimeout(ctx, timeoutOr(p.Timeout))
	defer cancel()

	endpoint := strings.TrimRight(orDefault(p.BaseURL, supadataBaseURL), "/") +
		"/web/scrape?url=" + url.QueryEscape(pageURL)
	status, body, err := doAPI(ctx, p.HTTP, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-api-key", p.APIKey)
		return req, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("supadata scrape: %w", err)
	}
	if status != http.StatusOK {
		return "", "", fmt.Errorf("supadata scrape: HTTP %d", status)
	}
	var out struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", "", fmt.Errorf("supadata scrape: %w", err)
	}
	if strings.TrimSpace(out.Content) == "" {
		return "", "", errors.New("supadata scrape: empty content")
	}
	return out.Name, out.Content, nil
}

// doAPI sends the request built by newReq and returns status and body.
// Transient statuses are retried.
func doAPI(ctx context.Context, c *http.Client, newReq func() (*http.Request, error)) (int, []byte, error) {
	if c == nil {
		c = http.DefaultClient
	}
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := newReq()
		if err != nil {
			return nil, err
		}
		return c.Do(req)
	})
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, bytes.TrimSpace(body), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
