package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const decodoScrapeURL = "https://scraper-api.decodo.com/v2/scrape"

// DecodoProvider fetches YouTube subtitles through the Decodo scraper API.
type DecodoProvider struct {
	APIKey   string // pre-encoded Basic credential
	Language string // default "en"
	HTTP     *http.Client
	Timeout  time.Duration
	Endpoint string // default https://scraper-api.decodo.com/v2/scrape
}

func (p *DecodoProvider) Name() ProviderName { return ProviderDecodo }

type decodoSubtitles struct {
	Subtitles struct {
		Events []struct {
			Segs []struct {
				UTF8 string `json:"utf8"`
			} `json:"segs"`
		} `json:"events"`
	} `json:"subtitles"`
}

// decodoResult is one entry of "results"; the payload sits under "content"
// or "data" depending on the API version.
type decodoResult struct {
	Content json.RawMessage `json:"content"`
	Data    json.RawMessage `json:"data"`
}

func (r decodoResult) segments() []string {
	var out []string
	for _, raw := range []json.RawMessage{r.Content, r.Data} {
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		var subs decodoSubtitles
		if err := json.Unmarshal(raw, &subs); err != nil {
			continue
		}
		for _, ev := range subs.Subtitles.Events {
			for _, seg := range ev.Segs {
				out = append(out, seg.UTF8)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return out
}

// parseDecodo accepts "results" as either an object or an array of objects.
func parseDecodo(body []byte) (string, error) {
	var env struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return "", err
	}
	raw := bytes.TrimSpace(env.Results)
	var results []decodoResult
	switch {
	case len(raw) == 0:
		return "", nil
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &results); err != nil {
			return "", err
		}
	case raw[0] == '{':
		var one decodoResult
		if err := json.Unmarshal(raw, &one); err != nil {
			return "", err
		}
		results = append(results, one)
	}
	var parts []string
	for _, r := range results {
		parts = append(parts, r.segments()...)
	}
	return joinCaptionText(parts), nil
}

func (p *DecodoProvider) FetchTranscript(ctx context.Context, videoID string) (Transcript, error) {
	if p.APIKey == "" {
		return Transcript{}, unavailable(ProviderDecodo, "Decodo provider not configured (missing API key)")
	}
	ctx, cancel := context.WithTimeout(ctx, timeoutOr(p.Timeout))
	defer cancel()

	lang := orDefault(p.Language, "en")
	payload, err := json.Marshal(map[string]string{
		"target":        "youtube_subtitles",
		"query":         videoID,
		"language_code": lang,
	})
	if err != nil {
		return Transcript{}, unavailableErr(ProviderDecodo, err, "encode request")
	}
	status, body, err := doAPI(ctx, p.HTTP, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, orDefault(p.Endpoint, decodoScrapeURL), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Basic "+p.APIKey)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return Transcript{}, unavailableErr(ProviderDecodo, err, "Decodo API request failed for %s", videoID)
	}
	if status != http.StatusOK {
		return Transcript{}, unavailable(ProviderDecodo, "Decodo API error for %s: %d", videoID, status)
	}
	text, err := parseDecodo(body)
	if err != nil {
		return Transcript{}, unavailableErr(ProviderDecodo, err, "failed to parse Decodo response for %s", videoID)
	}
	if strings.TrimSpace(text) == "" {
		return Transcript{}, unavailable(ProviderDecodo, "no transcript content found in Decodo response for %s", videoID)
	}
	return Transcript{Text: text, Language: lang}, nil
}
