package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/anatolykoptev/go_vault/internal/engine"
)

// DefaultProviderTimeout bounds every provider call.
const DefaultProviderTimeout = 30 * time.Second

var errPoTokenOnly = errors.New("all caption tracks require a PoToken")

// DirectProvider scrapes captions from YouTube without credentials.
// Strategies, in order:
//  1. watch page ytInitialPlayerResponse → caption track → timedtext XML
//  2. WEB /next engagement panel → /get_transcript
//  3. ANDROID Innertube /player → caption track → timedtext XML
//
// It is the provider guarded by the circuit breaker.
type DirectProvider struct {
	HTTP    *http.Client
	Browser *engine.BrowserClient // optional; used for the watch page when set
	Langs   []string              // preferred caption languages, default ["en"]
	Timeout time.Duration
	BaseURL string // default https://www.youtube.com
}

func (p *DirectProvider) Name() ProviderName { return ProviderDirect }

func (p *DirectProvider) origin() string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	return youtubeOrigin
}

func (p *DirectProvider) client() *http.Client {
	if p.HTTP != nil {
		return p.HTTP
	}
	return http.DefaultClient
}

func (p *DirectProvider) langs() []string {
	if len(p.Langs) > 0 {
		return p.Langs
	}
	return []string{"en"}
}

func (p *DirectProvider) FetchTranscript(ctx context.Context, videoID string) (Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutOr(p.Timeout))
	defer cancel()

	tr, scrapeErr := p.viaWatchPage(ctx, videoID)
	if scrapeErr == nil {
		return tr, nil
	}
	slog.Debug("youtube direct: watch page failed, trying engagement panel",
		slog.String("id", videoID), slog.Any("error", scrapeErr))

	tr, panelErr := p.viaEngagementPanel(ctx, videoID)
	if panelErr == nil {
		return tr, nil
	}
	slog.Debug("youtube direct: engagement panel failed, trying android player",
		slog.String("id", videoID), slog.Any("error", panelErr))

	tr, playerErr := p.viaPlayer(ctx, videoID)
	if playerErr == nil {
		return tr, nil
	}
	if ctx.Err() != nil {
		return Transcript{}, unavailableErr(ProviderDirect, ctx.Err(), "request aborted")
	}
	// The watch page is the most descriptive source of "why".
	return Transcript{}, unavailableErr(ProviderDirect, errors.Join(panelErr, playerErr), "%s", scrapeErr)
}

func (p *DirectProvider) viaWatchPage(ctx context.Context, videoID string) (Transcript, error) {
	body, err := p.watchPage(ctx, videoID)
	if err != nil {
		return Transcript{}, err
	}
	idx := strings.Index(string(body), playerRespMarker)
	if idx < 0 {
		return Transcript{}, errors.New("player response not found in watch page")
	}
	raw := extractJSON(body[idx+len(playerRespMarker):])
	if raw == nil {
		return Transcript{}, errors.New("malformed player response in watch page")
	}
	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return Transcript{}, fmt.Errorf("decode player response: %w", err)
	}
	return p.fromTracks(ctx, pr)
}

func (p *DirectProvider) watchPage(ctx context.Context, videoID string) ([]byte, error) {
	watchURL := p.origin() + "/watch?v=" + url.QueryEscape(videoID)

	if p.Browser != nil {
		headers := engine.ChromeHeaders()
		headers["accept-language"] = "en-US,en;q=0.9"
		data, _, status, err := p.Browser.Do(http.MethodGet, watchURL, headers, nil)
		if err != nil {
			return nil, fmt.Errorf("watch page: %w", err)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("watch page: HTTP %d", status)
		}
		return data, nil
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return p.client().Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch page: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxWatchPageBytes))
}

var transcriptParamsRe = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func (p *DirectProvider) viaEngagementPanel(ctx context.Context, videoID string) (Transcript, error) {
	visitor := visitorData()
	next, err := p.postInnertube(ctx, ytNextPath, map[string]any{
		"videoId": videoID,
		"context": webContext(visitor),
	}, false, visitor)
	if err != nil {
		return Transcript{}, fmt.Errorf("/next: %w", err)
	}
	m := transcriptParamsRe.FindSubmatch(next)
	if len(m) < 2 {
		return Transcript{}, errors.New("no transcript panel for video")
	}
	params := string(m[1])
	if decoded, err := url.QueryUnescape(params); err == nil {
		params = decoded
	}

	data, err := p.postInnertube(ctx, ytGetTranscript, map[string]any{
		"params":  params,
		"context": webContext(visitor),
	}, false, visitor)
	if err != nil {
		return Transcript{}, fmt.Errorf("/get_transcript: %w", err)
	}
	var resp getTranscriptResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}
	text := resp.text()
	if text == "" {
		return Transcript{}, errors.New("empty transcript segments")
	}
	// The panel is requested with hl=en and does not report a language.
	return Transcript{Text: text, Language: p.langs()[0]}, nil
}

func (p *DirectProvider) viaPlayer(ctx context.Context, videoID string) (Transcript, error) {
	data, err := p.postInnertube(ctx, ytPlayerPath, innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{Client: innertubeClient{
			ClientName:        "ANDROID",
			ClientVersion:     ytAndroidVersion,
			AndroidSdkVersion: 30,
			Hl:                "en",
			Gl:                "US",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}, true, "")
	if err != nil {
		return Transcript{}, fmt.Errorf("android player: %w", err)
	}
	var pr playerResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return Transcript{}, fmt.Errorf("decode player: %w", err)
	}
	return p.fromTracks(ctx, pr)
}

func (p *DirectProvider) fromTracks(ctx context.Context, pr playerResponse) (Transcript, error) {
	if problem := pr.captionProblem(); problem != "" {
		return Transcript{}, errors.New(problem)
	}
	track, ok := pickBestTrack(pr.tracks(), p.langs())
	if !ok {
		return Transcript{}, errPoTokenOnly
	}
	text, err := p.timedText(ctx, track.BaseURL)
	if err != nil {
		return Transcript{}, err
	}
	if text == "" {
		return Transcript{}, errors.New("caption track is empty")
	}
	return Transcript{Text: text, Language: track.LanguageCode}, nil
}

func (p *DirectProvider) timedText(ctx context.Context, baseURL string) (string, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		return p.client().Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch timedtext: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTimedTextBytes))
	if err != nil {
		return "", fmt.Errorf("read timedtext: %w", err)
	}
	return parseTimedText(body)
}

// needsPoToken reports whether a track URL only works in a browser.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack prefers a manual track in a preferred language, then an
// auto-generated one, then any English track, then the first usable track.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

func timeoutOr(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return DefaultProviderTimeout
}
