package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_vault/internal/engine"
)

// Innertube constants and wire types used by DirectProvider.

const (
	youtubeOrigin     = "https://www.youtube.com"
	ytPlayerPath      = "/youtubei/v1/player"
	ytNextPath        = "/youtubei/v1/next"
	ytGetTranscript   = "/youtubei/v1/get_transcript"
	ytWebVersion      = "2.20250222.10.00"
	ytAndroidVersion  = "20.10.38"
	ytAndroidUA       = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
	playerRespMarker  = "ytInitialPlayerResponse = "
	maxWatchPageBytes = 6 << 20
	maxTimedTextBytes = 2 << 20
	maxInnertubeBytes = 3 << 20
)

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	VisitorData       string `json:"visitorData,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

// captionProblem explains why a player response carries no usable tracks.
func (p playerResponse) captionProblem() string {
	if p.PlayabilityStatus != nil && p.PlayabilityStatus.Status != "" && p.PlayabilityStatus.Status != "OK" {
		if p.PlayabilityStatus.Reason != "" {
			return "video unavailable: " + p.PlayabilityStatus.Reason
		}
		return "video unavailable: " + strings.ToLower(p.PlayabilityStatus.Status)
	}
	if p.Captions == nil {
		return "captions disabled or not available"
	}
	if len(p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) == 0 {
		return "no caption tracks"
	}
	return ""
}

func (p playerResponse) tracks() []captionTrack {
	if p.Captions == nil {
		return nil
	}
	return p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// timedText covers both the legacy <text> format and srv3 <body><p>.
type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		Text     string `xml:",chardata"`
		Segments []struct {
			Text string `xml:",chardata"`
		} `xml:"s"`
	} `xml:"body>p"`
}

func (tt timedText) join() string {
	var parts []string
	for _, l := range tt.Lines {
		parts = append(parts, l.Text)
	}
	for _, p := range tt.Paragraphs {
		if len(p.Segments) == 0 {
			parts = append(parts, p.Text)
			continue
		}
		for _, s := range p.Segments {
			parts = append(parts, s.Text)
		}
	}
	return joinCaptionText(parts)
}

// joinCaptionText unescapes the HTML entities YouTube leaves inside caption
// text (for example &#39;) and joins non-empty pieces with single spaces.
func joinCaptionText(parts []string) string {
	var sb strings.Builder
	for _, p := range parts {
		p = strings.Join(strings.Fields(html.UnescapeString(p)), " ")
		if p == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(p)
	}
	return sb.String()
}

type getTranscriptResp struct {
	Actions []struct {
		UpdateEngagementPanelAction *struct {
			Content struct {
				TranscriptRenderer struct {
					Content struct {
						TranscriptSearchPanelRenderer struct {
							Body struct {
								TranscriptSegmentListRenderer struct {
									InitialSegments []struct {
										TranscriptSegmentRenderer *struct {
											Snippet struct {
												Runs []struct {
													Text string `json:"text"`
												} `json:"runs"`
											} `json:"snippet"`
										} `json:"transcriptSegmentRenderer"`
									} `json:"initialSegments"`
								} `json:"transcriptSegmentListRenderer"`
							} `json:"body"`
						} `json:"transcriptSearchPanelRenderer"`
					} `json:"content"`
				} `json:"transcriptRenderer"`
			} `json:"content"`
		} `json:"updateEngagementPanelAction"`
	} `json:"actions"`
}

func (r getTranscriptResp) text() string {
	var parts []string
	for _, a := range r.Actions {
		if a.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := a.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			if seg.TranscriptSegmentRenderer == nil {
				continue
			}
			for _, run := range seg.TranscriptSegmentRenderer.Snippet.Runs {
				parts = append(parts, run.Text)
			}
		}
	}
	return joinCaptionText(parts)
}

func parseTimedText(body []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}
	return tt.join(), nil
}

// visitorData is a random 11-char visitor id for Innertube requests.
func visitorData() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.IntN(len(chars))] //nolint:gosec // non-cryptographic use
	}
	return string(b)
}

func webContext(visitor string) map[string]any {
	return map[string]any{
		"client": innertubeClient{
			ClientName:    "WEB",
			ClientVersion: ytWebVersion,
			VisitorData:   visitor,
			Hl:            "en",
			Gl:            "US",
		},
		"user":    map[string]any{"enableSafetyMode": false},
		"request": map[string]any{"useSsl": true},
	}
}

// extractJSON returns the balanced JSON object at the start of b, or nil.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// postInnertube POSTs payload with WEB or ANDROID client headers and returns
// the body of a 200 response.
func (p *DirectProvider) postInnertube(ctx context.Context, path string, payload any, android bool, visitor string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := p.origin() + path + "?prettyPrint=false"
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if android {
			req.Header.Set("User-Agent", ytAndroidUA)
			req.Header.Set("X-Youtube-Client-Name", "3")
			req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		} else {
			req.Header.Set("User-Agent", engine.UserAgentChrome)
			req.Header.Set("X-Youtube-Client-Name", "1")
			req.Header.Set("X-Youtube-Client-Version", ytWebVersion)
			req.Header.Set("X-Goog-Visitor-Id", visitor)
			req.Header.Set("Origin", youtubeOrigin)
			req.Header.Set("Referer", youtubeOrigin+"/")
		}
		return p.client().Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxInnertubeBytes))
}
