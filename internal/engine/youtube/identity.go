package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// pathPrefixes are the youtube.com path shapes that carry the id as the next segment.
var pathPrefixes = []string{"/shorts/", "/embed/", "/live/", "/v/"}

func isYouTubeHost(host string) bool {
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		return true
	}
	return false
}

// ParseVideoID extracts the canonical video id from any accepted URL shape.
// The error wraps ErrInvalidURL when nothing matches.
func ParseVideoID(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: could not extract video ID from URL: %s", ErrInvalidURL, rawURL)
	}
	host := strings.ToLower(u.Hostname())

	var id string
	switch {
	case host == "youtu.be":
		id = firstSegment(u.Path)
	case isYouTubeHost(host):
		if v := u.Query().Get("v"); v != "" && (u.Path == "/watch" || u.Path == "/watch/") {
			id = v
			break
		}
		for _, prefix := range pathPrefixes {
			if strings.HasPrefix(u.Path, prefix) {
				id = firstSegment(strings.TrimPrefix(u.Path, prefix))
				break
			}
		}
	}

	if id == "" || !videoIDRE.MatchString(id) {
		return "", fmt.Errorf("%w: could not extract video ID from URL: %s", ErrInvalidURL, rawURL)
	}
	return id, nil
}

// IsVideoURL reports whether s parses as a video URL.
func IsVideoURL(s string) bool {
	_, err := ParseVideoID(s)
	return err == nil
}

// WatchURL is the canonical watch URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}
