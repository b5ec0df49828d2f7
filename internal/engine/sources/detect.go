package sources

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/anatolykoptev/go_vault/internal/engine/youtube"
)

// Detect picks the reader for source. Video URLs win, then anything ending in
// .pdf, then any http(s) URL, then existing local files.
func Detect(source string) (Kind, error) {
	s := strings.TrimSpace(source)
	if s == "" {
		return "", fmt.Errorf("%w: empty source", ErrUnsupportedSource)
	}
	if youtube.IsVideoURL(s) {
		return KindVideo, nil
	}
	web := isWebURL(s)
	if strings.EqualFold(extOf(s, web), ".pdf") {
		return KindPDF, nil
	}
	if web {
		return KindWeb, nil
	}
	if fi, err := os.Stat(expandHome(s)); err == nil && !fi.IsDir() {
		return KindFile, nil
	}
	return "", fmt.Errorf("%w: %q is neither a URL nor an existing file", ErrUnsupportedSource, source)
}

func isWebURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// extOf returns the extension of a path or of a URL's path component.
func extOf(s string, web bool) string {
	if !web {
		return filepath.Ext(s)
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return path.Ext(s)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
