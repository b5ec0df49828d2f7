// Package sources turns a user-supplied source (video URL, web page, PDF or
// local file) into plain text ready for note generation.
package sources

import "errors"

// Kind identifies which reader handles a source.
type Kind string

const (
	KindVideo Kind = "video"
	KindWeb   Kind = "web"
	KindPDF   Kind = "pdf"
	KindFile  Kind = "file"
)

// ErrUnsupportedSource is returned when no reader accepts the source.
var ErrUnsupportedSource = errors.New("unsupported source")

// ErrNoText is returned when a source was read but yielded no text.
var ErrNoText = errors.New("no text content")

// Content is one ingested source.
type Content struct {
	Kind      Kind     `json:"kind"`
	Source    string   `json:"source"`
	Title     string   `json:"title"`
	Author    string   `json:"author,omitempty"`
	SiteName  string   `json:"site_name,omitempty"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags,omitempty"`
	Language  string   `json:"language,omitempty"`
	Provider  string   `json:"provider,omitempty"`  // transcript provider or extractor
	Pages     int      `json:"pages,omitempty"`     // pages read, PDFs only
	Truncated bool     `json:"truncated,omitempty"` // PDF page limit reached
}
