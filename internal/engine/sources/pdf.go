package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/anatolykoptev/go_vault/internal/engine"
)

// ReadPDF extracts text from a local or remote PDF, reading at most
// MaxPDFPages pages. Remote PDFs that cannot be downloaded or parsed fall back
// to the hosted scraper when one is configured.
func (r *Reader) ReadPDF(ctx context.Context, source string) (*Content, error) {
	engine.IncrPDFReads()
	maxPages, maxBytes := r.pdfLimits()

	if !isWebURL(source) {
		abs, err := filepath.Abs(expandHome(source))
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if fi.IsDir() {
			return nil, fmt.Errorf("%s is a directory", abs)
		}
		if fi.Size() > maxBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", engine.ErrTooLarge, abs, fi.Size(), maxBytes)
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, err
		}
		c, err := extractPDF(data, maxPages)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", abs, err)
		}
		c.Source = "file://" + abs
		if c.Title == "" {
			c.Title = titleFromName(abs)
		}
		return c, nil
	}

	data, err := engine.FetchBytes(ctx, source, maxBytes)
	var c *Content
	if err == nil {
		c, err = extractPDF(data, maxPages)
	}
	if err != nil {
		if r.Scraper == nil || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		slog.Warn("sources: PDF download failed, using scraper", slog.String("url", source), slog.Any("error", err))
		title, text, serr := r.Scraper.ScrapeWeb(ctx, source)
		if serr != nil || strings.TrimSpace(text) == "" {
			if serr == nil {
				serr = ErrNoText
			}
			return nil, fmt.Errorf("read %s: %w", source, errors.Join(err, serr))
		}
		return &Content{
			Kind:     KindPDF,
			Source:   source,
			Title:    orUntitled(title),
			SiteName: "PDF Document",
			Text:     strings.TrimSpace(text),
			Provider: "scrape",
		}, nil
	}
	c.Source = source
	if c.Title == "" {
		c.Title = titleFromName(extOfURLBase(source))
	}
	return c, nil
}

// extractPDF reads up to maxPages pages of text plus the Info title and author.
// The pdf package panics on some malformed inputs; those become errors.
func extractPDF(data []byte, maxPages int) (c *Content, err error) {
	defer func() {
		if p := recover(); p != nil {
			c, err = nil, fmt.Errorf("parse PDF: %v", p)
		}
	}()
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return nil, errors.New("not a PDF document")
	}
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	total := doc.NumPage()
	n := min(total, maxPages)
	if total > maxPages {
		slog.Warn("sources: PDF page limit reached", slog.Int("pages", total), slog.Int("limit", maxPages))
	}

	var parts []string
	for i := 1; i <= n; i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, perr := p.GetPlainText(nil)
		if perr != nil {
			slog.Debug("sources: PDF page unreadable", slog.Int("page", i), slog.Any("error", perr))
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return nil, ErrNoText
	}

	info := doc.Trailer().Key("Info")
	return &Content{
		Kind:      KindPDF,
		Title:     strings.TrimSpace(info.Key("Title").Text()),
		Author:    strings.TrimSpace(info.Key("Author").Text()),
		SiteName:  "PDF Document",
		Text:      strings.Join(parts, "\n\n"),
		Provider:  "pdf",
		Pages:     n,
		Truncated: total > maxPages,
	}, nil
}

// extOfURLBase returns the last path segment of a URL without its query.
func extOfURLBase(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return filepath.Base(u)
}
