package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/anatolykoptev/go_vault/internal/engine"
)

// FetchArticle reads a web page. GitHub blob links and plain .md/.txt URLs are
// fetched raw, repository roots yield their README, everything else goes
// through HTML extraction with the hosted scraper as last resort. Results are
// cached in the engine response cache.
func (r *Reader) FetchArticle(ctx context.Context, rawURL string) (*Content, error) {
	engine.IncrArticleRequests()
	if _, err := url.ParseRequestURI(rawURL); err != nil || !isWebURL(rawURL) {
		return nil, fmt.Errorf("%w: invalid URL %q", ErrUnsupportedSource, rawURL)
	}

	key := engine.CacheKey("article", rawURL)
	if c, ok := engine.CacheLoadJSON[Content](ctx, key); ok {
		slog.Debug("sources: article cache hit", slog.String("url", rawURL))
		return &c, nil
	}

	c, err := r.fetchArticle(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	engine.CacheStoreJSON(ctx, key, *c)
	return c, nil
}

func (r *Reader) fetchArticle(ctx context.Context, rawURL string) (*Content, error) {
	if owner, repo, ok := RepoRoot(rawURL); ok {
		c, err := FetchRepoReadme(ctx, owner, repo)
		if err == nil {
			return c, nil
		}
		slog.Warn("sources: README fetch failed, using page", slog.String("url", rawURL), slog.Any("error", err))
	}

	if raw := engine.GithubRawURL(rawURL); engine.IsPlainTextURL(raw) {
		c, err := fetchRaw(ctx, rawURL, raw)
		if err == nil {
			return c, nil
		}
		slog.Warn("sources: raw fetch failed, falling back to extraction", slog.String("url", raw), slog.Any("error", err))
	}

	title, text, err := engine.FetchURLContent(ctx, rawURL)
	if err == nil && text != "" {
		return &Content{
			Kind:     KindWeb,
			Source:   rawURL,
			Title:    orUntitled(title),
			SiteName: siteName(rawURL),
			Text:     text,
			Provider: "extract",
		}, nil
	}
	slog.Warn("sources: extraction failed", slog.String("url", rawURL), slog.Any("error", err))

	if r.Scraper == nil {
		if err == nil {
			err = ErrNoText
		}
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	stitle, stext, serr := r.Scraper.ScrapeWeb(ctx, rawURL)
	if serr != nil || strings.TrimSpace(stext) == "" {
		if serr == nil {
			serr = ErrNoText
		}
		return nil, fmt.Errorf("fetch %s: %w", rawURL, errors.Join(err, serr))
	}
	return &Content{
		Kind:     KindWeb,
		Source:   rawURL,
		Title:    orUntitled(stitle),
		SiteName: siteName(rawURL),
		Text:     strings.TrimSpace(stext),
		Provider: "scrape",
	}, nil
}

func fetchRaw(ctx context.Context, pageURL, rawURL string) (*Content, error) {
	var (
		text string
		err  error
	)
	if engine.IsRawGitHubURL(rawURL) {
		text, err = engine.FetchRawContentWithFallback(ctx, rawURL)
	} else {
		text, err = engine.FetchRawContent(ctx, rawURL)
	}
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrNoText
	}
	title := firstHeading(text)
	if title == "" {
		title = titleFromName(path.Base(strings.SplitN(rawURL, "?", 2)[0]))
	}
	return &Content{
		Kind:     KindWeb,
		Source:   pageURL,
		Title:    title,
		SiteName: siteName(pageURL),
		Text:     text,
		Provider: "raw",
	}, nil
}

func siteName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func orUntitled(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return "Untitled"
}
