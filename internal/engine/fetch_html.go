package engine

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minArticleChars is the shortest extraction accepted before trying the next extractor.
const minArticleChars = 200

// ErrNoContent is returned when no extractor produced usable text.
var ErrNoContent = errors.New("no extractable content")

var (
	wsRe       = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankRe    = regexp.MustCompile(`\n{3,}`)
	titleRe    = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	ogTitleRe  = regexp.MustCompile(`(?i)<meta[^>]*property=["']og:title["'][^>]*content=["']([^"']+)["']`)
	noiseTagRe = regexp.MustCompile(`(?is)<(head|script|style|noscript|header|footer|nav|aside|iframe)[^>]*>.*?</(head|script|style|noscript|header|footer|nav|aside|iframe)>`)
)

// FetchURLContent downloads a web page and extracts its main content as markdown.
// Extraction tries go-readability, then goquery, then regex stripping.
func FetchURLContent(ctx context.Context, rawURL string) (title, content string, err error) {
	metrics.FetchRequests.Add(1)
	defer func() {
		if err != nil {
			metrics.FetchErrors.Add(1)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout())
	defer cancel()

	body, err := fetchBody(ctx, rawURL, true, maxFetchBytes)
	if err != nil {
		return "", "", err
	}
	title, content = ExtractArticle(body, rawURL)
	if content == "" {
		return title, "", ErrNoContent
	}
	return title, limitContent(content), nil
}

// ExtractArticle runs the extractor chain over an HTML document. Empty
// content means every extractor came up short.
func ExtractArticle(body []byte, pageURL string) (title, content string) {
	title, content = extractReadability(body, pageURL)
	if len([]rune(content)) >= minArticleChars {
		return title, content
	}
	gqTitle, gqContent := extractGoquery(body)
	if title == "" {
		title = gqTitle
	}
	if len([]rune(gqContent)) >= minArticleChars {
		return title, gqContent
	}
	reTitle, reContent := extractRegex(body)
	if title == "" {
		title = reTitle
	}
	switch {
	case reContent != "":
		return title, reContent
	case gqContent != "":
		return title, gqContent
	}
	return title, content
}

func extractReadability(body []byte, pageURL string) (string, string) {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return "", ""
	}
	md, err := htmltomarkdown.ConvertString(article.Content)
	if err != nil || strings.TrimSpace(md) == "" {
		md = article.TextContent
	}
	return strings.TrimSpace(article.Title), tidyText(md)
}

// extractGoquery picks the main content container after removing page chrome.
func extractGoquery(body []byte) (title, content string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
			title = strings.TrimSpace(og)
		}
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	removeSelectors := []string{
		"script", "style", "noscript", "iframe", "svg",
		"header", "footer", "nav", "aside",
		".advertisement", ".ad", ".sidebar", ".comments",
		"[role=navigation]", "[role=banner]", "[role=contentinfo]",
	}
	doc.Find(strings.Join(removeSelectors, ", ")).Remove()

	sel := doc.Find("article, main, .content, .post-content, .article-content, #content").First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	var paras []string
	sel.Find("h1, h2, h3, h4, p, li, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			paras = append(paras, t)
		}
	})
	if len(paras) == 0 {
		return title, tidyText(sel.Text())
	}
	return title, tidyText(strings.Join(paras, "\n\n"))
}

// extractRegex strips tags outright; last resort for markup goquery chokes on.
func extractRegex(body []byte) (title, content string) {
	html := string(body)
	if m := titleRe.FindStringSubmatch(html); len(m) > 1 {
		title = strings.TrimSpace(m[1])
	}
	if title == "" {
		if m := ogTitleRe.FindStringSubmatch(html); len(m) > 1 {
			title = strings.TrimSpace(m[1])
		}
	}
	html = noiseTagRe.ReplaceAllString(html, "")
	return title, tidyText(CleanHTML(html))
}

// tidyText collapses runs of spaces and blank lines.
func tidyText(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(wsRe.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(blankRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func limitContent(s string) string {
	if cfg.MaxContentChars <= 0 {
		return s
	}
	return TruncateRunes(s, cfg.MaxContentChars, "...")
}
