package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageHTML = `<!DOCTYPE html>
<html><head><title>Rate Limits Explained</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Rate Limits Explained</h1>
<p>A token bucket refills at a constant rate and lets short bursts through while bounding the long run average. Each request takes a token and waits when the bucket is empty.</p>
<p>Per-host limiters keep a crawler polite. Requests to different hosts proceed independently so one slow site never stalls the rest of the queue.</p>
<p>Retries should back off exponentially and give up after a bounded number of attempts to avoid hammering a struggling upstream service.</p>
</article>
</body></html>`

func TestFetchArticleExtractsAndCaches(t *testing.T) {
	srv, hits := countingServer(t, "text/html", pageHTML)
	r := &Reader{}

	c, err := r.FetchArticle(context.Background(), srv.URL+"/post")
	require.NoError(t, err)
	assert.Equal(t, KindWeb, c.Kind)
	assert.Equal(t, "Rate Limits Explained", c.Title)
	assert.Equal(t, "extract", c.Provider)
	assert.Contains(t, c.Text, "token bucket")

	again, err := r.FetchArticle(context.Background(), srv.URL+"/post")
	require.NoError(t, err)
	assert.Equal(t, c.Text, again.Text)
	assert.EqualValues(t, 1, hits.Load(), "second read should come from cache")
}

func TestFetchArticlePlainMarkdown(t *testing.T) {
	srv, _ := countingServer(t, "text/markdown", "# Release Notes\n\n- faster startup\n")
	c, err := (&Reader{}).FetchArticle(context.Background(), srv.URL+"/CHANGELOG.md")
	require.NoError(t, err)
	assert.Equal(t, "raw", c.Provider)
	assert.Equal(t, "Release Notes", c.Title)
	assert.Contains(t, c.Text, "faster startup")
}

func TestFetchArticleScraperFallback(t *testing.T) {
	srv, _ := countingServer(t, "text/html", pageHTML)
	scraper := &stubScraper{title: "From Scraper", text: "  scraped markdown  "}

	c, err := (&Reader{Scraper: scraper}).FetchArticle(context.Background(), srv.URL+"/missing/page")
	require.NoError(t, err)
	assert.Equal(t, "scrape", c.Provider)
	assert.Equal(t, "From Scraper", c.Title)
	assert.Equal(t, "scraped markdown", c.Text)
}

func TestFetchArticleAllFail(t *testing.T) {
	srv, _ := countingServer(t, "text/html", pageHTML)
	scraper := &stubScraper{err: errors.New("quota exceeded")}

	_, err := (&Reader{Scraper: scraper}).FetchArticle(context.Background(), srv.URL+"/missing/gone")
	require.Error(t, err)
	assert.ErrorContains(t, err, "quota exceeded")
	assert.ErrorContains(t, err, "404")
}

func TestFetchArticleRejectsBadURL(t *testing.T) {
	_, err := (&Reader{}).FetchArticle(context.Background(), "not-a-url")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestRepoRoot(t *testing.T) {
	tests := []struct {
		url         string
		owner, repo string
		ok          bool
	}{
		{"https://github.com/golang/go", "golang", "go", true},
		{"https://github.com/owner/tool.git/", "owner", "tool", true},
		{"https://www.github.com/a/b?tab=readme", "a", "b", true},
		{"https://github.com/golang/go/issues/1", "", "", false},
		{"https://github.com/topics/golang", "", "", false},
		{"https://gitlab.com/a/b", "", "", false},
	}
	for _, tt := range tests {
		owner, repo, ok := RepoRoot(tt.url)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.owner, owner, tt.url)
		assert.Equal(t, tt.repo, repo, tt.url)
	}
}

func TestFetchRepoReadme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/vault/readme":
			assert.Equal(t, "application/vnd.github.raw", r.Header.Get("Accept"))
			fmt.Fprint(w, "# Vault\n\nA knowledge base.")
		case "/repos/acme/vault":
			fmt.Fprint(w, `{"full_name":"acme/vault","description":"Personal notes","language":"Go","topics":["notes","pkm"]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	prev := githubAPI
	githubAPI = srv.URL
	t.Cleanup(func() { githubAPI = prev })

	c, err := FetchRepoReadme(context.Background(), "acme", "vault")
	require.NoError(t, err)
	assert.Equal(t, "acme/vault: Personal notes", c.Title)
	assert.Equal(t, "https://github.com/acme/vault", c.Source)
	assert.Equal(t, []string{"notes", "pkm", "go"}, c.Tags)
	assert.Contains(t, c.Text, "A knowledge base.")

	_, err = FetchRepoReadme(context.Background(), "acme", "missing")
	assert.Error(t, err)
}
