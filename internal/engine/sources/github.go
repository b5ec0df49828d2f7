package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/anatolykoptev/go_vault/internal/engine"
)

// githubAPI is overridden in tests.
var githubAPI = "https://api.github.com"

// RepoMeta holds GitHub repository metadata from the REST API.
type RepoMeta struct {
	FullName      string   `json:"full_name"`
	Description   string   `json:"description"`
	Language      string   `json:"language"`
	Topics        []string `json:"topics"`
	DefaultBranch string   `json:"default_branch"`
	HTMLURL       string   `json:"html_url"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// repoRootRe matches a bare repository page: github.com/:owner/:repo[/].
var repoRootRe = regexp.MustCompile(`(?i)^https?://(?:www\.)?github\.com/([A-Za-z0-9._-]+)/([A-Za-z0-9._-]+)/?(?:[?#].*)?$`)

// RepoRoot extracts owner and repo from a repository's root URL. Deeper
// pages (issues, blobs) and site sections are rejected.
func RepoRoot(u string) (owner, repo string, ok bool) {
	m := repoRootRe.FindStringSubmatch(u)
	if m == nil {
		return "", "", false
	}
	repo = strings.TrimSuffix(m[2], ".git")
	for _, skip := range []string{"topics", "explore", "trending", "search", "settings", "notifications", "orgs", "sponsors"} {
		if strings.EqualFold(m[1], skip) {
			return "", "", false
		}
	}
	return m[1], repo, true
}

// FetchRepoMeta fetches repository metadata from GitHub REST API.
func FetchRepoMeta(ctx context.Context, owner, repo string) (*RepoMeta, error) {
	body, err := githubGet(ctx, fmt.Sprintf("%s/repos/%s/%s", githubAPI, owner, repo), "application/vnd.github+json")
	if err != nil {
		return nil, err
	}
	var meta RepoMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// FetchREADME returns the repository README as raw markdown.
func FetchREADME(ctx context.Context, owner, repo string) (string, error) {
	body, err := githubGet(ctx, fmt.Sprintf("%s/repos/%s/%s/readme", githubAPI, owner, repo), "application/vnd.github.raw")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// FetchRepoReadme reads a repository as content: README text, description
// as summary line, topics as tags.
func FetchRepoReadme(ctx context.Context, owner, repo string) (*Content, error) {
	readme, err := FetchREADME(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	if readme == "" {
		return nil, fmt.Errorf("%w: empty README for %s/%s", ErrNoText, owner, repo)
	}
	c := &Content{
		Kind:     KindWeb,
		Source:   fmt.Sprintf("https://github.com/%s/%s", owner, repo),
		Title:    owner + "/" + repo,
		Author:   owner,
		SiteName: "GitHub",
		Text:     readme,
		Provider: "github",
	}
	meta, err := FetchRepoMeta(ctx, owner, repo)
	if err != nil {
		slog.Debug("sources: repo metadata unavailable", slog.String("repo", c.Title), slog.Any("error", err))
		return c, nil
	}
	if meta.Description != "" {
		c.Title = c.Title + ": " + meta.Description
	}
	c.Tags = meta.Topics
	if meta.Language != "" {
		c.Tags = append(c.Tags, strings.ToLower(meta.Language))
	}
	return c, nil
}

func githubGet(ctx context.Context, u, accept string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout())
	defer cancel()

	client := engine.Cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github API status %d for %s", resp.StatusCode, u)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 5<<20))
}

func fetchTimeout() time.Duration {
	if d := engine.Cfg.FetchTimeout; d > 0 {
		return d
	}
	return 30 * time.Second
}
