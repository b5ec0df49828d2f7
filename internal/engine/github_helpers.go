package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
)

var (
	// githubBlobRe matches github.com/:owner/:repo/blob/:ref/:path
	githubBlobRe = regexp.MustCompile(`^https?://github\.com/([^/]+/[^/]+)/blob/([^/]+)/(.+)$`)
	// rawGitHubRe matches raw.githubusercontent.com/:owner/:repo/:ref/:path
	rawGitHubRe = regexp.MustCompile(`^https?://raw\.githubusercontent\.com/([^/]+)/([^/]+)/([^/]+)/(.+)$`)
)

// Overridden in tests.
var (
	githubAPIBase = "https://api.github.com"
	githubRawBase = "https://raw.githubusercontent.com"
)

// GithubRawURL converts a GitHub blob URL to raw.githubusercontent.com.
// Non-GitHub URLs are returned unchanged.
func GithubRawURL(u string) string {
	m := githubBlobRe.FindStringSubmatch(u)
	if m == nil {
		return u
	}
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", m[1], m[2], m[3])
}

// IsRawGitHubURL returns true for raw.githubusercontent.com URLs.
func IsRawGitHubURL(u string) bool {
	return rawGitHubRe.MatchString(u)
}

// IsPlainTextURL reports whether u points at a markdown or text file that
// needs no HTML extraction.
func IsPlainTextURL(u string) bool {
	if IsRawGitHubURL(u) {
		return true
	}
	p := u
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

func rawGitHubURL(owner, repo, ref, filePath string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", githubRawBase, owner, repo, ref, filePath)
}

// searchRepoTree returns all blob paths in the repo whose basename matches filename.
func searchRepoTree(ctx context.Context, owner, repo, filename string) ([]string, error) {
	treeURL := fmt.Sprintf("%s/repos/%s/%s/git/trees/HEAD?recursive=1", githubAPIBase, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, treeURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgentBot)
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tree API: status %d", resp.StatusCode)
	}
	var tree struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"tree"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		return nil, err
	}
	var matches []string
	for _, item := range tree.Tree {
		if item.Type == "blob" && path.Base(item.Path) == filename {
			matches = append(matches, item.Path)
		}
	}
	return matches, nil
}
