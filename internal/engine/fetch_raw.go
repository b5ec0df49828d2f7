package engine

import (
	"context"
	"fmt"
	"strings"
)

// FetchRawContent fetches a URL as plain text (no readability extraction).
// Used for raw.githubusercontent.com and plain .md/.txt files.
func FetchRawContent(ctx context.Context, rawURL string) (string, error) {
	metrics.FetchRequests.Add(1)
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout())
	defer cancel()

	body, err := fetchBody(ctx, rawURL, false, maxFetchBytes)
	if err != nil {
		metrics.FetchErrors.Add(1)
		return "", err
	}
	return limitContent(strings.TrimSpace(string(body))), nil
}

// FetchRawContentWithFallback fetches a raw.githubusercontent.com URL.
// On 404 it tries: (1) alt branch (main↔master), (2) GitHub tree search by filename.
// On failure, includes the suggested correct URL(s) in the error message.
func FetchRawContentWithFallback(ctx context.Context, rawURL string) (string, error) {
	content, err := FetchRawContent(ctx, rawURL)
	if err == nil || !IsNotFound(err) {
		return content, err
	}

	m := rawGitHubRe.FindStringSubmatch(rawURL)
	if m == nil {
		return "", err
	}
	owner, repo, ref, filePath := m[1], m[2], m[3], m[4]

	if altRef := map[string]string{"main": "master", "master": "main"}[ref]; altRef != "" {
		altURL := rawGitHubURL(owner, repo, altRef, filePath)
		if c, altErr := FetchRawContent(ctx, altURL); altErr == nil {
			return c, nil
		}
	}

	filename := filePath[strings.LastIndex(filePath, "/")+1:]
	matches, searchErr := searchRepoTree(ctx, owner, repo, filename)
	if searchErr != nil || len(matches) == 0 {
		return "", fmt.Errorf("%w (file may have moved; could not locate it in repo tree)", err)
	}
	if c, fetchErr := FetchRawContent(ctx, rawGitHubURL(owner, repo, "HEAD", matches[0])); fetchErr == nil {
		return c, nil
	}

	var suggestions []string
	for _, p := range matches {
		suggestions = append(suggestions, rawGitHubURL(owner, repo, "HEAD", p))
	}
	return "", fmt.Errorf("%w (file moved; try: %s)", err, strings.Join(suggestions, " or "))
}
