package engine

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxFetchBytes caps a fetched page or raw file.
const maxFetchBytes = 10 << 20

// StatusError reports a non-200 response from a fetched URL.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("fetch %s: status %d", e.URL, e.Code) }

// IsNotFound reports whether err is a 404 from a fetch.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// newFetchClient creates an HTTP client with proper settings for web scraping.
func newFetchClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 15 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

var fetchClient = newFetchClient()

// fetchWithRetry performs a rate-limited HTTP GET with exponential backoff
// on transient statuses. isHTML controls Accept headers: HTML for web pages,
// text/plain for raw files.
func fetchWithRetry(ctx context.Context, fetchURL string, isHTML bool) (*http.Response, error) {
	operation := func() (*http.Response, error) {
		if err := WaitDomain(ctx, fetchURL); err != nil {
			return nil, backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		req.Header.Set("User-Agent", RandomUserAgent())
		if isHTML {
			req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
			req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		} else {
			req.Header.Set("Accept", "text/plain,*/*;q=0.9")
		}
		req.Header.Set("Accept-Encoding", "gzip")

		resp, err := fetchClient.Do(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if IsRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, &StatusError{URL: fetchURL, Code: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, backoff.Permanent(&StatusError{URL: fetchURL, Code: resp.StatusCode})
		}
		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3), backoff.WithMaxElapsedTime(30*time.Second))
}

// fetchBody GETs fetchURL and returns at most limit bytes of its decoded body.
func fetchBody(ctx context.Context, fetchURL string, isHTML bool, limit int64) ([]byte, error) {
	resp, err := fetchWithRetry(ctx, fetchURL, isHTML)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readResponseBody(resp, limit)
}

// readResponseBody reads the response body, handling gzip decompression if needed.
func readResponseBody(resp *http.Response, limit int64) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, limit))
}

// ErrTooLarge is returned by FetchBytes when the body exceeds its limit.
var ErrTooLarge = errors.New("response body too large")

// FetchBytes downloads fetchURL as binary, failing with ErrTooLarge when the
// body is longer than limit bytes.
func FetchBytes(ctx context.Context, fetchURL string, limit int64) ([]byte, error) {
	metrics.FetchRequests.Add(1)
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout())
	defer cancel()

	data, err := fetchBody(ctx, fetchURL, false, limit+1)
	if err == nil && int64(len(data)) > limit {
		err = fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, fetchURL, limit)
	}
	if err != nil {
		metrics.FetchErrors.Add(1)
		return nil, err
	}
	return data, nil
}

// fetchTimeout bounds a single fetch; defaults to 30s.
func fetchTimeout() time.Duration {
	if cfg.FetchTimeout > 0 {
		return cfg.FetchTimeout
	}
	return 30 * time.Second
}
