package engine

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// domainLimiter spaces requests to the same host by at least delay.
type domainLimiter struct {
	mu       sync.Mutex
	delay    time.Duration
	limiters map[string]*rate.Limiter
}

var webLimiter = &domainLimiter{limiters: make(map[string]*rate.Limiter)}

func initRateLimiter(delay time.Duration) {
	webLimiter.mu.Lock()
	defer webLimiter.mu.Unlock()
	webLimiter.delay = delay
	webLimiter.limiters = make(map[string]*rate.Limiter)
}

func (d *domainLimiter) limiter(host string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.delay <= 0 {
		return nil
	}
	l, ok := d.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(d.delay), 1)
		d.limiters[host] = l
	}
	return l
}

// WaitDomain blocks until a request to rawURL's host is allowed.
// A zero WebRateDelay disables limiting.
func WaitDomain(ctx context.Context, rawURL string) error {
	host := domainOf(rawURL)
	l := webLimiter.limiter(host)
	if l == nil || host == "" {
		return nil
	}
	r := l.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	metrics.RateLimitWaits.Add(1)
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
