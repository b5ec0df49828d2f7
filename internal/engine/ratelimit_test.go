package engine

import (
	"context"
	"testing"
	"time"
)

func TestWaitDomainSpacesSameHost(t *testing.T) {
	initRateLimiter(50 * time.Millisecond)
	t.Cleanup(func() { initRateLimiter(0) })
	ctx := context.Background()

	start := time.Now()
	if err := WaitDomain(ctx, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := WaitDomain(ctx, "https://example.com/b"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("second request to same host waited only %v", elapsed)
	}
}

func TestWaitDomainIndependentHosts(t *testing.T) {
	initRateLimiter(time.Second)
	t.Cleanup(func() { initRateLimiter(0) })
	ctx := context.Background()

	start := time.Now()
	_ = WaitDomain(ctx, "https://a.example.com/")
	_ = WaitDomain(ctx, "https://b.example.com/")
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("different hosts should not wait, took %v", elapsed)
	}
}

func TestWaitDomainCancelled(t *testing.T) {
	initRateLimiter(time.Hour)
	t.Cleanup(func() { initRateLimiter(0) })

	_ = WaitDomain(context.Background(), "https://slow.example.com/")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := WaitDomain(ctx, "https://slow.example.com/again"); err == nil {
		t.Error("expected context error")
	}
}

func TestWaitDomainDisabled(t *testing.T) {
	initRateLimiter(0)
	for range 5 {
		if err := WaitDomain(context.Background(), "https://example.com/"); err != nil {
			t.Fatal(err)
		}
	}
}
