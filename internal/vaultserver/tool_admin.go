package vaultserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_vault/internal/engine/youtube"
	"github.com/anatolykoptev/go_vault/internal/toolutil"
)

func (s *Server) registerTranscriptCache(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_cache",
		Description: "Manage the transcript cache. Actions: stats (entry counts, TTL, backend), invalidate (drop one video, needs video_url), clear (drop everything).",
		Annotations: &mcp.ToolAnnotations{DestructiveHint: ptr(true)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TranscriptCacheInput) (*mcp.CallToolResult, *TranscriptCacheOutput, error) {
		out, err := s.cacheAdmin(ctx, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func (s *Server) cacheAdmin(ctx context.Context, input TranscriptCacheInput) (*TranscriptCacheOutput, error) {
	if s.videos == nil {
		return nil, errors.New("video client not configured")
	}
	cache := s.videos.Cache()
	out := &TranscriptCacheOutput{Action: toolutil.NormAction(input.Action, "stats")}

	switch out.Action {
	case "stats":
		st, err := cache.Stats(ctx)
		if err != nil {
			return nil, err
		}
		out.Stats = &st
	case "invalidate":
		if input.VideoURL == "" {
			return nil, errors.New("video_url is required for invalidate")
		}
		id, err := youtube.ParseVideoID(input.VideoURL)
		if err != nil {
			return nil, err
		}
		ok, err := cache.Invalidate(ctx, id)
		if err != nil {
			return nil, err
		}
		out.VideoID, out.Invalidated = id, ok
	case "clear":
		n, err := cache.Clear(ctx)
		if err != nil {
			return nil, err
		}
		out.Removed = n
		slog.Info("transcript cache cleared", slog.Int("removed", n))
	default:
		return nil, fmt.Errorf("unknown action %q (want stats, invalidate or clear)", input.Action)
	}
	return out, nil
}

func (s *Server) registerCircuitBreaker(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "circuit_breaker",
		Description: "Inspect or reset the circuit breaker guarding the direct YouTube scraper. Actions: status (state, failure count, threshold, time until retry), reset (force closed).",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input CircuitBreakerInput) (*mcp.CallToolResult, *CircuitBreakerOutput, error) {
		out, err := s.breakerAdmin(input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func (s *Server) breakerAdmin(input CircuitBreakerInput) (*CircuitBreakerOutput, error) {
	if s.videos == nil {
		return nil, errors.New("video client not configured")
	}
	b := s.videos.Breaker()
	action := toolutil.NormAction(input.Action, "status")
	switch action {
	case "status":
	case "reset":
		if err := b.Reset(); err != nil {
			return nil, err
		}
		slog.Info("circuit breaker reset")
	default:
		return nil, fmt.Errorf("unknown action %q (want status or reset)", input.Action)
	}
	return breakerOutput(action, b.Stats()), nil
}

func breakerOutput(action string, st youtube.BreakerStats) *CircuitBreakerOutput {
	out := &CircuitBreakerOutput{
		Action:         action,
		State:          st.State,
		FailureCount:   st.FailureCount,
		Threshold:      st.Threshold,
		TimeoutHours:   st.TimeoutHours,
		RemainingHours: st.RemainingHours,
	}
	if st.LastFailure != nil {
		out.LastFailure = st.LastFailure.Format(time.RFC3339)
	}
	if st.OpenedAt != nil {
		out.OpenedAt = st.OpenedAt.Format(time.RFC3339)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
