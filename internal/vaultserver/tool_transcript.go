package vaultserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_vault/internal/engine/youtube"
	"github.com/anatolykoptev/go_vault/internal/toolutil"
)

func (s *Server) registerYouTubeTranscript(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch a validated transcript for a YouTube video. Tries a cache, then transcript providers in order (direct scrape guarded by a circuit breaker, Supadata, Decodo), rejects short, garbled or off-topic transcripts. Returns title, channel, language, provider used and transcript text.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input YouTubeTranscriptInput) (*mcp.CallToolResult, *youtube.VideoResult, error) {
		out, err := s.transcript(ctx, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func (s *Server) transcript(ctx context.Context, input YouTubeTranscriptInput) (*youtube.VideoResult, error) {
	if strings.TrimSpace(input.URL) == "" {
		return nil, errors.New("url is required")
	}
	if s.videos == nil {
		return nil, errors.New("video client not configured")
	}
	res, err := s.videos.GetTranscript(ctx, input.URL, toolutil.ProviderOrder(input.ProviderOrder))
	if err != nil {
		slog.Warn("youtube_transcript failed", slog.String("url", input.URL), slog.Any("error", err))
		return nil, err
	}
	return &res, nil
}

func (s *Server) registerValidateTranscript(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_transcript",
		Description: "Check transcript text with the same quality gate used for fetched transcripts: minimum length, average word length, repeated-phrase ratio, and title relevance.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, input ValidateTranscriptInput) (*mcp.CallToolResult, *ValidateTranscriptOutput, error) {
		return nil, s.validate(input), nil
	})
}

func (s *Server) validate(input ValidateTranscriptInput) *ValidateTranscriptOutput {
	q := youtube.DefaultQuality
	if s.videos != nil {
		q = s.videos.Quality()
	}
	issue := q.Validate(input.Text, input.Title)
	relevant := q.Relevant(input.Text, input.Title)
	return &ValidateTranscriptOutput{
		Valid:    issue == "" && relevant,
		Issue:    issue,
		Relevant: relevant,
		Chars:    len([]rune(strings.TrimSpace(input.Text))),
	}
}
