package vaultserver

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_vault/internal/engine"
	"github.com/anatolykoptev/go_vault/internal/engine/sources"
	"github.com/anatolykoptev/go_vault/internal/toolutil"
)

// kindLabels names each source kind in the note prompt.
var kindLabels = map[sources.Kind]string{
	sources.KindVideo: "video transcript",
	sources.KindWeb:   "web article",
	sources.KindPDF:   "PDF document",
	sources.KindFile:  "note file",
}

func (s *Server) registerIngestSource(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_source",
		Description: "Ingest any source into the vault: YouTube video (validated transcript), web article (readability extraction, GitHub READMEs and raw markdown), PDF (local or URL) or local .md/.txt file. Optionally generates a structured note with title, summary, key points and tags.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input IngestSourceInput) (*mcp.CallToolResult, *IngestSourceOutput, error) {
		out, err := s.ingest(ctx, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func (s *Server) ingest(ctx context.Context, input IngestSourceInput) (*IngestSourceOutput, error) {
	if strings.TrimSpace(input.Source) == "" {
		return nil, errors.New("source is required")
	}
	reqID := toolutil.NewRequestID()
	log := slog.With(slog.String("request_id", reqID), slog.String("source", input.Source))

	var c *sources.Content
	err := engine.TrackOperation(ctx, "ingest_source", func(ctx context.Context) error {
		var err error
		c, err = s.reader.Read(ctx, strings.TrimSpace(input.Source), toolutil.ProviderOrder(input.ProviderOrder))
		return err
	})
	if err != nil {
		log.Warn("ingest failed", slog.Any("error", err))
		return nil, err
	}
	log.Info("ingested", slog.String("kind", string(c.Kind)), slog.String("provider", c.Provider),
		slog.Int("chars", len(c.Text)))

	out := &IngestSourceOutput{RequestID: reqID, Content: *c}
	if !input.GenerateNote {
		return out, nil
	}

	note, err := engine.GenerateNote(ctx, kindLabels[c.Kind], c.Title, c.Source, c.Text)
	if err != nil {
		log.Warn("note generation failed", slog.Any("error", err))
		out.NoteError = err.Error()
		return out, nil
	}
	for _, t := range c.Tags {
		if !slices.Contains(note.Tags, t) {
			note.Tags = append(note.Tags, t)
		}
	}
	out.Note = note
	return out, nil
}

func (s *Server) registerReadArticle(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_article",
		Description: "Read a web page as clean markdown. Uses readability extraction with goquery and tag-stripping fallbacks, converts GitHub blob links to raw files, returns repository READMEs for GitHub repo links, and falls back to a hosted scraper when configured. Requests are rate limited per domain and cached.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ReadArticleInput) (*mcp.CallToolResult, *sources.Content, error) {
		if strings.TrimSpace(input.URL) == "" {
			return nil, nil, errors.New("url is required")
		}
		c, err := s.reader.FetchArticle(ctx, strings.TrimSpace(input.URL))
		if err != nil {
			return nil, nil, err
		}
		return nil, c, nil
	})
}
