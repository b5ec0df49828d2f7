package vaultserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_vault/internal/engine/sources"
	"github.com/anatolykoptev/go_vault/internal/engine/youtube"
)

// Server holds the collaborators the tools call into.
type Server struct {
	videos *youtube.Client
	reader *sources.Reader
}

// New builds the tool set over a video client and source reader.
func New(videos *youtube.Client, reader *sources.Reader) *Server {
	if reader == nil {
		reader = &sources.Reader{Videos: videos}
	}
	return &Server{videos: videos, reader: reader}
}

// RegisterTools registers all vault tools on the given MCP server:
// youtube_transcript, ingest_source, read_article, transcript_cache,
// circuit_breaker, validate_transcript.
func (s *Server) RegisterTools(server *mcp.Server) {
	s.registerYouTubeTranscript(server)
	s.registerIngestSource(server)
	s.registerReadArticle(server)
	s.registerTranscriptCache(server)
	s.registerCircuitBreaker(server)
	s.registerValidateTranscript(server)
}

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 6
