package vaultserver

import (
	"github.com/anatolykoptev/go_vault/internal/engine"
	"github.com/anatolykoptev/go_vault/internal/engine/sources"
	"github.com/anatolykoptev/go_vault/internal/engine/youtube"
)

type YouTubeTranscriptInput struct {
	URL           string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, shorts, embed, live)"`
	ProviderOrder string `json:"provider_order,omitempty" jsonschema:"Comma-separated provider override: direct, supadata, decodo. Default: server configuration"`
}

type IngestSourceInput struct {
	Source        string `json:"source" jsonschema:"YouTube URL, web URL, PDF URL or path, or local .md/.txt file path"`
	ProviderOrder string `json:"provider_order,omitempty" jsonschema:"Transcript provider override for videos: direct, supadata, decodo"`
	GenerateNote  bool   `json:"generate_note,omitempty" jsonschema:"Ask the LLM for a structured note (title, summary, key points, tags)"`
}

type IngestSourceOutput struct {
	RequestID string          `json:"request_id"`
	Content   sources.Content `json:"content"`
	Note      *engine.Note    `json:"note,omitempty"`
	NoteError string          `json:"note_error,omitempty"`
}

type ReadArticleInput struct {
	URL string `json:"url" jsonschema:"Web page URL. GitHub blob and repository links are read as raw markdown"`
}

type TranscriptCacheInput struct {
	Action   string `json:"action,omitempty" jsonschema:"stats (default), invalidate, clear"`
	VideoURL string `json:"video_url,omitempty" jsonschema:"Video to invalidate (required for invalidate)"`
}

type TranscriptCacheOutput struct {
	Action      string              `json:"action"`
	Stats       *youtube.CacheStats `json:"stats,omitempty"`
	VideoID     string              `json:"video_id,omitempty"`
	Invalidated bool                `json:"invalidated,omitempty"`
	Removed     int                 `json:"removed,omitempty"`
}

type CircuitBreakerInput struct {
	Action string `json:"action,omitempty" jsonschema:"status (default) or reset"`
}

type CircuitBreakerOutput struct {
	Action         string              `json:"action"`
	State          youtube.BreakerMode `json:"state"`
	FailureCount   int                 `json:"failure_count"`
	Threshold      int                 `json:"failure_threshold"`
	TimeoutHours   float64             `json:"timeout_hours"`
	LastFailure    string              `json:"last_failure,omitempty"`
	OpenedAt       string              `json:"opened_at,omitempty"`
	RemainingHours *float64            `json:"time_remaining_hours,omitempty"`
}

type ValidateTranscriptInput struct {
	Text  string `json:"text" jsonschema:"Transcript text to check"`
	Title string `json:"title,omitempty" jsonschema:"Video title used for the relevance check"`
}

type ValidateTranscriptOutput struct {
	Valid    bool   `json:"valid"`
	Issue    string `json:"issue,omitempty"`
	Relevant bool   `json:"relevant"`
	Chars    int    `json:"chars"`
}
