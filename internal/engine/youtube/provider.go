package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ProviderName identifies a transcript provider. The set is closed.
type ProviderName string

const (
	ProviderDirect   ProviderName = "direct"
	ProviderSupadata ProviderName = "supadata"
	ProviderDecodo   ProviderName = "decodo"
)

// DefaultProviderOrder tries the free provider before the paid ones.
var DefaultProviderOrder = []ProviderName{ProviderDirect, ProviderSupadata, ProviderDecodo}

// Valid reports whether n is one of the known providers.
func (n ProviderName) Valid() bool {
	switch n {
	case ProviderDirect, ProviderSupadata, ProviderDecodo:
		return true
	}
	return false
}

// TranscriptProvider fetches caption text for a video id. Every failure is an
// *UnavailableError; raw transport and decode errors are wrapped, never returned.
type TranscriptProvider interface {
	Name() ProviderName
	FetchTranscript(ctx context.Context, videoID string) (Transcript, error)
}

// MetadataProvider looks up title and channel for a video id.
type MetadataProvider interface {
	FetchMetadata(ctx context.Context, videoID string) (Metadata, error)
}

func splitOrder(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseProviderOrder parses a comma-separated list such as "direct,supadata".
// Unknown names are skipped with a warning and duplicates are dropped. An empty
// result means "use the default order".
func ParseProviderOrder(s string) []ProviderName {
	var order []ProviderName
	seen := make(map[ProviderName]bool)
	for _, tok := range splitOrder(s) {
		name := ProviderName(tok)
		if !name.Valid() {
			slog.Warn("unknown transcript provider, skipping", slog.String("provider", tok))
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		order = append(order, name)
	}
	return order
}

// ParseProviderOrderStrict is ParseProviderOrder for startup configuration:
// any unknown name is an error.
func ParseProviderOrderStrict(s string) ([]ProviderName, error) {
	var unknown []string
	for _, tok := range splitOrder(s) {
		if !ProviderName(tok).Valid() {
			unknown = append(unknown, tok)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown transcript provider(s): %s (valid: direct, supadata, decodo)",
			strings.Join(unknown, ", "))
	}
	order := ParseProviderOrder(s)
	if len(order) == 0 {
		return append([]ProviderName(nil), DefaultProviderOrder...), nil
	}
	return order, nil
}
