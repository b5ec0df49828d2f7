// Package toolutil provides shared helper functions for go_vault MCP tools.
package toolutil

import (
	"strings"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_vault/internal/engine/youtube"
)

// NormAction lowercases and trims an action field, substituting def when empty.
func NormAction(action, def string) string {
	a := strings.ToLower(strings.TrimSpace(action))
	if a == "" {
		return def
	}
	return a
}

// ProviderOrder parses a per-call provider override. Unknown names are
// dropped with a warning; nil means "use the configured order".
func ProviderOrder(s string) []youtube.ProviderName {
	return youtube.ParseProviderOrder(s)
}

// NewRequestID returns a short random id used to correlate tool logs.
func NewRequestID() string {
	return uuid.NewString()[:8]
}
