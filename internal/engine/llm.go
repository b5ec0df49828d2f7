package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrLLMNotConfigured is returned when note generation is requested without an LLM client.
var ErrLLMNotConfigured = errors.New("llm client not configured")

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CallLLM sends a prompt using the configured temperature and max_tokens.
func CallLLM(ctx context.Context, prompt string) (string, error) {
	if cfg.LLMClient == nil {
		return "", ErrLLMNotConfigured
	}
	metrics.LLMCalls.Add(1)
	resp, err := cfg.LLMClient.Complete(ctx, "", prompt)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}

// GenerateNote asks the LLM for a structured note about content. kind names
// the source type ("video transcript", "article", ...). Content longer than
// MaxContentChars runes is truncated.
func GenerateNote(ctx context.Context, kind, title, source, content string) (*Note, error) {
	if limit := cfg.MaxContentChars; limit > 0 {
		content = TruncateRunes(content, limit, "...")
	}
	prompt := fmt.Sprintf(notePrompt, kind, title, source, content)

	raw, err := CallLLM(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate note: %w", err)
	}
	note := parseNote(raw)
	if note.Title == "" {
		note.Title = title
	}
	return note, nil
}

// parseNote decodes the LLM answer. Output that is not a JSON note becomes
// the summary verbatim.
func parseNote(raw string) *Note {
	raw = stripFences(raw)
	var n Note
	if err := json.Unmarshal([]byte(raw), &n); err != nil || (n.Summary == "" && len(n.KeyPoints) == 0) {
		if answer := ExtractJSONField(raw, "summary"); answer != "" {
			return &Note{Summary: answer}
		}
		return &Note{Summary: raw}
	}
	for i, t := range n.Tags {
		n.Tags[i] = strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(t), "#"), " ", "-"))
	}
	return &n
}

// ExtractJSONField extracts a string field from malformed JSON
// where the value may contain unescaped newlines or special characters.
func ExtractJSONField(raw, field string) string {
	prefix := `"` + field + `"`
	idx := strings.Index(raw, prefix)
	if idx < 0 {
		return ""
	}
	rest := raw[idx+len(prefix):]
	rest = strings.TrimSpace(rest)
	if len(rest) == 0 || rest[0] != ':' {
		return ""
	}
	rest = strings.TrimSpace(rest[1:])
	if len(rest) == 0 || rest[0] != '"' {
		return ""
	}
	rest = rest[1:] // skip opening quote

	var sb strings.Builder
	for i := 0; i < len(rest); i++ {
		if rest[i] == '\\' && i+1 < len(rest) {
			if rest[i+1] == '"' {
				sb.WriteByte('"')
				i++
				continue
			}
			if rest[i+1] == 'n' {
				sb.WriteByte('\n')
				i++
				continue
			}
			sb.WriteByte(rest[i])
			continue
		}
		if rest[i] == '"' {
			return sb.String()
		}
		sb.WriteByte(rest[i])
	}
	return sb.String()
}
