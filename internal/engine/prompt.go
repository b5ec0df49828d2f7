package engine

// LLM prompt templates, data only.

// notePrompt turns ingested content into a structured vault note.
// Args: source kind, title, source URL or path, content.
const notePrompt = `You are building a personal knowledge vault. Summarize the %s below into a note.

Respond with valid JSON only (no markdown, no ` + "`" + `json` + "`" + ` block):
{
  "title": "Short descriptive title",
  "summary": "3-5 sentence plain-text summary",
  "key_points": ["Specific takeaway as a complete sentence", "..."],
  "tags": ["lowercase-hyphenated-topic", "..."]
}

Rules:
- key_points: 3-8 items, concrete (names, numbers, commands), no filler
- tags: 3-6 items, lowercase, hyphen-separated, no '#'
- Write in the SAME LANGUAGE as the content
- Do NOT invent information that is not in the content

Title: %s
Source: %s

Content:
%s`
