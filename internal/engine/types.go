package engine

// Note is the structured summary the LLM produces for an ingested source.
type Note struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}
