package youtube

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// QualityConfig holds the thresholds of the transcript quality gate.
type QualityConfig struct {
	MinLength          int     // minimum stripped length in characters
	MinAvgWordLength   float64 // catches transcripts decoded into single-char fragments
	MaxRepetitionRatio float64 // share of the most frequent 3-word phrase
	RelevanceThreshold float64 // share of significant title words found in the text
}

// DefaultQuality is used by the acquisition client unless overridden.
var DefaultQuality = QualityConfig{
	MinLength:          100,
	MinAvgWordLength:   2.5,
	MaxRepetitionRatio: 0.10,
	RelevanceThreshold: 0.3,
}

var relevanceStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "vs": true, "big": true, "new": true,
}

// ValidateQuality returns a description of the first quality issue found in text,
// or "" when the transcript is acceptable. title is accepted for symmetry with
// CheckRelevance and is not inspected here.
func ValidateQuality(text, title string) string {
	return DefaultQuality.Validate(text, title)
}

// CheckRelevance reports whether text plausibly belongs to a video titled title.
func CheckRelevance(text, title string, threshold float64) bool {
	matched, total := titleOverlap(text, title)
	if total == 0 {
		return true
	}
	return float64(matched)/float64(total) >= threshold
}

// Validate is ValidateQuality with the receiver's thresholds.
func (q QualityConfig) Validate(text, _ string) string {
	stripped := strings.TrimSpace(text)
	if n := utf8.RuneCountInString(stripped); n < q.MinLength {
		return fmt.Sprintf("transcript too short (%d chars, minimum %d)", n, q.MinLength)
	}

	fields := strings.Fields(stripped)
	if len(fields) > 0 {
		var chars int
		for _, f := range fields {
			chars += utf8.RuneCountInString(f)
		}
		avg := float64(chars) / float64(len(fields))
		if avg < q.MinAvgWordLength {
			return fmt.Sprintf("transcript appears fragmented (avg word length: %.1f)", avg)
		}
	}

	phrase, count, total := mostFrequentTrigram(stripped)
	if total > 0 && float64(count) > float64(total)*q.MaxRepetitionRatio {
		return fmt.Sprintf("excessive repetition detected: %q appears %d times", phrase, count)
	}
	return ""
}

// Relevant is CheckRelevance with the receiver's threshold.
func (q QualityConfig) Relevant(text, title string) bool {
	return CheckRelevance(text, title, q.RelevanceThreshold)
}

// words splits s into case-folded runs of letters, digits and underscores.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// mostFrequentTrigram counts every overlapping 3-word phrase of s.
func mostFrequentTrigram(s string) (phrase string, count, total int) {
	w := words(s)
	if len(w) < 3 {
		return "", 0, 0
	}
	counts := make(map[string]int, len(w))
	for i := 0; i+3 <= len(w); i++ {
		p := w[i] + " " + w[i+1] + " " + w[i+2]
		counts[p]++
		total++
		if c := counts[p]; c > count || (c == count && p < phrase) {
			phrase, count = p, c
		}
	}
	return phrase, count, total
}

// titleOverlap returns how many significant title words occur in text.
func titleOverlap(text, title string) (matched, total int) {
	seen := make(map[string]bool)
	lower := strings.ToLower(text)
	for _, w := range words(title) {
		if utf8.RuneCountInString(w) <= 2 || relevanceStopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		total++
		if strings.Contains(lower, w) {
			matched++
		}
	}
	return matched, total
}
