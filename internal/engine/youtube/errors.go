package youtube

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Callers match with errors.Is.
var (
	// ErrInvalidURL means no known video URL shape matched the input.
	ErrInvalidURL = errors.New("invalid youtube url")
	// ErrTranscriptUnavailable is wrapped by every acquisition failure after URL parsing.
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	// ErrLowQuality is additionally matched by quality and relevance rejections.
	ErrLowQuality = errors.New("transcript quality too low")
	// ErrProviderUnavailable is wrapped by every provider-level failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrNotFound is returned by stores for absent keys.
	ErrNotFound = errors.New("not found")
)

// UnavailableError is the only error a TranscriptProvider returns.
type UnavailableError struct {
	Provider ProviderName
	Reason   string
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil && e.Reason == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *UnavailableError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProviderUnavailable, e.Err}
	}
	return []error{ErrProviderUnavailable}
}

func unavailable(p ProviderName, format string, args ...any) *UnavailableError {
	return &UnavailableError{Provider: p, Reason: fmt.Sprintf(format, args...)}
}

func unavailableErr(p ProviderName, err error, format string, args ...any) *UnavailableError {
	return &UnavailableError{Provider: p, Reason: fmt.Sprintf(format, args...), Err: err}
}

// FailureKind classifies a TranscriptError.
type FailureKind string

const (
	FailureExhausted  FailureKind = "exhausted"
	FailureLowQuality FailureKind = "low_quality"
	FailureIrrelevant FailureKind = "irrelevant"
)

// TranscriptError is returned by Client.GetTranscript once a URL has been parsed
// but no validated transcript could be produced.
type TranscriptError struct {
	VideoID  string
	Kind     FailureKind
	Detail   string
	Failures []string // "{provider}: {message}", in attempt order
}

func (e *TranscriptError) Error() string {
	switch e.Kind {
	case FailureExhausted:
		return fmt.Sprintf("all providers failed for %s: %s", e.VideoID, strings.Join(e.Failures, "; "))
	case FailureIrrelevant:
		return fmt.Sprintf("content quality too low for %s: transcript does not match video title (%s)", e.VideoID, e.Detail)
	default:
		return fmt.Sprintf("content quality too low for %s: %s", e.VideoID, e.Detail)
	}
}

func (e *TranscriptError) Unwrap() []error {
	if e.Kind == FailureExhausted {
		return []error{ErrTranscriptUnavailable}
	}
	return []error{ErrTranscriptUnavailable, ErrLowQuality}
}
