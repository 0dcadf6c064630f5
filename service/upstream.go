package service

import (
	"context"
	"errors"
	"io"

	"agrigate/core"
)

// Upstream is the downstream AI provider boundary. The vulavula client
// implements it; tests substitute stubs.
type Upstream interface {
	// Configured reports whether an API credential is present.
	Configured() bool
	// Translate translates text between language codes.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	// GetSentiments runs sentiment analysis over English text.
	GetSentiments(ctx context.Context, text string) (*core.SentimentResult, error)
	// GetEntities extracts named entities from English text.
	GetEntities(ctx context.Context, text string) (*core.EntityResult, error)
	// Transcribe converts audio to text using the given STT code.
	Transcribe(ctx context.Context, audio io.Reader, filename, langCode string) (*core.TranscriptionResult, error)
}

// SystemNotifier receives operational alerts, e.g. when a capability's
// circuit breaker opens.
type SystemNotifier interface {
	NotifySystemAlert(title, message, severity string) error
}

var (
	// ErrEmptyContent is returned for blank request content.
	ErrEmptyContent = errors.New("content cannot be empty")
	// ErrUnsupportedLanguage is returned when the requested language has
	// no mapping.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrUpstreamNotConfigured is returned when no API credential is
	// available for the downstream provider.
	ErrUpstreamNotConfigured = errors.New("ai provider token not configured")
	// ErrEmptyTranscription is returned when transcription produced no
	// text.
	ErrEmptyTranscription = errors.New("transcription returned empty text")
)
