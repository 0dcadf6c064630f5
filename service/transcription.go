package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"agrigate/core"
	"agrigate/metrics"
	"agrigate/vulavula"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TranscriptionService converts uploaded audio to text and, for the
// audio analysis flow, feeds the transcription through the text
// pipeline.
type TranscriptionService struct {
	upstream Upstream
	analysis *AnalysisService
	breaker  *core.CircuitBreaker
	notifier SystemNotifier
	logger   *zap.SugaredLogger
}

// NewTranscriptionService creates the transcription service. notifier
// may be nil.
func NewTranscriptionService(upstream Upstream, analysis *AnalysisService, breakerConfig core.CircuitBreakerConfig, notifier SystemNotifier, logger *zap.SugaredLogger) (*TranscriptionService, error) {
	cb, err := core.NewCircuitBreaker(breakerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcribe circuit breaker: %w", err)
	}

	return &TranscriptionService{
		upstream: upstream,
		analysis: analysis,
		breaker:  cb,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// BreakerState returns the transcription circuit breaker state.
func (s *TranscriptionService) BreakerState() core.CircuitBreakerState {
	return s.breaker.State()
}

// Transcribe converts audio to text in the requested language.
func (s *TranscriptionService) Transcribe(ctx context.Context, audio io.Reader, filename, language string) (*core.TranscriptionResult, error) {
	if !core.STTSupported(language) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	if !s.upstream.Configured() {
		return nil, ErrUpstreamNotConfigured
	}

	langCode := core.STTCode(language)
	s.logger.Infow("Transcription request",
		"language", language,
		"lang_code", langCode,
		"filename", filename)

	if err := s.breaker.Allow(); err != nil {
		return nil, err
	}

	result, err := s.upstream.Transcribe(ctx, audio, filename, langCode)
	if err != nil {
		oldState, newState := s.breaker.RecordFailure()
		if oldState != newState && newState == core.CircuitBreakerStateOpen {
			metrics.CircuitBreakerTrips.WithLabelValues(vulavula.CapabilityTranscribe).Inc()
			s.logger.Errorw("Circuit breaker opened", "capability", vulavula.CapabilityTranscribe)
			if s.notifier != nil {
				if nerr := s.notifier.NotifySystemAlert(
					"AI provider circuit breaker opened",
					"Transcription is failing; requests will be rejected until the provider recovers",
					"high",
				); nerr != nil {
					s.logger.Warnw("Failed to send circuit breaker alert", "error", nerr)
				}
			}
		}
		if errors.Is(err, vulavula.ErrEmptyTranscription) {
			return nil, ErrEmptyTranscription
		}
		return nil, err
	}
	s.breaker.RecordSuccess()

	if result.Text == "" {
		return nil, ErrEmptyTranscription
	}
	if result.ID == "" {
		result.ID = "trans_" + uuid.NewString()
	}

	return result, nil
}

// AnalyzeAudio transcribes audio as English and runs the transcription
// through the text analysis pipeline, rendering the findings in the
// requested language.
func (s *TranscriptionService) AnalyzeAudio(ctx context.Context, audio io.Reader, filename, language string) (*core.AudioAnalysisResult, error) {
	if !core.STTSupported(language) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	// The analysis models work on English text, so audio is always
	// transcribed with the English STT model.
	transcription, err := s.Transcribe(ctx, audio, filename, core.English)
	if err != nil {
		return nil, err
	}

	english := transcription.Text
	sentiment, entities, timedOut := s.analysis.analyzeEnglish(ctx, english)

	analysis := core.ReplacementSentence
	if !timedOut {
		analysis = FormatAnalysisResults(sentiment, entities)
	}

	response := analysis
	if language != core.English {
		response = s.analysis.translateWithFallback(ctx, analysis, core.EnglishCode, core.TranslationCode(language))
	}

	return &core.AudioAnalysisResult{
		ID:        transcription.ID,
		Text:      english,
		Analysis:  response,
		Language:  language,
		Sentiment: sentiment,
		Entities:  entities,
	}, nil
}
