// Package service orchestrates the analysis pipelines over the
// downstream AI provider: translation pivoting, parallel sentiment and
// entity analysis, response caching, and circuit breaker protection.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrigate/core"
	"agrigate/metrics"
	"agrigate/vulavula"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// translationMemoSize bounds the in-process translation memo. Entries
// are small (text in, text out) so a few thousand is cheap.
const translationMemoSize = 4096

// AnalysisConfig holds tuning for the analysis pipeline.
type AnalysisConfig struct {
	// StepTimeout bounds each pipeline step (translate, analyze,
	// translate back). Steps that exceed it fall back instead of
	// failing the request.
	StepTimeout time.Duration
	// CacheTTL is the Redis response cache TTL.
	CacheTTL time.Duration
	// Breaker configures the per-capability circuit breakers.
	Breaker core.CircuitBreakerConfig
}

// DefaultAnalysisConfig mirrors the production defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		StepTimeout: 3 * time.Second,
		CacheTTL:    15 * time.Minute,
		Breaker:     core.DefaultCircuitBreakerConfig(),
	}
}

// AnalysisService runs the text analysis pipeline: translate the input
// to English, analyze sentiment and entities in parallel, format the
// findings, and translate them back to the requested language.
type AnalysisService struct {
	upstream Upstream
	cache    *core.RedisCache
	memo     *lru.Cache[string, string]
	breakers map[string]*core.CircuitBreaker
	notifier SystemNotifier
	logger   *zap.SugaredLogger
	config   AnalysisConfig
}

// NewAnalysisService creates the analysis service. cache and notifier
// may be nil; the service degrades to pass-through and silent breaker
// trips respectively.
func NewAnalysisService(upstream Upstream, cache *core.RedisCache, notifier SystemNotifier, config AnalysisConfig, logger *zap.SugaredLogger) (*AnalysisService, error) {
	memo, err := lru.New[string, string](translationMemoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation memo: %w", err)
	}

	breakers := make(map[string]*core.CircuitBreaker)
	for _, capability := range []string{vulavula.CapabilityTranslate, vulavula.CapabilitySentiment, vulavula.CapabilityEntities} {
		cb, err := core.NewCircuitBreaker(config.Breaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s circuit breaker: %w", capability, err)
		}
		breakers[capability] = cb
	}

	return &AnalysisService{
		upstream: upstream,
		cache:    cache,
		memo:     memo,
		breakers: breakers,
		notifier: notifier,
		logger:   logger,
		config:   config,
	}, nil
}

// BreakerStates returns the current circuit breaker state per
// capability, for the ai-status endpoint.
func (s *AnalysisService) BreakerStates() map[string]core.CircuitBreakerState {
	states := make(map[string]core.CircuitBreakerState, len(s.breakers))
	for capability, cb := range s.breakers {
		states[capability] = cb.State()
	}
	return states
}

// Configured reports whether the upstream credential is present.
func (s *AnalysisService) Configured() bool {
	return s.upstream.Configured()
}

// CacheHealthy reports response cache reachability. Returns true when
// no cache is configured since the gateway runs fine without one.
func (s *AnalysisService) CacheHealthy(ctx context.Context) bool {
	if s.cache == nil {
		return true
	}
	return s.cache.Ping(ctx) == nil
}

// guard runs fn behind the capability's circuit breaker, recording the
// outcome and alerting on the closed-to-open transition.
func (s *AnalysisService) guard(capability string, fn func() error) error {
	cb := s.breakers[capability]
	if err := cb.Allow(); err != nil {
		return err
	}

	if err := fn(); err != nil {
		oldState, newState := cb.RecordFailure()
		if oldState != newState && newState == core.CircuitBreakerStateOpen {
			metrics.CircuitBreakerTrips.WithLabelValues(capability).Inc()
			s.logger.Errorw("Circuit breaker opened", "capability", capability)
			if s.notifier != nil {
				if nerr := s.notifier.NotifySystemAlert(
					"AI provider circuit breaker opened",
					fmt.Sprintf("Capability %q is failing; requests will be rejected until the provider recovers", capability),
					"high",
				); nerr != nil {
					s.logger.Warnw("Failed to send circuit breaker alert", "error", nerr)
				}
			}
		}
		return err
	}

	cb.RecordSuccess()
	return nil
}

// Translate translates text between language codes, consulting the
// in-process memo and the Redis cache before calling upstream.
func (s *AnalysisService) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}

	key := core.TranslateCacheKey(text, sourceLang, targetLang)
	if translated, ok := s.memo.Get(key); ok {
		return translated, nil
	}
	if s.cache != nil {
		var translated string
		if ok, err := s.cache.Get(ctx, key, &translated); err == nil && ok {
			s.memo.Add(key, translated)
			return translated, nil
		}
	}

	var translated string
	err := s.guard(vulavula.CapabilityTranslate, func() error {
		var err error
		translated, err = s.upstream.Translate(ctx, text, sourceLang, targetLang)
		return err
	})
	if err != nil {
		return "", err
	}

	s.memo.Add(key, translated)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, translated, s.config.CacheTTL); err != nil {
			s.logger.Debugw("Failed to cache translation", "error", err)
		}
	}

	return translated, nil
}

// translateWithFallback translates within the step budget, returning
// the original text on timeout or failure. Translation is best-effort
// everywhere in the pipeline.
func (s *AnalysisService) translateWithFallback(ctx context.Context, text, sourceLang, targetLang string) string {
	stepCtx, cancel := context.WithTimeout(ctx, s.config.StepTimeout)
	defer cancel()

	translated, err := s.Translate(stepCtx, text, sourceLang, targetLang)
	if err != nil {
		s.logger.Warnw("Translation failed, using untranslated text",
			"source_lang", sourceLang,
			"target_lang", targetLang,
			"error", err)
		return text
	}
	return translated
}

// Sentiment runs cached, breaker-guarded sentiment analysis.
func (s *AnalysisService) Sentiment(ctx context.Context, text string) (*core.SentimentResult, error) {
	key := core.SentimentCacheKey(text)
	if s.cache != nil {
		var cached core.SentimentResult
		if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	var result *core.SentimentResult
	err := s.guard(vulavula.CapabilitySentiment, func() error {
		var err error
		result, err = s.upstream.GetSentiments(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.config.CacheTTL); err != nil {
			s.logger.Debugw("Failed to cache sentiment result", "error", err)
		}
	}
	return result, nil
}

// Entities runs cached, breaker-guarded entity recognition.
func (s *AnalysisService) Entities(ctx context.Context, text string) (*core.EntityResult, error) {
	key := core.EntitiesCacheKey(text)
	if s.cache != nil {
		var cached core.EntityResult
		if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	var result *core.EntityResult
	err := s.guard(vulavula.CapabilityEntities, func() error {
		var err error
		result, err = s.upstream.GetEntities(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.config.CacheTTL); err != nil {
			s.logger.Debugw("Failed to cache entity result", "error", err)
		}
	}
	return result, nil
}

// analyzeEnglish runs sentiment and entity analysis in parallel with a
// shared step budget. Individual failures yield nil results rather than
// errors. timedOut is true only when the budget expired with nothing
// produced; a partial result that beat the deadline is kept and
// formatted.
func (s *AnalysisService) analyzeEnglish(ctx context.Context, english string) (sentiment *core.SentimentResult, entities *core.EntityResult, timedOut bool) {
	stepCtx, cancel := context.WithTimeout(ctx, s.config.StepTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(stepCtx)
	g.Go(func() error {
		result, err := s.Sentiment(gctx, english)
		if err != nil {
			s.logger.Warnw("Sentiment analysis failed", "error", err)
			return nil
		}
		sentiment = result
		return nil
	})
	g.Go(func() error {
		result, err := s.Entities(gctx, english)
		if err != nil {
			s.logger.Warnw("Entity recognition failed", "error", err)
			return nil
		}
		entities = result
		return nil
	})

	_ = g.Wait()

	if stepCtx.Err() != nil && sentiment == nil && entities == nil {
		return nil, nil, true
	}
	return sentiment, entities, false
}

// AnalyzeText runs the full text pipeline for content in the given
// language and returns the analysis translated back to that language.
func (s *AnalysisService) AnalyzeText(ctx context.Context, content, language string) (*core.AnalysisResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if !core.TranslationSupported(language) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	if !s.upstream.Configured() {
		return nil, ErrUpstreamNotConfigured
	}

	sourceCode := core.TranslationCode(language)

	// Step 1: pivot to English.
	english := content
	if sourceCode != core.EnglishCode {
		english = s.translateWithFallback(ctx, content, sourceCode, core.EnglishCode)
	}

	// Step 2: sentiment and entities in parallel.
	sentiment, entities, timedOut := s.analyzeEnglish(ctx, english)

	// Step 3: format findings, or the replacement sentence on timeout.
	analysis := core.ReplacementSentence
	if !timedOut {
		analysis = FormatAnalysisResults(sentiment, entities)
	}

	// Step 4: translate the findings back.
	response := analysis
	if language != core.English {
		response = s.translateWithFallback(ctx, analysis, core.EnglishCode, sourceCode)
	}

	return &core.AnalysisResult{
		ID:        "analysis_" + uuid.NewString(),
		Content:   response,
		Language:  language,
		Sentiment: sentiment,
		Entities:  entities,
	}, nil
}

// Chat answers a chat request. The reply is the analysis of the
// message, rendered in the requested language.
func (s *AnalysisService) Chat(ctx context.Context, content, language string) (*core.AnalysisResult, error) {
	result, err := s.AnalyzeText(ctx, content, language)
	if err != nil {
		return nil, err
	}
	result.ID = "chat_" + uuid.NewString()
	return result, nil
}
