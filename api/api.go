// Package api exposes the AI gateway over HTTP: chat, text analysis,
// transcription, and audio analysis endpoints backed by the service
// layer, plus health, status, and metrics.
package api

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"agrigate/config"
	"agrigate/core"
	"agrigate/util/goroutine"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TextAnalyzer runs the text pipeline: chat, analysis, translation,
// and sentiment.
type TextAnalyzer interface {
	Configured() bool
	CacheHealthy(ctx context.Context) bool
	BreakerStates() map[string]core.CircuitBreakerState
	Chat(ctx context.Context, content, language string) (*core.AnalysisResult, error)
	AnalyzeText(ctx context.Context, content, language string) (*core.AnalysisResult, error)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Sentiment(ctx context.Context, text string) (*core.SentimentResult, error)
}

// AudioAnalyzer converts audio to text and runs audio analysis.
type AudioAnalyzer interface {
	BreakerState() core.CircuitBreakerState
	Transcribe(ctx context.Context, audio io.Reader, filename, language string) (*core.TranscriptionResult, error)
	AnalyzeAudio(ctx context.Context, audio io.Reader, filename, language string) (*core.AudioAnalysisResult, error)
}

// API holds the API server
type API struct {
	router         *mux.Router
	server         *http.Server
	analysis       TextAnalyzer
	transcription  AudioAnalyzer
	config         *config.Config
	logger         *zap.SugaredLogger
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	stopCh         chan struct{}
}

// NewAPI creates a new API server
func NewAPI(analysis TextAnalyzer, transcription AudioAnalyzer, config *config.Config, logger *zap.SugaredLogger) *API {
	api := &API{
		router:        mux.NewRouter(),
		analysis:      analysis,
		transcription: transcription,
		config:        config,
		logger:        logger,
		rateLimiters:  make(map[string]*rateLimiterEntry),
		stopCh:        make(chan struct{}),
	}
	api.setupRoutes()
	go func() {
		defer goroutine.Recover("rate-limiter-cleanup", api.logger)
		api.cleanupRateLimiters()
	}()
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.securityHeadersMiddleware)
	a.router.Use(a.corsMiddleware)
	a.router.Use(a.rateLimitMiddleware)
	a.router.Use(a.instrumentMiddleware)
	a.router.HandleFunc("/", a.getRoot).Methods("GET")
	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.HandleFunc("/api/ai-status", a.getAIStatus).Methods("GET")
	a.router.HandleFunc("/api/languages", a.getLanguages).Methods("GET")
	// OPTIONS is registered alongside POST so preflight requests reach
	// the CORS middleware; mux skips middleware on method mismatch.
	a.router.HandleFunc("/api/chat", a.postChat).Methods("POST", "OPTIONS")
	a.router.HandleFunc("/api/analyze-text", a.postAnalyzeText).Methods("POST", "OPTIONS")
	a.router.HandleFunc("/api/transcribe", a.postTranscribe).Methods("POST", "OPTIONS")
	a.router.HandleFunc("/api/analyze-audio", a.postAnalyzeAudio).Methods("POST", "OPTIONS")
	a.router.HandleFunc("/api/test-sentiment", a.getTestSentiment).Methods("GET")
	a.router.HandleFunc("/api/test-translation", a.getTestTranslation).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())
}

// Start starts the API server
func (a *API) Start(addr string) error {
	a.server = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
	return a.server.ListenAndServe()
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	close(a.stopCh)
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}
