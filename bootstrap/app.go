// Package bootstrap wires and verifies the gateway before serving: it
// checks the runtime version, loads configuration, builds the service
// graph, and owns the startup and shutdown sequences.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"agrigate/api"
	"agrigate/config"
	"agrigate/core"
	"agrigate/notify"
	"agrigate/service"
	"agrigate/util/goroutine"
	"agrigate/vulavula"

	"go.uber.org/zap"
)

// App represents the gateway application with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Components
	Cache         *core.RedisCache
	Upstream      *vulavula.Client
	Notifier      *notify.Notifier
	Analysis      *service.AnalysisService
	Transcription *service.TranscriptionService
	APIServer     *api.API

	// Lifecycle
	serviceWg  *sync.WaitGroup
	shutdownCh chan struct{}
}

// NewApp creates a new application instance. It runs the pre-flight
// verifier before returning: a runtime version mismatch or a failed
// load check yields a *VerifyError and no App.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{
		serviceWg:  &sync.WaitGroup{},
		shutdownCh: make(chan struct{}),
	}

	// Initialize logger
	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("agrigate AI gateway starting...")

	// Load configuration
	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	// Pre-flight verification: runtime version first, then the load
	// check that wires every component.
	verifier := &Verifier{
		DetectedRuntime: runtime.Version(),
		RequiredRuntime: cfg.Runtime.Required,
		Load:            app.load,
		Logger:          sugar,
	}
	if err := verifier.Run(ctx); err != nil {
		return nil, err
	}

	return app, nil
}

// load is the verifier's load check: it builds the full service graph
// and reports the first wiring failure. Optional components (cache,
// webhooks) degrade instead of failing.
func (a *App) load(ctx context.Context) error {
	cfg := a.Config

	// Language overrides
	if cfg.Languages.OverridePath != "" {
		if err := core.LoadLanguageOverrides(cfg.Languages.OverridePath); err != nil {
			return fmt.Errorf("failed to load language overrides: %w", err)
		}
		a.Sugar.Infow("Language overrides loaded", "path", cfg.Languages.OverridePath)
	}

	// Notifier
	webhooks := make([]notify.WebhookConfig, 0, len(cfg.Notify.Webhooks))
	for _, webhook := range cfg.Notify.Webhooks {
		webhooks = append(webhooks, notify.WebhookConfig{
			Enabled:     webhook.Enabled,
			URL:         webhook.URL,
			Method:      webhook.Method,
			Headers:     webhook.Headers,
			MinSeverity: webhook.MinSeverity,
		})
	}
	a.Notifier = notify.NewNotifier(webhooks, a.Sugar)

	// Upstream AI provider client
	a.Upstream = vulavula.NewClient(vulavula.Config{
		Token:      cfg.Lelapa.Token,
		BaseURL:    cfg.Lelapa.BaseURL,
		Timeout:    cfg.Lelapa.Timeout,
		MaxRetries: cfg.Lelapa.MaxRetries,
	}, a.Sugar)
	if !a.Upstream.Configured() {
		a.Sugar.Warn("AI provider token not configured; AI endpoints will return 503")
	}

	// Response cache (optional)
	if cfg.Cache.Enabled {
		cache := core.NewRedisCache(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.PoolSize, a.Sugar)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := cache.Ping(pingCtx)
		cancel()
		if err != nil {
			a.Sugar.Warnf("Response cache unavailable, continuing without it:\n%s",
				ClassifyConnectionError(err, cfg.Cache.Addr))
			_ = cache.Close()
		} else {
			a.Cache = cache
			a.Sugar.Infow("Response cache connected", "addr", cfg.Cache.Addr)
		}
	}

	breakerConfig := core.CircuitBreakerConfig{
		MaxFailures:         uint32(cfg.CircuitBreaker.MaxFailures),
		Timeout:             time.Duration(cfg.CircuitBreaker.TimeoutSeconds) * time.Second,
		MaxHalfOpenRequests: uint32(cfg.CircuitBreaker.MaxHalfOpenRequests),
	}

	// Analysis pipeline
	analysis, err := service.NewAnalysisService(a.Upstream, a.Cache, a.Notifier, service.AnalysisConfig{
		StepTimeout: cfg.Pipeline.StepTimeout,
		CacheTTL:    cfg.Cache.TTL,
		Breaker:     breakerConfig,
	}, a.Sugar)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis service: %w", err)
	}
	a.Analysis = analysis

	// Transcription
	transcription, err := service.NewTranscriptionService(a.Upstream, analysis, breakerConfig, a.Notifier, a.Sugar)
	if err != nil {
		return fmt.Errorf("failed to initialize transcription service: %w", err)
	}
	a.Transcription = transcription

	// API server
	a.APIServer = api.NewAPI(analysis, transcription, cfg, a.Sugar)

	return nil
}

// Start starts the API server.
func (a *App) Start(ctx context.Context) error {
	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		defer goroutine.Recover("api-server", a.Sugar)
		addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
		a.Sugar.Infof("API server started on %s", addr)

		if err := a.APIServer.Start(addr); err != nil && err.Error() != "http: Server closed" {
			a.Sugar.Errorf("API server error: %v", err)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	// Phase 1 - Stop accepting requests
	a.Sugar.Info("Phase 1: Stopping API server...")
	if a.APIServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
	}

	// Phase 2 - Wait for service goroutines
	a.Sugar.Info("Phase 2: Waiting for service goroutines to complete...")
	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.Sugar.Info("All service goroutines stopped successfully")
	case <-time.After(a.Config.Server.ShutdownTimeout + 10*time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	// Phase 3 - Close the cache connection
	a.Sugar.Info("Phase 3: Closing cache connection...")
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Sugar.Errorw("Failed to close cache connection", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
