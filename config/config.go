// Package config loads gateway configuration from config.yaml and
// environment variables via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Webhook describes a notification webhook destination.
type Webhook struct {
	Enabled     bool              `mapstructure:"enabled"`
	URL         string            `mapstructure:"url"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	MinSeverity string            `mapstructure:"min_severity"`
}

// Config holds all configuration for the gateway.
type Config struct {
	// Runtime is the bootstrap verifier's requirement: the Go runtime
	// the binary must be running under, as a major.minor version
	// ("go1.24"). Patch releases within the minor are accepted.
	Runtime struct {
		Required string `mapstructure:"required"`
	} `mapstructure:"runtime"`

	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Lelapa struct {
		// Token is the API credential. Usually supplied via the
		// AGRIGATE_LELAPA_API_TOKEN (or legacy LELAPA_API_TOKEN)
		// environment variable rather than the config file.
		Token      string        `mapstructure:"token"`
		BaseURL    string        `mapstructure:"base_url"`
		Timeout    time.Duration `mapstructure:"timeout"`
		MaxRetries int           `mapstructure:"max_retries"`
	} `mapstructure:"lelapa"`

	Pipeline struct {
		// StepTimeout bounds each analysis pipeline step; expired steps
		// fall back instead of failing the request.
		StepTimeout time.Duration `mapstructure:"step_timeout"`
	} `mapstructure:"pipeline"`

	Cache struct {
		Enabled  bool          `mapstructure:"enabled"`
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		PoolSize int           `mapstructure:"pool_size"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`

	API struct {
		// AllowedOrigins for CORS; "*" admits any origin.
		AllowedOrigins []string `mapstructure:"allowed_origins"`
		// JSONBodyLimit bounds JSON request bodies in bytes.
		JSONBodyLimit int64 `mapstructure:"json_body_limit"`
		// MaxAudioBytes bounds uploaded audio files in bytes.
		MaxAudioBytes int64 `mapstructure:"max_audio_bytes"`
		RateLimit     struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			Burst             int `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	CircuitBreaker struct {
		MaxFailures         int `mapstructure:"max_failures"`
		TimeoutSeconds      int `mapstructure:"timeout_seconds"`
		MaxHalfOpenRequests int `mapstructure:"max_half_open_requests"`
	} `mapstructure:"circuit_breaker"`

	Notify struct {
		Webhooks []Webhook `mapstructure:"webhooks"`
	} `mapstructure:"notify"`

	Languages struct {
		// OverridePath points to an optional YAML file with custom
		// language mappings merged over the built-in maps.
		OverridePath string `mapstructure:"override_path"`
	} `mapstructure:"languages"`
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("runtime.required", "go1.24")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", 5*time.Second)

	viper.SetDefault("lelapa.base_url", "")
	viper.SetDefault("lelapa.timeout", 30*time.Second)
	viper.SetDefault("lelapa.max_retries", 3)

	viper.SetDefault("pipeline.step_timeout", 3*time.Second)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.addr", "localhost:6379")
	viper.SetDefault("cache.password", "")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.ttl", 15*time.Minute)

	// The original deployment served browser frontends from arbitrary
	// hosts; keep the permissive default and let operators narrow it.
	viper.SetDefault("api.allowed_origins", []string{"*"})
	viper.SetDefault("api.json_body_limit", 1048576)      // 1MB
	viper.SetDefault("api.max_audio_bytes", 10*1024*1024) // 10MB
	viper.SetDefault("api.rate_limit.requests_per_second", 50)
	viper.SetDefault("api.rate_limit.burst", 100)

	viper.SetDefault("circuit_breaker.max_failures", 5)
	viper.SetDefault("circuit_breaker.timeout_seconds", 60)
	viper.SetDefault("circuit_breaker.max_half_open_requests", 1)

	viper.SetDefault("languages.override_path", "")
}

// loadFromEnv sets up environment variable loading.
func loadFromEnv() {
	viper.SetEnvPrefix("AGRIGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("runtime.required", "AGRIGATE_REQUIRED_RUNTIME")
	// The token accepts both the prefixed name and the legacy variable
	// used by earlier deployments.
	_ = viper.BindEnv("lelapa.token", "AGRIGATE_LELAPA_API_TOKEN", "LELAPA_API_TOKEN")
	_ = viper.BindEnv("cache.addr", "AGRIGATE_CACHE_ADDR")
	_ = viper.BindEnv("cache.password", "AGRIGATE_CACHE_PASSWORD")
}

// validateConfig checks configuration invariants.
func validateConfig(config *Config) error {
	if config.Runtime.Required == "" {
		return fmt.Errorf("runtime.required must not be empty")
	}
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", config.Server.Port)
	}
	if config.Pipeline.StepTimeout <= 0 {
		return fmt.Errorf("pipeline.step_timeout must be positive")
	}
	if config.Lelapa.MaxRetries < 1 {
		return fmt.Errorf("lelapa.max_retries must be at least 1")
	}
	if config.API.JSONBodyLimit <= 0 {
		return fmt.Errorf("api.json_body_limit must be positive")
	}
	if config.API.MaxAudioBytes <= 0 {
		return fmt.Errorf("api.max_audio_bytes must be positive")
	}
	if config.API.RateLimit.RequestsPerSecond < 1 {
		return fmt.Errorf("api.rate_limit.requests_per_second must be at least 1")
	}
	if config.API.RateLimit.Burst < config.API.RateLimit.RequestsPerSecond {
		return fmt.Errorf("api.rate_limit.burst must be at least requests_per_second")
	}
	if config.CircuitBreaker.MaxFailures < 1 {
		return fmt.Errorf("circuit_breaker.max_failures must be at least 1")
	}
	if config.CircuitBreaker.TimeoutSeconds < 1 {
		return fmt.Errorf("circuit_breaker.timeout_seconds must be at least 1")
	}
	if config.CircuitBreaker.MaxHalfOpenRequests < 1 {
		return fmt.Errorf("circuit_breaker.max_half_open_requests must be at least 1")
	}
	for i, webhook := range config.Notify.Webhooks {
		if webhook.Enabled && webhook.URL == "" {
			return fmt.Errorf("notify.webhooks[%d]: enabled webhook must have a url", i)
		}
	}
	return nil
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}
