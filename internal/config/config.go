// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Engine credentials and endpoints. Gemini backs the flash and pro tiers,
	// Groq backs the speed tier.
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	GeminiBaseURL  string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiFlash    string `env:"GEMINI_FLASH_MODEL" envDefault:"gemini-1.5-flash"`
	GeminiPro      string `env:"GEMINI_PRO_MODEL" envDefault:"gemini-1.5-pro"`
	GroqAPIKey     string `env:"GROQ_API_KEY"`
	GroqBaseURL    string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	GroqModel      string `env:"GROQ_MODEL" envDefault:"llama-3.1-70b-versatile"`
	SystemPrompt   string `env:"SYSTEM_PROMPT" envDefault:"You are a helpful assistant."`
	EngineTimeout  time.Duration `env:"ENGINE_TIMEOUT" envDefault:"30s"`
	EngineMaxTokens int          `env:"ENGINE_MAX_TOKENS" envDefault:"2000"`

	// Message validation bounds
	MaxMessageLength int `env:"MAX_MESSAGE_LENGTH" envDefault:"4000"`

	// Sliding-window rate limiting. RedisURL switches the limiter to the
	// shared Redis backend for multi-replica deployments; empty keeps the
	// in-process window.
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"30"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	RedisURL        string        `env:"REDIS_URL"`

	// Edge (per-IP) limit applied by middleware before the domain limiter.
	EdgeRateLimitPerMin int `env:"EDGE_RATE_LIMIT_PER_MIN" envDefault:"60"`

	// Admin endpoint credentials; the reset endpoint is disabled unless both
	// are present. AdminPasswordHash is a bcrypt hash.
	AdminUsername     string `env:"ADMIN_USERNAME"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	CORSAllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"chat-gateway"`

	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// Per-attempt retry tuning inside a single engine invocation.
	EngineBackoffMaxElapsedTime  time.Duration `env:"ENGINE_BACKOFF_MAX_ELAPSED_TIME" envDefault:"20s"`
	EngineBackoffInitialInterval time.Duration `env:"ENGINE_BACKOFF_INITIAL_INTERVAL" envDefault:"1s"`
	EngineBackoffMaxInterval     time.Duration `env:"ENGINE_BACKOFF_MAX_INTERVAL" envDefault:"8s"`
	EngineBackoffMultiplier      float64       `env:"ENGINE_BACKOFF_MULTIPLIER" envDefault:"2.0"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// AdminEnabled returns true if the admin reset endpoint should be mounted.
func (c Config) AdminEnabled() bool {
	return c.AdminUsername != "" && c.AdminPasswordHash != ""
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// EngineBackoff returns retry tuning appropriate for the current environment.
// Test environments use much shorter intervals for fast test execution.
func (c Config) EngineBackoff() (maxElapsedTime, initialInterval, maxInterval time.Duration, multiplier float64) {
	if c.IsTest() {
		return 2 * time.Second, 50 * time.Millisecond, 500 * time.Millisecond, 2.0
	}
	return c.EngineBackoffMaxElapsedTime, c.EngineBackoffInitialInterval, c.EngineBackoffMaxInterval, c.EngineBackoffMultiplier
}
