// Command server starts the chat gateway HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kizilabs/chat-gateway/internal/adapter/engine/gemini"
	"github.com/kizilabs/chat-gateway/internal/adapter/engine/groq"
	"github.com/kizilabs/chat-gateway/internal/adapter/engine/stub"
	httpserver "github.com/kizilabs/chat-gateway/internal/adapter/httpserver"
	"github.com/kizilabs/chat-gateway/internal/adapter/observability"
	"github.com/kizilabs/chat-gateway/internal/app"
	"github.com/kizilabs/chat-gateway/internal/config"
	"github.com/kizilabs/chat-gateway/internal/domain"
	"github.com/kizilabs/chat-gateway/internal/service/behavior"
	"github.com/kizilabs/chat-gateway/internal/service/dispatch"
	"github.com/kizilabs/chat-gateway/internal/service/ratelimiter"
	"github.com/kizilabs/chat-gateway/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, engine, and pipeline instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Rate limiter: shared Redis window when configured, otherwise in-process.
	var limiter ratelimiter.Limiter
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		rdb = redis.NewClient(opts)
		limiter = ratelimiter.NewRedisLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
		slog.Info("rate limiter using redis", slog.Int("max", cfg.RateLimitMax), slog.Duration("window", cfg.RateLimitWindow))
	} else {
		limiter = ratelimiter.NewKeyed(cfg.RateLimitMax, cfg.RateLimitWindow)
		slog.Info("rate limiter in-process", slog.Int("max", cfg.RateLimitMax), slog.Duration("window", cfg.RateLimitWindow))
	}

	registry, err := dispatch.NewRegistry(buildEngines(cfg)...)
	if err != nil {
		slog.Error("engine registry", slog.Any("error", err))
		os.Exit(1)
	}
	dispatcher := dispatch.NewDispatcher(registry, cfg.EngineTimeout)

	chatSvc := usecase.NewChatService(cfg, limiter, behavior.NewTracker(), dispatcher)

	srv := httpserver.NewServer(cfg, chatSvc, app.BuildRedisCheck(rdb))
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

// buildEngines wires the real providers, or the stub set in dev when no
// credentials are present so the gateway runs without upstream accounts.
func buildEngines(cfg config.Config) []domain.Engine {
	if cfg.IsDev() && cfg.GeminiAPIKey == "" && cfg.GroqAPIKey == "" {
		slog.Warn("no provider credentials; using stub engines")
		return []domain.Engine{
			stub.New(domain.TierFlash),
			stub.New(domain.TierSpeed),
			stub.New(domain.TierPro),
		}
	}
	return []domain.Engine{
		gemini.NewFlash(cfg),
		groq.New(cfg),
		gemini.NewPro(cfg),
	}
}
