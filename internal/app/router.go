// Package app assembles the HTTP router and readiness checks.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/kizilabs/chat-gateway/internal/adapter/httpserver"
	"github.com/kizilabs/chat-gateway/internal/adapter/observability"
	"github.com/kizilabs/chat-gateway/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	// Security & instrumentation middleware
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(60 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Session-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Chat endpoint behind an edge per-IP limit; the per-session sliding
	// window inside the pipeline does the fine-grained limiting.
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.EdgeRateLimitPerMin, 1*time.Minute))
		wr.Post("/v1/chat", srv.ChatHandler())
	})

	// Admin surface only mounts when credentials are configured.
	if cfg.AdminEnabled() {
		r.Group(func(ar chi.Router) {
			ar.Use(httpserver.BasicAuth(cfg))
			ar.Post("/v1/admin/limits/reset", srv.AdminResetHandler())
		})
	}

	// Health and metrics
	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })

	return httpserver.SecurityHeaders(r)
}
