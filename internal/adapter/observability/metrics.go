package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	EngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_requests_total",
			Help: "Total number of engine invocations by tier and outcome",
		},
		[]string{"engine", "outcome"},
	)
	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_request_duration_seconds",
			Help:    "Engine invocation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"engine"},
	)
	FallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fallback_total",
			Help: "Fallback transitions between engines after a failed attempt",
		},
		[]string{"from", "to"},
	)

	ClassifierVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_verdicts_total",
			Help: "Complexity classifier verdicts by tier",
		},
		[]string{"tier"},
	)
	RateLimitRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the sliding-window rate limiter",
		},
	)
	BehaviorSuspicionTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "behavior_suspicion_total",
			Help: "Times a session crossed the behavior suspicion threshold",
		},
	)
)

// InitMetrics registers all Prometheus metrics once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(EngineRequestsTotal)
	prometheus.MustRegister(EngineRequestDuration)
	prometheus.MustRegister(FallbackTotal)
	prometheus.MustRegister(ClassifierVerdictsTotal)
	prometheus.MustRegister(RateLimitRejectionsTotal)
	prometheus.MustRegister(BehaviorSuspicionTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}
