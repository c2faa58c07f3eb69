package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/api/handlers"
	"github.com/pankgraph/cypherflow/internal/metrics"
)

// RouterConfig holds the handlers and options the router wires together.
type RouterConfig struct {
	Query   *handlers.QueryHandler
	Health  *handlers.HealthHandler
	Stats   *handlers.StatsHandler // optional
	Metrics *metrics.Collector     // optional

	// Registry, when set, is served at /metrics.
	Registry *prometheus.Registry

	AuthEnabled bool
	JWTSecret   string

	Logger *zap.Logger
}

// NewRouter assembles the HTTP routes with the middleware chain applied.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", cfg.Health.HandleHealth)
	mux.HandleFunc("/healthz", cfg.Health.HandleHealthz)
	mux.HandleFunc("/ready", cfg.Health.HandleReady)
	mux.HandleFunc("/version", cfg.Health.HandleVersion)

	if cfg.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	var apiHandler http.Handler = buildAPIMux(cfg)
	if cfg.AuthEnabled {
		apiHandler = Auth(cfg.JWTSecret, logger)(apiHandler)
	}
	mux.Handle("/api/v1/", apiHandler)

	var root http.Handler = mux
	root = Metrics(cfg.Metrics)(root)
	root = RequestID(root)
	return root
}

func buildAPIMux(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/query", cfg.Query.HandleQuery)
	if cfg.Stats != nil {
		mux.HandleFunc("/api/v1/stats", cfg.Stats.HandleStats)
		mux.HandleFunc("/api/v1/runs", cfg.Stats.HandleRecentRuns)
	}
	return mux
}
