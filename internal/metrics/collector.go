package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds every Prometheus metric the service exposes.
type Collector struct {
	// HTTP API
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// LLM traffic
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	// Validation and refinement
	validationScore      prometheus.Histogram
	validationsTotal     *prometheus.CounterVec
	refinementIterations prometheus.Histogram
	refinementGain       prometheus.Histogram

	// Graph gateway
	graphQueriesTotal   *prometheus.CounterVec
	graphQueryDuration  prometheus.Histogram

	// Answer cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	logger *zap.Logger
}

// NewCollector registers all metrics on the given registerer. A nil
// registerer uses the default one.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	c.validationScore = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_score",
			Help:      "Distribution of Cypher validation scores (0-100)",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)

	c.validationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total number of validated queries",
		},
		[]string{"outcome"}, // clean, errors
	)

	c.refinementIterations = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refinement_iterations",
			Help:      "Iterations spent per refinement run",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)

	c.refinementGain = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refinement_score_gain",
			Help:      "Score improvement between first and best attempt",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)

	c.graphQueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_queries_total",
			Help:      "Total number of graph gateway queries",
		},
		[]string{"status", "has_data"},
	)

	c.graphQueryDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_query_duration_seconds",
			Help:      "Graph gateway round-trip duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	c.cacheHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_cache_hits_total",
			Help:      "Total number of answer cache hits",
		},
	)

	c.cacheMisses = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_cache_misses_total",
			Help:      "Total number of answer cache misses",
		},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records one API request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLLMRequest records one model request.
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// RecordValidation records one validation outcome.
func (c *Collector) RecordValidation(score int, hadErrors bool) {
	c.validationScore.Observe(float64(score))
	outcome := "clean"
	if hadErrors {
		outcome = "errors"
	}
	c.validationsTotal.WithLabelValues(outcome).Inc()
}

// RecordRefinement records one completed refinement run.
func (c *Collector) RecordRefinement(iterations, improvement int) {
	c.refinementIterations.Observe(float64(iterations))
	c.refinementGain.Observe(float64(improvement))
}

// RecordGraphQuery records one graph gateway round trip.
func (c *Collector) RecordGraphQuery(status string, hasData bool, duration time.Duration) {
	c.graphQueriesTotal.WithLabelValues(status, strconv.FormatBool(hasData)).Inc()
	c.graphQueryDuration.Observe(duration.Seconds())
}

// RecordCacheHit records an answer cache hit.
func (c *Collector) RecordCacheHit() { c.cacheHits.Inc() }

// RecordCacheMiss records an answer cache miss.
func (c *Collector) RecordCacheMiss() { c.cacheMisses.Inc() }

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
