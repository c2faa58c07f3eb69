package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/agents"
	"github.com/pankgraph/cypherflow/internal/cache"
	"github.com/pankgraph/cypherflow/internal/metrics"
	"github.com/pankgraph/cypherflow/llm"
	"github.com/pankgraph/cypherflow/types"
)

const maxQueryBodyBytes = 1 << 20

// Answerer runs a question through the planner loop.
type Answerer interface {
	Answer(ctx context.Context, history []llm.Message, question string) ([]llm.Message, string, error)
}

// AnswerCache is the subset of the answer cache the query handler needs.
type AnswerCache interface {
	Get(ctx context.Context, question string) (*cache.CachedAnswer, error)
	Set(ctx context.Context, answer *cache.CachedAnswer, ttl time.Duration) error
}

// QueryRequest is the body of a question answering call.
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse carries the final answer for a question.
type QueryResponse struct {
	Answer           string   `json:"answer"`
	CypherQueries    []string `json:"cypher_queries,omitempty"`
	ProcessingTimeMS int64    `json:"processing_time_ms"`
	Cached           bool     `json:"cached"`
}

// QueryHandler answers natural language questions over the knowledge graph.
type QueryHandler struct {
	planner  Answerer
	cache    AnswerCache
	cacheTTL time.Duration
	tracker  *agents.QueryTracker
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// QueryHandlerOption configures optional QueryHandler collaborators.
type QueryHandlerOption func(*QueryHandler)

// WithAnswerCache enables answer caching with the given TTL.
func WithAnswerCache(c AnswerCache, ttl time.Duration) QueryHandlerOption {
	return func(h *QueryHandler) {
		h.cache = c
		h.cacheTTL = ttl
	}
}

// WithMetrics enables cache hit/miss accounting.
func WithMetrics(m *metrics.Collector) QueryHandlerOption {
	return func(h *QueryHandler) { h.metrics = m }
}

// NewQueryHandler creates the question answering handler.
func NewQueryHandler(planner Answerer, tracker *agents.QueryTracker, logger *zap.Logger, opts ...QueryHandlerOption) *QueryHandler {
	h := &QueryHandler{
		planner: planner,
		tracker: tracker,
		logger:  logger.With(zap.String("component", "query_handler")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleQuery answers one question: cache lookup, planner run, cache store.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, r, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	var req QueryRequest
	body := http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		WriteErrorMessage(w, r, types.ErrInvalidRequest, "invalid request body", h.logger)
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		WriteErrorMessage(w, r, types.ErrInvalidRequest, "question is required", h.logger)
		return
	}

	start := time.Now()

	if h.cache != nil {
		if cached, err := h.cache.Get(r.Context(), question); err == nil {
			if h.metrics != nil {
				h.metrics.RecordCacheHit()
			}
			h.logger.Info("answer served from cache", zap.String("question", question))
			WriteSuccess(w, r, QueryResponse{
				Answer:           cached.Answer,
				CypherQueries:    cached.CypherQueries,
				ProcessingTimeMS: time.Since(start).Milliseconds(),
				Cached:           true,
			}, h.logger)
			return
		} else if !cache.IsCacheMiss(err) {
			h.logger.Warn("answer cache lookup failed", zap.Error(err))
		} else if h.metrics != nil {
			h.metrics.RecordCacheMiss()
		}
	}

	_, answer, err := h.planner.Answer(r.Context(), nil, question)
	if err != nil {
		h.logger.Error("planner failed",
			zap.String("question", question),
			zap.Error(err))
		WriteError(w, r, err, h.logger)
		return
	}

	queries := h.tracker.WithData()

	if h.cache != nil {
		entry := &cache.CachedAnswer{
			Question:      question,
			Answer:        answer,
			CypherQueries: queries,
		}
		if err := h.cache.Set(r.Context(), entry, h.cacheTTL); err != nil {
			h.logger.Warn("failed to cache answer", zap.Error(err))
		}
	}

	elapsed := time.Since(start)
	h.logger.Info("question answered",
		zap.String("question", question),
		zap.Int("cypher_queries", len(queries)),
		zap.Duration("elapsed", elapsed))

	WriteSuccess(w, r, QueryResponse{
		Answer:           answer,
		CypherQueries:    queries,
		ProcessingTimeMS: elapsed.Milliseconds(),
		Cached:           false,
	}, h.logger)
}
