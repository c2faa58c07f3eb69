package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/agents"
	"github.com/pankgraph/cypherflow/internal/cache"
	"github.com/pankgraph/cypherflow/llm"
	"github.com/pankgraph/cypherflow/types"
)

type stubAnswerer struct {
	answer   string
	err      error
	onAnswer func()
	calls    int
}

func (s *stubAnswerer) Answer(ctx context.Context, history []llm.Message, question string) ([]llm.Message, string, error) {
	s.calls++
	if s.onAnswer != nil {
		s.onAnswer()
	}
	if s.err != nil {
		return nil, "", s.err
	}
	return nil, s.answer, nil
}

type stubCache struct {
	entries map[string]*cache.CachedAnswer
	sets    []*cache.CachedAnswer
	setTTL  time.Duration
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]*cache.CachedAnswer)}
}

func (s *stubCache) Get(ctx context.Context, question string) (*cache.CachedAnswer, error) {
	if entry, ok := s.entries[question]; ok {
		return entry, nil
	}
	return nil, cache.ErrCacheMiss
}

func (s *stubCache) Set(ctx context.Context, answer *cache.CachedAnswer, ttl time.Duration) error {
	s.sets = append(s.sets, answer)
	s.setTTL = ttl
	s.entries[answer.Question] = answer
	return nil
}

func postQuery(t *testing.T, h *QueryHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	h.HandleQuery(rec, req)
	return rec
}

func decodeQueryResponse(t *testing.T, rec *httptest.ResponseRecorder) QueryResponse {
	t.Helper()
	var resp struct {
		Success bool          `json:"success"`
		Data    QueryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestHandleQuerySuccess(t *testing.T) {
	tracker := agents.NewQueryTracker()
	planner := &stubAnswerer{
		answer: "TP53 regulates CDKN1A.",
		onAnswer: func() {
			tracker.Add(`MATCH (g:gene {symbol: "TP53"}) RETURN g`, true)
			tracker.Add(`MATCH (g:gene {symbol: "NOPE"}) RETURN g`, false)
		},
	}
	h := NewQueryHandler(planner, tracker, zap.NewNop())

	rec := postQuery(t, h, `{"question": "What does TP53 regulate?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeQueryResponse(t, rec)
	assert.Equal(t, "TP53 regulates CDKN1A.", data.Answer)
	assert.Equal(t, []string{`MATCH (g:gene {symbol: "TP53"}) RETURN g`}, data.CypherQueries)
	assert.False(t, data.Cached)
	assert.GreaterOrEqual(t, data.ProcessingTimeMS, int64(0))
}

func TestHandleQueryRejectsEmptyQuestion(t *testing.T) {
	h := NewQueryHandler(&stubAnswerer{}, agents.NewQueryTracker(), zap.NewNop())

	for _, body := range []string{`{"question": ""}`, `{"question": "   "}`, `{}`} {
		rec := postQuery(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestHandleQueryRejectsInvalidBody(t *testing.T) {
	h := NewQueryHandler(&stubAnswerer{}, agents.NewQueryTracker(), zap.NewNop())

	rec := postQuery(t, h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, string(types.ErrInvalidRequest), resp.Error.Code)
}

func TestHandleQueryRejectsGet(t *testing.T) {
	h := NewQueryHandler(&stubAnswerer{}, agents.NewQueryTracker(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleQuery(rec, httptest.NewRequest(http.MethodGet, "/api/v1/query", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueryPlannerError(t *testing.T) {
	planner := &stubAnswerer{err: types.NewError(types.ErrUpstreamTimeout, "model timed out")}
	h := NewQueryHandler(planner, agents.NewQueryTracker(), zap.NewNop())

	rec := postQuery(t, h, `{"question": "anything"}`)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, string(types.ErrUpstreamTimeout), resp.Error.Code)
}

func TestHandleQueryCacheHit(t *testing.T) {
	c := newStubCache()
	c.entries["what is tp53"] = &cache.CachedAnswer{
		Question:      "what is tp53",
		Answer:        "A tumor suppressor gene.",
		CypherQueries: []string{`MATCH (g:gene) RETURN g`},
	}
	planner := &stubAnswerer{answer: "should not be called"}
	h := NewQueryHandler(planner, agents.NewQueryTracker(), zap.NewNop(),
		WithAnswerCache(c, time.Hour))

	rec := postQuery(t, h, `{"question": "what is tp53"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeQueryResponse(t, rec)
	assert.True(t, data.Cached)
	assert.Equal(t, "A tumor suppressor gene.", data.Answer)
	assert.Zero(t, planner.calls)
}

func TestHandleQueryStoresAnswerOnMiss(t *testing.T) {
	c := newStubCache()
	tracker := agents.NewQueryTracker()
	planner := &stubAnswerer{
		answer: "fresh answer",
		onAnswer: func() {
			tracker.Add(`MATCH (n) RETURN n LIMIT 1`, true)
		},
	}
	h := NewQueryHandler(planner, tracker, zap.NewNop(),
		WithAnswerCache(c, 30*time.Minute))

	rec := postQuery(t, h, `{"question": "fresh question"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, c.sets, 1)
	assert.Equal(t, "fresh question", c.sets[0].Question)
	assert.Equal(t, "fresh answer", c.sets[0].Answer)
	assert.Equal(t, []string{`MATCH (n) RETURN n LIMIT 1`}, c.sets[0].CypherQueries)
	assert.Equal(t, 30*time.Minute, c.setTTL)
}

func TestHandleQueryWithoutCache(t *testing.T) {
	planner := &stubAnswerer{answer: "direct answer"}
	h := NewQueryHandler(planner, agents.NewQueryTracker(), zap.NewNop())

	rec := postQuery(t, h, `{"question": "no cache configured"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeQueryResponse(t, rec)
	assert.Equal(t, "direct answer", data.Answer)
	assert.Equal(t, 1, planner.calls)
}
