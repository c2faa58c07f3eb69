package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pankgraph/cypherflow/types"

	"go.uber.org/zap"
)

const (
	defaultLiteratureTimeout = 30 * time.Second
	defaultLiteratureLimit   = 10
)

// LiteratureConfig holds abstract-search endpoint settings.
type LiteratureConfig struct {
	// BaseURL is the abstract similarity-search endpoint.
	BaseURL string

	// Limit is how many abstracts to request. Defaults to 10.
	Limit int

	// Timeout bounds one search round trip. Defaults to 30s.
	Timeout time.Duration
}

// Abstract is one publication returned by the literature search service.
type Abstract struct {
	Abstract string  `json:"abstract"`
	Title    string  `json:"title"`
	PubmedID string  `json:"pubmedid"`
	Score    float64 `json:"score"`
}

// LiteratureAgent retrieves related publication abstracts via the semantic
// search service.
type LiteratureAgent struct {
	cfg    LiteratureConfig
	client *http.Client
	logger *zap.Logger
}

// NewLiteratureAgent creates the literature search sub-agent.
func NewLiteratureAgent(cfg LiteratureConfig, logger *zap.Logger) *LiteratureAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLiteratureLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLiteratureTimeout
	}
	return &LiteratureAgent{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "literature_agent")),
	}
}

func (a *LiteratureAgent) Name() string { return "literature_search" }

func (a *LiteratureAgent) DisplayName() string { return "LiteratureSearch" }

// Run queries the abstract search service and returns the matches as JSON.
func (a *LiteratureAgent) Run(ctx context.Context, input string) (string, error) {
	endpoint, err := url.Parse(a.cfg.BaseURL)
	if err != nil {
		return "", types.NewError(types.ErrInvalidRequest, "invalid literature search URL").WithCause(err)
	}
	params := endpoint.Query()
	params.Set("query", input)
	params.Set("k", strconv.Itoa(a.cfg.Limit))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "build literature search request").WithCause(err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError, "literature search unreachable").
			WithRetryable(true).
			WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError, "read literature search response").WithCause(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("literature search returned status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500)
	}

	// The service replies with a bare JSON array of publications keyed by
	// abstract/title/pmid/score. Non-object entries are skipped.
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", types.NewError(types.ErrUpstreamError, "invalid literature search payload").WithCause(err)
	}

	results := make([]Abstract, 0, len(payload))
	for _, raw := range payload {
		var item struct {
			Abstract string  `json:"abstract"`
			Title    string  `json:"title"`
			PMID     string  `json:"pmid"`
			Score    float64 `json:"score"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		results = append(results, Abstract{
			Abstract: item.Abstract,
			Title:    item.Title,
			PubmedID: item.PMID,
			Score:    item.Score,
		})
	}

	a.logger.Debug("literature search finished", zap.Int("results", len(results)))

	out, err := json.Marshal(results)
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "encode literature results").WithCause(err)
	}
	return string(out), nil
}
