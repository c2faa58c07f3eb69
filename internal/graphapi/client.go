// Package graphapi provides the HTTP client for submitting Cypher queries
// to the graph gateway and classifying its responses.
package graphapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pankgraph/cypherflow/types"

	"go.uber.org/zap"
)

const (
	defaultTimeout = 60 * time.Second

	// maxResponseBytes bounds how much of a gateway response is read.
	maxResponseBytes = 10 << 20
)

// Config holds graph gateway connection settings.
type Config struct {
	// BaseURL is the full gateway endpoint that accepts {"query": ...} posts.
	BaseURL string

	// Timeout bounds a single query round trip. Defaults to 60s.
	Timeout time.Duration
}

// Response is the gateway's JSON payload.
type Response struct {
	Results string `json:"results"`
	Query   string `json:"query"`
	Error   string `json:"error,omitempty"`
}

// Result is the outcome of one executed query.
type Result struct {
	// CypherQuery is the cleaned query as submitted to the gateway.
	CypherQuery string

	// Response is the decoded gateway payload.
	Response Response

	// HasData is false when the gateway answered but the result set is empty
	// ("No results", a blank results field, or empty nodes/edges arrays).
	HasData bool
}

// Client executes Cypher queries against the graph gateway.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a graph gateway client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "graphapi")),
	}
}

// Execute cleans the query, posts it to the gateway, and classifies the
// response. A gateway answer with an empty result set is not an error;
// the returned Result carries HasData=false.
func (c *Client) Execute(ctx context.Context, cypher string) (*Result, error) {
	cleaned := CleanForSubmission(cypher)

	payload, err := json.Marshal(map[string]string{"query": cleaned})
	if err != nil {
		return nil, types.NewError(types.ErrGraphAPIFailed, "encode query payload").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrGraphAPIFailed, "build gateway request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrGraphAPIFailed, "graph gateway unreachable").
			WithRetryable(true).
			WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, types.NewError(types.ErrGraphAPIFailed, "read gateway response").
			WithRetryable(true).
			WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, types.NewError(types.ErrGraphAPIFailed,
			fmt.Sprintf("graph gateway returned status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil, types.NewError(types.ErrGraphAPIFailed, "empty response from graph gateway")
	}
	if strings.HasPrefix(text, "Error:") {
		return nil, types.NewError(types.ErrGraphAPIFailed, "graph gateway error: "+text)
	}

	var decoded Response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, types.NewError(types.ErrGraphAPIFailed, "invalid JSON response from graph gateway").WithCause(err)
	}

	result := &Result{
		CypherQuery: cleaned,
		Response:    decoded,
		HasData:     hasData(decoded.Results),
	}

	c.logger.Debug("graph query executed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("has_data", result.HasData),
	)
	return result, nil
}

// CleanForSubmission collapses all whitespace runs to single spaces and
// normalizes single quotes to double quotes so the query survives JSON
// embedding at the gateway.
func CleanForSubmission(cypher string) string {
	cleaned := strings.Join(strings.Fields(cypher), " ")
	return strings.ReplaceAll(cleaned, "'", `"`)
}

// hasData reports whether a results string carries actual rows. The gateway
// signals an empty result set several ways: the literal "No results", a blank
// string, or a nodes/edges header followed by empty arrays.
func hasData(results string) bool {
	trimmed := strings.TrimSpace(results)
	if trimmed == "" {
		return false
	}
	if strings.EqualFold(trimmed, "no results") {
		return false
	}
	normalized := strings.Join(strings.Fields(results), " ")
	if strings.Contains(strings.ToLower(normalized), "nodes, edges") {
		compact := strings.ReplaceAll(normalized, " ", "")
		if strings.Contains(normalized, "[], []") || strings.Contains(compact, "[][]") {
			return false
		}
	}
	return true
}
