package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pankgraph/cypherflow/types"
)

// OpenAIConfig configures an OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1" or a
	// local inference server.
	BaseURL string
	APIKey  string
	Model   string
	// RequestTimeout bounds a single HTTP round trip. Zero means 60s.
	RequestTimeout time.Duration
	// RequestsPerSecond throttles outgoing calls client-side. Zero
	// disables throttling.
	RequestsPerSecond float64
	// Burst is the limiter burst size. Zero means 1.
	Burst int
}

// OpenAIProvider talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAIProvider struct {
	cfg     OpenAIConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAIProvider creates a provider. logger may be nil.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &OpenAIProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: limiter,
		logger:  logger.With(zap.String("component", "llm_provider")),
	}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai-compatible" }

// Wire types for the /chat/completions endpoint.
type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage ChatUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat implements Provider.
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, types.NewError(types.ErrRateLimited, "rate limiter wait canceled").
			WithCause(err).WithRetryable(false)
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	body, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.Stop,
	})
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "encode chat request").WithCause(err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "build chat request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, types.NewError(types.ErrUpstreamTimeout, "chat completion timed out").
				WithCause(err).WithRetryable(true)
		}
		return nil, types.NewError(types.ErrUpstreamError, "chat completion request failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "read chat response").
			WithCause(err).WithRetryable(true)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.statusError(resp.StatusCode, payload)
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "decode chat response").
			WithCause(err).WithRetryable(true)
	}
	if decoded.Error != nil {
		return nil, types.NewError(types.ErrUpstreamError, decoded.Error.Message).WithRetryable(true)
	}
	if len(decoded.Choices) == 0 {
		return nil, types.NewError(types.ErrGenerationEmpty, "chat response has no choices")
	}

	p.logger.Debug("chat completion",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("total_tokens", decoded.Usage.TotalTokens))

	return &ChatResponse{
		Model:   decoded.Model,
		Content: decoded.Choices[0].Message.Content,
		Usage:   decoded.Usage,
	}, nil
}

// statusError maps an HTTP failure status to a typed error.
func (p *OpenAIProvider) statusError(status int, payload []byte) error {
	msg := fmt.Sprintf("upstream returned %d", status)
	var decoded chatCompletionResponse
	if err := json.Unmarshal(payload, &decoded); err == nil && decoded.Error != nil {
		msg = decoded.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.NewError(types.ErrUnauthorized, msg).WithHTTPStatus(status)
	case status == http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, msg).WithHTTPStatus(status).WithRetryable(true)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return types.NewError(types.ErrUpstreamTimeout, msg).WithHTTPStatus(status).WithRetryable(true)
	case status >= 500:
		return types.NewError(types.ErrUpstreamError, msg).WithHTTPStatus(status).WithRetryable(true)
	default:
		return types.NewError(types.ErrInvalidRequest, msg).WithHTTPStatus(status)
	}
}
