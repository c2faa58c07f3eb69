package llm

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/types"
)

// RetryPolicy controls retry of transient provider failures.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialDelay is the first backoff delay.
	InitialDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// Multiplier grows the delay between attempts.
	Multiplier float64
	// Jitter randomizes delays to avoid thundering herds.
	Jitter bool
}

// DefaultRetryPolicy suits most chat API call patterns.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}
	return p
}

// QueryGenerator turns a prompt into a Cypher query string through a chat
// provider. It satisfies the refinement controller's Generator contract:
// transient upstream failures are retried here with exponential backoff,
// and only exhaustion surfaces as an error. Responses are cleaned of code
// fences and surrounding whitespace.
type QueryGenerator struct {
	provider    Provider
	policy      RetryPolicy
	maxTokens   int
	temperature float32
	logger      *zap.Logger
	sleep       func(context.Context, time.Duration) error
}

// NewQueryGenerator wraps a provider. logger may be nil.
func NewQueryGenerator(provider Provider, policy RetryPolicy, logger *zap.Logger) *QueryGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryGenerator{
		provider:    provider,
		policy:      policy.withDefaults(),
		maxTokens:   1024,
		temperature: 0,
		logger:      logger.With(zap.String("component", "query_generator")),
		sleep:       sleepCtx,
	}
}

// Generate performs one completion, retrying retryable failures.
func (g *QueryGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := &ChatRequest{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	var lastErr error
	delay := g.policy.InitialDelay
	for attempt := 0; attempt <= g.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("retrying generation",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := g.sleep(ctx, jittered(delay, g.policy.Jitter)); err != nil {
				return "", err
			}
			delay = time.Duration(float64(delay) * g.policy.Multiplier)
			if delay > g.policy.MaxDelay {
				delay = g.policy.MaxDelay
			}
		}

		resp, err := g.provider.Chat(ctx, req)
		if err != nil {
			lastErr = err
			if !types.IsRetryable(err) {
				return "", err
			}
			continue
		}

		query := CleanResponse(resp.Content)
		if query == "" {
			return "", types.NewError(types.ErrGenerationEmpty, "provider returned an empty query").
				WithAgent(g.provider.Name())
		}
		return query, nil
	}
	return "", types.NewError(types.ErrGenerationFailed, "generation retries exhausted").
		WithCause(lastErr).WithAgent(g.provider.Name())
}

// CleanResponse strips markdown code fences, a leading language tag, and
// surrounding whitespace or stray backticks from a model response.
func CleanResponse(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "\n"); idx >= 0 && isLanguageTag(text[:idx]) {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.Trim(strings.TrimSpace(text), "` ")
}

func isLanguageTag(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	for _, r := range line {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func jittered(d time.Duration, jitter bool) time.Duration {
	if !jitter {
		return d
	}
	// Up to 25% added, never subtracted, so the floor stays predictable.
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
