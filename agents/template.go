package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pankgraph/cypherflow/types"

	"go.uber.org/zap"
)

const defaultTemplateTimeout = 30 * time.Second

// TemplateConfig holds entity-linking endpoint settings.
type TemplateConfig struct {
	// BaseURL is the entity linking endpoint; it accepts {"mention": ...}
	// posts and resolves the mention to canonical graph identifiers.
	BaseURL string

	// Timeout bounds one linking round trip. Defaults to 30s.
	Timeout time.Duration
}

// EntityMatch is one candidate resolution for an entity mention.
type EntityMatch struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// TemplateAgent resolves entity mentions (gene symbols, disease names, cell
// types) to canonical graph identifiers through the template service.
type TemplateAgent struct {
	cfg    TemplateConfig
	client *http.Client
	logger *zap.Logger
}

// NewTemplateAgent creates the entity template sub-agent.
func NewTemplateAgent(cfg TemplateConfig, logger *zap.Logger) *TemplateAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTemplateTimeout
	}
	return &TemplateAgent{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "template_agent")),
	}
}

func (a *TemplateAgent) Name() string { return "entity_template" }

func (a *TemplateAgent) DisplayName() string { return "EntityTemplate" }

// Run posts the mention to the linking service and returns the candidate
// matches as JSON.
func (a *TemplateAgent) Run(ctx context.Context, input string) (string, error) {
	payload, err := json.Marshal(map[string]string{"mention": input})
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "encode entity mention").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "build entity linking request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError, "entity linking service unreachable").
			WithRetryable(true).
			WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError, "read entity linking response").WithCause(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("entity linking returned status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500)
	}

	var matches []EntityMatch
	if err := json.Unmarshal(body, &matches); err != nil {
		return "", types.NewError(types.ErrUpstreamError, "invalid entity linking payload").WithCause(err)
	}

	a.logger.Debug("entity linking finished", zap.Int("matches", len(matches)))

	out, err := json.Marshal(matches)
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "encode entity matches").WithCause(err)
	}
	return string(out), nil
}
