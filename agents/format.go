package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pankgraph/cypherflow/llm"
	"github.com/pankgraph/cypherflow/types"

	"go.uber.org/zap"
)

const (
	formatMaxTokens   = 4000
	formatTemperature = 0.3
)

// FormatAgent rewrites the planner's final answer into the delivered reply,
// given the Cypher queries that produced the underlying data.
type FormatAgent struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewFormatAgent creates the format agent.
func NewFormatAgent(provider llm.Provider, logger *zap.Logger) *FormatAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormatAgent{
		provider: provider,
		logger:   logger.With(zap.String("component", "format_agent")),
	}
}

// Format produces the final user-facing answer. queries holds only the
// Cypher queries whose result sets were non-empty.
func (a *FormatAgent) Format(ctx context.Context, question string, queries []string, finalAnswer string) (string, error) {
	if queries == nil {
		queries = []string{}
	}
	queriesJSON, err := json.Marshal(queries)
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "encode cypher queries").WithCause(err)
	}
	answerJSON, err := json.Marshal(finalAnswer)
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "encode final answer").WithCause(err)
	}

	input := fmt.Sprintf("Human Query: %s\n\nCypher Queries: %s\n\nFinal Answer: %s",
		question, queriesJSON, answerJSON)

	resp, err := a.provider.Chat(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: formatPrompt},
			{Role: llm.RoleUser, Content: input},
		},
		MaxTokens:   formatMaxTokens,
		Temperature: formatTemperature,
	})
	if err != nil {
		return "", types.NewError(types.ErrGenerationFailed, "format agent request failed").WithCause(err)
	}

	formatted := strings.TrimSpace(resp.Content)
	if formatted == "" {
		return "", types.NewError(types.ErrGenerationEmpty, "format agent returned empty answer")
	}
	return formatted, nil
}
