package llm

import (
	"context"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-agnostic chat completion request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Timeout     time.Duration `json:"-"`
}

// ChatUsage reports token accounting for one completion.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Model   string    `json:"model"`
	Content string    `json:"content"`
	Usage   ChatUsage `json:"usage,omitempty"`
}

// Provider is a chat completion backend.
type Provider interface {
	// Name identifies the provider for logs and error attribution.
	Name() string
	// Chat performs one completion. Implementations map transport and
	// upstream failures to *types.Error so callers can branch on
	// retryability.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
