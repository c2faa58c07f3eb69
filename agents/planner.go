package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pankgraph/cypherflow/llm"
	"github.com/pankgraph/cypherflow/types"

	"github.com/google/uuid"
	"github.com/pankgraph/cypherflow/internal/ctxkeys"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRounds caps how many times the planner may fan out to
	// functions before it must answer the user.
	DefaultMaxRounds = 5

	// directiveRetries is how many times an invalid model reply is retried
	// with a correction prompt before giving up.
	directiveRetries = 3

	plannerMaxTokens   = 4000
	plannerTemperature = 0.6
)

// Directive is the planner model's parsed JSON reply.
type Directive struct {
	Draft     string `json:"draft"`
	To        string `json:"to"`
	Text      string `json:"text,omitempty"`
	Functions []Call `json:"functions,omitempty"`
}

// PlannerOptions tunes the planner loop.
type PlannerOptions struct {
	// MaxRounds caps function-call rounds per question. Defaults to 5.
	MaxRounds int
}

func (o PlannerOptions) withDefaults() PlannerOptions {
	if o.MaxRounds <= 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	return o
}

// Planner drives the conversation loop: it sends the transcript to the
// model, parses the routing directive, fans function calls out through the
// dispatcher, and loops until the model addresses the user.
type Planner struct {
	provider   llm.Provider
	dispatcher *Dispatcher
	formatter  *FormatAgent
	tracker    *QueryTracker
	opts       PlannerOptions
	logger     *zap.Logger
}

// NewPlanner creates a planner. The formatter may be nil, in which case the
// model's final text is returned unformatted.
func NewPlanner(provider llm.Provider, dispatcher *Dispatcher, formatter *FormatAgent, tracker *QueryTracker, opts PlannerOptions, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		provider:   provider,
		dispatcher: dispatcher,
		formatter:  formatter,
		tracker:    tracker,
		opts:       opts.withDefaults(),
		logger:     logger.With(zap.String("component", "planner")),
	}
}

// Answer runs one question through the planner loop. It returns the updated
// transcript (without the system prompt) and the final answer text.
func (p *Planner) Answer(ctx context.Context, history []llm.Message, question string) ([]llm.Message, string, error) {
	runID := uuid.NewString()
	ctx = ctxkeys.WithRunID(ctx, runID)
	logger := p.logger.With(zap.String("run_id", runID))

	p.tracker.Reset()

	question = strings.TrimSpace(question)
	if question == "" {
		question = "<empty>"
	}

	messages := make([]llm.Message, len(history), len(history)+2)
	copy(messages, history)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: "====== From User ======\n" + question,
	})

	rounds := 0
	for {
		var directive *Directive
		var err error
		messages, directive, err = p.nextDirective(ctx, messages)
		if err != nil {
			return nil, "", err
		}

		if directive.To == "user" {
			answer := directive.Text
			if p.formatter != nil {
				formatted, ferr := p.formatter.Format(ctx, question, p.tracker.WithData(), answer)
				if ferr != nil {
					logger.Warn("format agent failed, returning planner text", zap.Error(ferr))
				} else {
					answer = formatted
				}
			}
			logger.Info("planner answered",
				zap.Int("rounds", rounds),
				zap.Int("queries_executed", len(p.tracker.All())),
			)
			return messages, answer, nil
		}

		if rounds == p.opts.MaxRounds {
			return nil, "", types.NewError(types.ErrBudgetExhausted,
				fmt.Sprintf("planner requested functions beyond the %d-round budget", p.opts.MaxRounds))
		}
		rounds++

		results, err := p.dispatcher.RunAll(ctx, directive.Functions)
		if err != nil {
			return nil, "", types.NewError(types.ErrDispatchCanceled, "function dispatch canceled").WithCause(err)
		}

		feedback := "====== From System ======\nThe results of function callings:\n" + results + "\n"
		if rounds == p.opts.MaxRounds {
			feedback += fmt.Sprintf("You already called functions %d continuous times. Next message you must return to user.", rounds)
		} else {
			feedback += fmt.Sprintf("You can call functions %d more times, after this you need to return to user.", p.opts.MaxRounds-rounds)
		}
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: feedback})
	}
}

// nextDirective sends the transcript (with the system prompt prepended) and
// parses the reply, retrying with a correction prompt when the model emits
// an invalid directive.
func (p *Planner) nextDirective(ctx context.Context, messages []llm.Message) ([]llm.Message, *Directive, error) {
	for attempt := 0; attempt < directiveRetries; attempt++ {
		withSystem := make([]llm.Message, 0, len(messages)+1)
		withSystem = append(withSystem, llm.Message{Role: llm.RoleSystem, Content: plannerPrompt})
		withSystem = append(withSystem, messages...)

		resp, err := p.provider.Chat(ctx, &llm.ChatRequest{
			Messages:    withSystem,
			MaxTokens:   plannerMaxTokens,
			Temperature: plannerTemperature,
		})
		if err != nil {
			return nil, nil, types.NewError(types.ErrGenerationFailed, "planner model request failed").WithCause(err)
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})

		directive, perr := p.parseDirective(resp.Content)
		if perr == nil {
			return messages, directive, nil
		}

		p.logger.Warn("invalid planner directive", zap.Int("attempt", attempt+1), zap.Error(perr))
		messages = append(messages, llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf(plannerErrorPrompt, perr.Error()),
		})
	}
	return nil, nil, types.NewError(types.ErrGenerationFailed,
		fmt.Sprintf("planner model returned invalid directives %d times in a row", directiveRetries))
}

// parseDirective decodes and validates a model reply.
func (p *Planner) parseDirective(raw string) (*Directive, error) {
	var d Directive
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if d.To != "system" && d.To != "user" {
		return nil, fmt.Errorf("field %q must be \"system\" or \"user\", got %q", "to", d.To)
	}
	if d.To == "system" {
		if len(d.Functions) == 0 {
			return nil, fmt.Errorf("directive to system must list at least one function")
		}
		for _, call := range d.Functions {
			if call.Name == "" {
				return nil, fmt.Errorf("function call missing a name")
			}
			if !p.dispatcher.Known(call.Name) {
				return nil, fmt.Errorf("unknown function %q, available: %s",
					call.Name, strings.Join(p.dispatcher.Names(), ", "))
			}
		}
	}
	return &d, nil
}
