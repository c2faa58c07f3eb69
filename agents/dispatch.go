package agents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// defaultCallTimeout bounds a single sub-agent invocation.
	defaultCallTimeout = 60 * time.Second

	// maxResultChars truncates a sub-agent result before it re-enters the
	// conversation transcript.
	maxResultChars = 15000

	// maxErrorChars bounds error text the same way: keep the head and tail.
	maxErrorChars = 2000
)

// Dispatcher routes planner function calls to registered sub-agents and runs
// them concurrently, joining results in call order.
type Dispatcher struct {
	registry    map[string]SubAgent
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewDispatcher creates a dispatcher over the given sub-agents.
func NewDispatcher(agents []SubAgent, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := make(map[string]SubAgent, len(agents))
	for _, a := range agents {
		registry[a.Name()] = a
	}
	return &Dispatcher{
		registry:    registry,
		callTimeout: defaultCallTimeout,
		logger:      logger.With(zap.String("component", "dispatcher")),
	}
}

// Known reports whether a function name resolves to a registered sub-agent.
func (d *Dispatcher) Known(name string) bool {
	_, ok := d.registry[name]
	return ok
}

// Names returns the registered function names, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.registry))
	for name := range d.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunAll executes every call concurrently and returns the numbered results
// concatenated in call order. Individual failures and timeouts become
// Status lines in the transcript rather than errors; RunAll itself fails
// only when the parent context is canceled.
func (d *Dispatcher) RunAll(ctx context.Context, calls []Call) (string, error) {
	results := make([]string, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = d.runOne(gctx, i+1, call)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.Join(results, ""), nil
}

func (d *Dispatcher) runOne(ctx context.Context, index int, call Call) string {
	agent, ok := d.registry[call.Name]
	if !ok {
		header := fmt.Sprintf("%d. %s query: %q\n", index, call.Name, call.Input)
		return header + fmt.Sprintf("Status: error\nError: unknown function %q\n\n", call.Name)
	}

	header := fmt.Sprintf("%d. %s query: %q\n", index, agent.DisplayName(), call.Input)

	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	start := time.Now()
	result, err := agent.Run(callCtx, call.Input)
	elapsed := time.Since(start)

	d.logger.Debug("sub-agent call finished",
		zap.String("agent", call.Name),
		zap.Duration("elapsed", elapsed),
		zap.Bool("failed", err != nil),
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded) && callCtx.Err() != nil:
		return header + fmt.Sprintf("Status: timeout\nError: Cannot get the result from %s in %s\n\n",
			agent.DisplayName(), d.callTimeout)
	case err != nil:
		return header + fmt.Sprintf("Status: error\nError: %s\n\n", truncateError(err.Error()))
	default:
		return header + fmt.Sprintf("Status: success\nResult: %s\n\n", truncateResult(result))
	}
}

func truncateResult(s string) string {
	if len(s) > maxResultChars {
		return s[:maxResultChars]
	}
	return s
}

func truncateError(s string) string {
	if len(s) <= maxErrorChars {
		return s
	}
	half := maxErrorChars / 2
	return s[:half] + " ... " + s[len(s)-half:]
}
