package refine

import (
	"context"

	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/types"
	"github.com/pankgraph/cypherflow/validate"
)

const (
	// DefaultMaxIterations bounds the refinement loop.
	DefaultMaxIterations = 5
	// DefaultAcceptScore is the validation score at which a query is
	// accepted without further refinement.
	DefaultAcceptScore = 90
)

// Generator produces a Cypher query from a prompt. It wraps the LLM call
// and is expected to strip code fences and surrounding whitespace before
// returning. Transient-failure retries belong inside the Generator; the
// controller treats any returned error as terminal for the run.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options tune one refinement run. Zero values select the defaults.
type Options struct {
	MaxIterations int
	AcceptScore   int
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.AcceptScore <= 0 {
		o.AcceptScore = DefaultAcceptScore
	}
	return o
}

// Controller runs the generate-validate-refine loop. It is safe for
// concurrent use: each Refine call owns all of its mutable state.
type Controller struct {
	validator *validate.Validator
	prompts   *PromptBuilder
	gen       Generator
	opts      Options
	logger    *zap.Logger
}

// NewController wires a controller. logger may be nil.
func NewController(validator *validate.Validator, prompts *PromptBuilder, gen Generator, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		validator: validator,
		prompts:   prompts,
		gen:       gen,
		opts:      opts.withDefaults(),
		logger:    logger.With(zap.String("component", "refinement_controller")),
	}
}

// Refine generates a query for the question and iteratively improves it
// until the accept score is reached or the iteration budget runs out. The
// returned result always carries the best-scoring attempt; budget
// exhaustion below the accept score is not an error. A generator failure
// aborts the run with no partial result.
func (c *Controller) Refine(ctx context.Context, question string) (*types.RefinementResult, error) {
	opts := c.opts

	query, err := c.gen.Generate(ctx, c.prompts.Base(question))
	if err != nil {
		return nil, err
	}
	report := c.validator.Validate(query)
	c.logIteration(1, query, report)

	result := &types.RefinementResult{
		BestQuery:     query,
		BestScore:     report.Score,
		BestIteration: 1,
		BestReport:    *report,
		Attempts:      []types.Attempt{{Iteration: 1, Query: query, Report: *report}},
	}
	if report.Score >= opts.AcceptScore {
		return result, nil
	}

	for iteration := 2; iteration <= opts.MaxIterations; iteration++ {
		prev := result.Attempts[len(result.Attempts)-1]
		if prev.Report.Score >= opts.AcceptScore && !prev.Report.HasErrors() {
			break
		}

		prompt := c.prompts.Refinement(question, prev.Query, &prev.Report)
		query, err = c.gen.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}
		report = c.validator.Validate(query)
		c.logIteration(iteration, query, report)

		result.Attempts = append(result.Attempts, types.Attempt{
			Iteration: iteration,
			Query:     query,
			Report:    *report,
		})
		// Strictly greater: the first attempt to reach a score keeps it.
		if report.Score > result.BestScore {
			result.BestQuery = query
			result.BestScore = report.Score
			result.BestIteration = iteration
			result.BestReport = *report
		}
		if report.Score >= opts.AcceptScore {
			break
		}
	}

	c.logger.Info("refinement finished",
		zap.Int("best_score", result.BestScore),
		zap.Int("best_iteration", result.BestIteration),
		zap.Int("total_iterations", result.TotalIterations()),
		zap.Int("improvement", result.Improvement()))
	return result, nil
}

func (c *Controller) logIteration(iteration int, query string, report *types.ValidationReport) {
	c.logger.Debug("refinement iteration",
		zap.Int("iteration", iteration),
		zap.Int("score", report.Score),
		zap.Int("errors", len(report.Errors)),
		zap.Int("query_len", len(query)))
}
