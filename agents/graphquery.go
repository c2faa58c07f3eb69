package agents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pankgraph/cypherflow/internal/graphapi"
	"github.com/pankgraph/cypherflow/internal/metrics"
	"github.com/pankgraph/cypherflow/refine"
	"github.com/pankgraph/cypherflow/types"

	"go.uber.org/zap"
)

// RunRecorder persists completed refinement runs.
type RunRecorder interface {
	Save(ctx context.Context, question string, result *types.RefinementResult) error
}

// GraphQueryAgent turns a natural-language question into Cypher through the
// refinement controller, executes it against the graph gateway, and tracks
// the executed query so the format agent can cite it.
type GraphQueryAgent struct {
	refiner  *refine.Controller
	api      *graphapi.Client
	metrics  *refine.MetricsLogger
	tracker  *QueryTracker
	recorder RunRecorder
	stats    *metrics.Collector
	logger   *zap.Logger
}

// GraphQueryOption configures optional GraphQueryAgent collaborators.
type GraphQueryOption func(*GraphQueryAgent)

// WithRunRecorder persists every refinement run to the given recorder.
func WithRunRecorder(r RunRecorder) GraphQueryOption {
	return func(a *GraphQueryAgent) { a.recorder = r }
}

// WithStatsCollector reports refinement and gateway metrics.
func WithStatsCollector(c *metrics.Collector) GraphQueryOption {
	return func(a *GraphQueryAgent) { a.stats = c }
}

// NewGraphQueryAgent creates the graph query sub-agent. metrics may be nil
// to disable refinement metrics logging.
func NewGraphQueryAgent(refiner *refine.Controller, api *graphapi.Client, metricsLog *refine.MetricsLogger, tracker *QueryTracker, logger *zap.Logger, opts ...GraphQueryOption) *GraphQueryAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &GraphQueryAgent{
		refiner: refiner,
		api:     api,
		metrics: metricsLog,
		tracker: tracker,
		logger:  logger.With(zap.String("component", "graph_query_agent")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *GraphQueryAgent) Name() string { return "graph_query" }

func (a *GraphQueryAgent) DisplayName() string { return "GraphQuery" }

// graphQueryOutput is what the planner sees: the executed query alongside
// the gateway's payload.
type graphQueryOutput struct {
	CypherQuery string            `json:"cypher_query"`
	APIResult   graphapi.Response `json:"api_result"`
}

// Run refines the question into Cypher, executes it, and returns the query
// plus the gateway result as JSON for the planner transcript.
func (a *GraphQueryAgent) Run(ctx context.Context, input string) (string, error) {
	result, err := a.refiner.Refine(ctx, input)
	if err != nil {
		return "", err
	}

	if a.metrics != nil {
		if merr := a.metrics.Log(input, result); merr != nil {
			a.logger.Warn("refinement metrics log failed", zap.Error(merr))
		}
	}
	if a.recorder != nil {
		if serr := a.recorder.Save(ctx, input, result); serr != nil {
			a.logger.Warn("refinement run store failed", zap.Error(serr))
		}
	}
	if a.stats != nil {
		a.stats.RecordRefinement(result.TotalIterations(), result.Improvement())
	}
	a.logger.Info("cypher generated",
		zap.Int("score", result.BestScore),
		zap.Int("iterations", result.TotalIterations()),
		zap.Int("best_iteration", result.BestIteration),
	)

	started := time.Now()
	exec, err := a.api.Execute(ctx, result.BestQuery)
	if err != nil {
		if a.stats != nil {
			a.stats.RecordGraphQuery("error", false, time.Since(started))
		}
		a.tracker.Add(graphapi.CleanForSubmission(result.BestQuery), false)
		return "", err
	}
	if a.stats != nil {
		a.stats.RecordGraphQuery("success", exec.HasData, time.Since(started))
	}

	a.tracker.Add(exec.CypherQuery, exec.HasData)

	out, err := json.Marshal(graphQueryOutput{
		CypherQuery: exec.CypherQuery,
		APIResult:   exec.Response,
	})
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "encode graph query output").WithCause(err)
	}
	return string(out), nil
}
