package agents

import "context"

// SubAgent is a tool the planner can dispatch work to. Run receives the
// planner-provided input string and returns a textual result for the
// conversation transcript.
type SubAgent interface {
	// Name is the registry key the planner uses in function calls.
	Name() string

	// DisplayName is the human-readable label used when formatting results.
	DisplayName() string

	Run(ctx context.Context, input string) (string, error)
}

// Call is a single function invocation requested by the planner model.
type Call struct {
	Name  string `json:"name"`
	Input string `json:"input"`
}
