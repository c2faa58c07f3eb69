package types

// ValidationReport is the structured outcome of validating a single Cypher
// query against the graph schema. It is a pure function of its inputs:
// validating the same query twice yields byte-identical reports.
type ValidationReport struct {
	// Score is the overall quality score in [0, 100].
	Score int `json:"score"`
	// Errors lists violations of critical checks. Each distinct check
	// category deducts its fixed penalty at most once, however many
	// messages it produced.
	Errors []string `json:"errors"`
	// Warnings lists quality issues that compound: each scoring warning
	// deducts a small fixed penalty.
	Warnings []string `json:"warnings"`
	// PassedChecks lists checks that passed, for prompt feedback only.
	PassedChecks []string `json:"passed_checks"`
}

// HasErrors reports whether any critical check failed.
func (r *ValidationReport) HasErrors() bool {
	return len(r.Errors) > 0
}

// Clean reports whether the query passed every check with no warnings.
func (r *ValidationReport) Clean() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

// Attempt records one iteration of the refinement loop: the generated
// query and its validation report.
type Attempt struct {
	// Iteration is the 1-based iteration index.
	Iteration int `json:"iteration"`
	// Query is the generated Cypher query for this iteration.
	Query string `json:"query"`
	// Report is the validation outcome for Query.
	Report ValidationReport `json:"report"`
}

// RefinementResult is the outcome of one refinement run. It owns its
// Attempts slice exclusively; runs never share state.
type RefinementResult struct {
	// BestQuery is the highest-scoring query seen across all attempts.
	BestQuery string `json:"best_query"`
	// BestScore is the score of BestQuery.
	BestScore int `json:"best_score"`
	// BestIteration is the lowest iteration index that reached BestScore.
	BestIteration int `json:"best_iteration"`
	// BestReport is the validation report for BestQuery.
	BestReport ValidationReport `json:"best_report"`
	// Attempts holds every attempt in iteration order.
	Attempts []Attempt `json:"all_attempts"`
}

// TotalIterations returns the number of attempts made.
func (r *RefinementResult) TotalIterations() int {
	return len(r.Attempts)
}

// Improvement returns the score delta between the best attempt and the
// first attempt. Zero when only one attempt was made.
func (r *RefinementResult) Improvement() int {
	if len(r.Attempts) < 2 {
		return 0
	}
	return r.BestScore - r.Attempts[0].Report.Score
}
