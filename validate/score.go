package validate

import "github.com/pankgraph/cypherflow/types"

// category identifies the class a finding belongs to. Each category carries
// a fixed score penalty applied at most once no matter how many findings of
// that class the query triggers: a query with three unnamed relationships
// is exactly as unusable as a query with one.
type category int

const (
	catAggregation category = iota
	catRelNaming
	catReturnFormat
	catDistinct
	catVocabulary
	catValueValidity
	catDirection
)

// penalties maps each error category to its deduction.
var penalties = map[category]int{
	catAggregation:   35,
	catRelNaming:     30,
	catReturnFormat:  25,
	catDistinct:      15,
	catVocabulary:    15,
	catValueValidity: 20,
	catDirection:     25,
}

// warningPenalty is deducted per scored warning. Warnings stack: each one
// is an independent quality nit rather than a class of breakage.
const warningPenalty = 5

type finding struct {
	category category
	message  string
}

type warning struct {
	message string
	// advisory warnings are surfaced in the report but carry no score
	// deduction. The unconstrained-pattern notice is advisory: a MATCH
	// without WHERE is often deliberate.
	advisory bool
}

// reportBuilder accumulates findings in check evaluation order and renders
// the final report.
type reportBuilder struct {
	errors   []finding
	warnings []warning
	passed   []string
}

func (b *reportBuilder) errorf(cat category, msg string) {
	b.errors = append(b.errors, finding{category: cat, message: msg})
}

func (b *reportBuilder) warn(msg string) {
	b.warnings = append(b.warnings, warning{message: msg})
}

func (b *reportBuilder) advise(msg string) {
	b.warnings = append(b.warnings, warning{message: msg, advisory: true})
}

func (b *reportBuilder) pass(msg string) {
	b.passed = append(b.passed, msg)
}

func (b *reportBuilder) hasErrors(cat category) bool {
	for _, f := range b.errors {
		if f.category == cat {
			return true
		}
	}
	return false
}

// build computes the score and assembles the report. The score starts at
// 100, loses each triggered category's penalty exactly once, loses 5 per
// scored warning, and never goes below 0.
func (b *reportBuilder) build() *types.ValidationReport {
	score := 100

	seen := make(map[category]struct{})
	for _, f := range b.errors {
		if _, ok := seen[f.category]; ok {
			continue
		}
		seen[f.category] = struct{}{}
		score -= penalties[f.category]
	}

	for _, w := range b.warnings {
		if !w.advisory {
			score -= warningPenalty
		}
	}

	if score < 0 {
		score = 0
	}

	report := &types.ValidationReport{Score: score}
	for _, f := range b.errors {
		report.Errors = append(report.Errors, f.message)
	}
	for _, w := range b.warnings {
		report.Warnings = append(report.Warnings, w.message)
	}
	report.PassedChecks = append(report.PassedChecks, b.passed...)
	return report
}
