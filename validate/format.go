package validate

import (
	"fmt"
	"strings"

	"github.com/pankgraph/cypherflow/types"
)

// FormatReport renders a validation report as human-readable text for
// inclusion in a refinement prompt.
func FormatReport(report *types.ValidationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Validation Score: %d/100\n", report.Score)

	if len(report.Errors) > 0 {
		b.WriteString("\nERRORS (must fix):\n")
		for i, err := range report.Errors {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, err)
		}
	}
	if len(report.Warnings) > 0 {
		b.WriteString("\nWARNINGS (should fix):\n")
		for i, warn := range report.Warnings {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, warn)
		}
	}
	if len(report.PassedChecks) > 0 {
		b.WriteString("\nPASSED CHECKS:\n")
		for _, check := range report.PassedChecks {
			fmt.Fprintf(&b, "  + %s\n", check)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
