package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// reservedJobNames cannot be used as job ids.
var reservedJobNames = []string{"if", "else", "elif", "for", "while", "with"}

// jobNameRule validates job ids: charset, length, uniqueness, and reserved
// words.
type jobNameRule struct{}

func (jobNameRule) ID() string             { return "job_name" }
func (jobNameRule) RequiresWorkflow() bool { return true }

func validJobName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isIdentChar(name[i]) {
			return false
		}
	}
	return true
}

func (jobNameRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	seen := map[string]bool{}
	astquery.VisitJobs(tree, source, func(name string, key, _ *cst.Node) {
		span := spanOf(key)
		if seen[name] {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("duplicate job name: '%s'", name),
				Severity: SeverityError,
				Span:     span,
			})
		}
		seen[name] = true

		if len(name) > 100 {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Job name '%s' is too long (%d characters). Consider using a shorter name (recommended: < 50 characters).",
					name, len(name)),
				Severity: SeverityWarning,
				Span:     span,
			})
		}
		if !validJobName(name) {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Invalid job name: '%s'. Job names must contain only alphanumeric characters, hyphens, and underscores.",
					name),
				Severity: SeverityError,
				Span:     span,
			})
		}
		if containsString(reservedJobNames, strings.ToLower(name)) {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("Reserved name cannot be used as job name: '%s'", name),
				Severity: SeverityError,
				Span:     span,
			})
		}
	})
	return diags
}
