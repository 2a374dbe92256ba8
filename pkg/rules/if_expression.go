package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
	"github.com/trussci/truss/pkg/exprlang"
)

// ifExpressionText extracts the condition text of an `if:` value. The
// wrapping `${{ }}` is optional on conditions, so both forms analyze the
// same.
func ifExpressionText(node *cst.Node, source string) string {
	text := valueText(node, source)
	if inner, ok := strings.CutPrefix(text, "${{"); ok {
		if inner, ok = strings.CutSuffix(inner, "}}"); ok {
			return strings.TrimSpace(inner)
		}
	}
	return text
}

// jobIfExpressionRule validates job-level `if:` conditions: syntax, context
// names, trivially constant conditions, and jobs.* references.
type jobIfExpressionRule struct{}

func (jobIfExpressionRule) ID() string             { return "job_if_expression" }
func (jobIfExpressionRule) RequiresWorkflow() bool { return true }

func (jobIfExpressionRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	names := jobNames(tree, source)
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil {
			return
		}
		cond := astquery.MappingValue(value, source, "if")
		if cond == nil {
			return
		}
		expr := ifExpressionText(cond, source)
		if expr == "" {
			return
		}
		span := spanOf(cond)

		analysis := exprlang.Analyze(expr)
		if !analysis.Valid {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Job '%s' has invalid 'if' expression syntax: '%s'", name, expr),
				Severity: SeverityError,
				Span:     span,
			})
			return
		}
		for _, issue := range analysis.Issues {
			if issue.Kind == exprlang.IssueUnknownContext {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Job '%s' 'if' expression may reference undefined context variable: '%s'",
						name, expr),
					Severity: SeverityWarning,
					Span:     span,
				})
				break
			}
		}

		switch {
		case exprlang.IsAlwaysTrue(expr):
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Job '%s' 'if' expression may always evaluate to true: '%s'", name, expr),
				Severity: SeverityWarning,
				Span:     span,
			})
		case exprlang.IsAlwaysFalse(expr):
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Job '%s' 'if' expression may always evaluate to false: '%s'", name, expr),
				Severity: SeverityWarning,
				Span:     span,
			})
		}

		for _, ref := range jobRefsIn(expr) {
			if containsString(names, ref) {
				continue
			}
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Job '%s' 'if' expression references non-existent job: 'jobs.%s'", name, ref),
				Severity: SeverityError,
				Span:     span,
			})
		}
	})
	return diags
}

// jobRefsIn extracts the job ids of jobs.<id> references in a condition.
func jobRefsIn(expr string) []string {
	var refs []string
	pos := 0
	for {
		idx := exprlang.IndexFold(expr[pos:], "jobs.")
		if idx < 0 {
			return refs
		}
		at := pos + idx
		pos = at + len("jobs.")
		if at > 0 && (isIdentChar(expr[at-1]) || expr[at-1] == '.') {
			continue
		}
		rest := expr[at+len("jobs."):]
		end := 0
		for end < len(rest) && isIdentChar(rest[end]) {
			end++
		}
		if end > 0 {
			refs = append(refs, rest[:end])
			pos = at + len("jobs.") + end
		}
	}
}

// stepIfExpressionRule validates step-level `if:` conditions.
type stepIfExpressionRule struct{}

func (stepIfExpressionRule) ID() string             { return "step_if_expression" }
func (stepIfExpressionRule) RequiresWorkflow() bool { return true }

func (stepIfExpressionRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		cond := astquery.MappingValue(step, source, "if")
		if cond == nil {
			return
		}
		expr := ifExpressionText(cond, source)
		if expr == "" {
			return
		}
		span := spanOf(cond)

		analysis := exprlang.Analyze(expr)
		if !analysis.Valid {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("Invalid step 'if' expression syntax: '%s'", expr),
				Severity: SeverityError,
				Span:     span,
			})
			return
		}
		for _, issue := range analysis.Issues {
			if issue.Kind == exprlang.IssueUnknownContext {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Step 'if' expression may reference undefined context variable: '%s'", expr),
					Severity: SeverityWarning,
					Span:     span,
				})
				break
			}
		}

		switch {
		case exprlang.IsAlwaysTrue(expr):
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Step 'if' expression may always evaluate to true: '%s'", expr),
				Severity: SeverityWarning,
				Span:     span,
			})
		case exprlang.IsAlwaysFalse(expr):
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Step 'if' expression may always evaluate to false: '%s'", expr),
				Severity: SeverityWarning,
				Span:     span,
			})
		}
	})
	return diags
}
