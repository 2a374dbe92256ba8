package rules

import (
	"fmt"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// timeoutProblem classifies a timeout-minutes value, returning the message
// suffix or "" when the value is fine. Positive decimals are valid; the
// runner accepts fractional minutes.
func timeoutProblem(node *cst.Node, text string) string {
	if hasExpression(text) {
		return ""
	}
	if isQuoted(node) {
		return "Timeout must be a number, not a string."
	}
	v, ok := parseNumber(text)
	switch {
	case !ok:
		return "Timeout must be a number or expression."
	case v < 0:
		return "Timeout must be a positive number."
	case v == 0:
		return "Timeout must be a positive number (greater than zero)."
	}
	return ""
}

// timeoutRule validates job-level timeout-minutes.
type timeoutRule struct{}

func (timeoutRule) ID() string             { return "timeout" }
func (timeoutRule) RequiresWorkflow() bool { return true }

func (timeoutRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil {
			return
		}
		timeout := astquery.MappingValue(value, source, "timeout-minutes")
		if timeout == nil {
			return
		}
		text := valueText(timeout, source)
		if problem := timeoutProblem(timeout, text); problem != "" {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("Job '%s' has invalid timeout-minutes: '%s'. %s",
					name, text, problem),
				Severity: SeverityError,
				Span:     spanOf(timeout),
			})
		}
	})
	return diags
}

// stepTimeoutRule validates step-level timeout-minutes.
type stepTimeoutRule struct{}

func (stepTimeoutRule) ID() string             { return "step_timeout" }
func (stepTimeoutRule) RequiresWorkflow() bool { return true }

func (stepTimeoutRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		timeout := astquery.MappingValue(step, source, "timeout-minutes")
		if timeout == nil {
			return
		}
		text := valueText(timeout, source)
		if problem := timeoutProblem(timeout, text); problem != "" {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("Step has invalid timeout-minutes: '%s'. %s", text, problem),
				Severity: SeverityError,
				Span:     spanOf(timeout),
			})
		}
	})
	return diags
}
