package rules

import (
	"fmt"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// jobStrategyRule validates a job's `strategy` block: matrix presence and
// the max-parallel and fail-fast knobs.
type jobStrategyRule struct{}

func (jobStrategyRule) ID() string             { return "job_strategy" }
func (jobStrategyRule) RequiresWorkflow() bool { return true }

func (jobStrategyRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil {
			return
		}
		strategy := astquery.MappingValue(value, source, "strategy")
		if strategy == nil || strategy.Kind != cst.KindMapping {
			return
		}

		maxParallel := astquery.MappingValue(strategy, source, "max-parallel")
		failFast := astquery.MappingValue(strategy, source, "fail-fast")

		if astquery.MappingValue(strategy, source, "matrix") == nil {
			if maxParallel != nil || failFast != nil {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Job '%s' has a 'strategy' field with 'max-parallel' or 'fail-fast' but no 'matrix' field. Consider adding a matrix for better job distribution.",
						name),
					Severity: SeverityWarning,
					Span:     spanOf(strategy),
				})
			} else {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Job '%s' has a 'strategy' field but no 'matrix' field. Strategy requires a matrix to be defined.",
						name),
					Severity: SeverityError,
					Span:     spanOf(strategy),
				})
			}
		}

		if maxParallel != nil {
			text := valueText(maxParallel, source)
			if problem := maxParallelProblem(maxParallel, text); problem != "" {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf("Job '%s' has invalid max-parallel: '%s'. %s",
						name, text, problem),
					Severity: SeverityError,
					Span:     spanOf(maxParallel),
				})
			}
		}
		if failFast != nil {
			text := valueText(failFast, source)
			if problem := failFastProblem(failFast, text); problem != "" {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf("Job '%s' has invalid fail-fast: '%s'. %s",
						name, text, problem),
					Severity: SeverityError,
					Span:     spanOf(failFast),
				})
			}
		}
	})
	return diags
}

func maxParallelProblem(node *cst.Node, text string) string {
	if hasExpression(text) {
		return ""
	}
	if isQuoted(node) {
		return "max-parallel must be a number, not a string."
	}
	v, ok := parseNumber(text)
	switch {
	case !ok:
		return "max-parallel must be a number or expression."
	case v < 0:
		return "max-parallel must be a positive integer."
	case v == 0:
		return "max-parallel must be a positive integer (greater than zero)."
	}
	return ""
}

func failFastProblem(node *cst.Node, text string) string {
	if hasExpression(text) {
		return ""
	}
	if _, ok := parseBoolWord(text); ok {
		if isQuoted(node) {
			return "fail-fast must be a boolean, not a string."
		}
		return ""
	}
	if isQuoted(node) {
		return "fail-fast must be a boolean, not a string."
	}
	if _, numeric := parseNumber(text); numeric {
		return "fail-fast must be a boolean (true or false), not a number."
	}
	return "fail-fast must be a boolean (true or false)."
}

// matrixStrategyRule validates the shape of strategy.matrix itself.
type matrixStrategyRule struct{}

func (matrixStrategyRule) ID() string             { return "matrix_strategy" }
func (matrixStrategyRule) RequiresWorkflow() bool { return true }

func (matrixStrategyRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(_ string, _, value *cst.Node) {
		if value == nil {
			return
		}
		strategy := astquery.MappingValue(value, source, "strategy")
		if strategy == nil {
			return
		}
		matrix := astquery.MappingValue(strategy, source, "matrix")
		if matrix == nil {
			return
		}
		if hasExpression(matrix.Text(source)) {
			return
		}
		if matrix.Kind != cst.KindMapping || len(astquery.Pairs(matrix)) == 0 {
			diags = append(diags, Diagnostic{
				Message:  "matrix cannot be empty",
				Severity: SeverityError,
				Span:     spanOf(matrix),
			})
			return
		}

		hasDimension, hasIncludeExclude := false, false
		for _, pair := range astquery.Pairs(matrix) {
			key := astquery.PairKeyText(pair, source)
			if key == "include" || key == "exclude" {
				hasIncludeExclude = true
				item := astquery.Unwrap(astquery.PairValue(pair))
				if item != nil && item.Kind != cst.KindSequence && !hasExpression(item.Text(source)) {
					diags = append(diags, Diagnostic{
						Message:  fmt.Sprintf("Invalid %s syntax: must be an array", key),
						Severity: SeverityError,
						Span:     spanOf(item),
					})
				}
				continue
			}
			hasDimension = true
		}
		if !hasDimension && !hasIncludeExclude {
			diags = append(diags, Diagnostic{
				Message:  "Invalid matrix syntax: matrix must contain keys or include/exclude",
				Severity: SeverityError,
				Span:     spanOf(matrix),
			})
		}
	})
	return diags
}
