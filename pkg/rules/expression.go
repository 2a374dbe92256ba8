package rules

import (
	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
	"github.com/trussci/truss/pkg/exprlang"
)

// expressionRule runs the expression analyzer over every `${{ ... }}` in the
// document: syntax, operators, context names, and function names. Unclosed
// expressions are reported here too.
type expressionRule struct{}

func (expressionRule) ID() string             { return "expression" }
func (expressionRule) RequiresWorkflow() bool { return true }

func (expressionRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	for _, expr := range astquery.FindExpressions(source) {
		span := Span{Start: expr.Start, End: expr.End}
		if !expr.Closed {
			diags = append(diags, Diagnostic{
				Message:  "unclosed expression",
				Severity: SeverityError,
				Span:     span,
			})
			continue
		}
		for _, issue := range exprlang.Analyze(expr.Inner).Issues {
			severity := SeverityWarning
			if issue.IsError() {
				severity = SeverityError
			}
			diags = append(diags, Diagnostic{
				Message:  issue.Message,
				Severity: severity,
				Span:     span,
			})
		}
	}
	return diags
}
