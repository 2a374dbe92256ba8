package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/cst"
)

// syntaxRule surfaces parser error-recovery regions as diagnostics. The
// parser never refuses a recoverable document; this rule is where the
// breakage becomes visible to the user.
type syntaxRule struct{}

func (syntaxRule) ID() string             { return "syntax" }
func (syntaxRule) RequiresWorkflow() bool { return false }

func (syntaxRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	if !tree.HadError {
		return nil
	}
	var diags []Diagnostic
	tree.Root.Walk(func(n *cst.Node) bool {
		if n.Kind != cst.KindError {
			return true
		}
		snippet := truncate(strings.TrimSpace(n.Text(source)), 50)
		diags = append(diags, Diagnostic{
			Message:  fmt.Sprintf("Syntax error: %s", snippet),
			Severity: SeverityError,
			Span:     spanOf(n),
		})
		// Error nodes may carry partially recovered children; one
		// diagnostic per region is enough.
		return false
	})
	if len(diags) == 0 {
		diags = append(diags, Diagnostic{
			Message:  "YAML syntax error detected",
			Severity: SeverityError,
			Span:     docStartSpan(source),
		})
	}
	return diags
}

// nonEmptyRule warns on documents with no content. Blank input is rejected
// at the parse step before rules run; this rule catches documents that
// parse but carry nothing (only comments or document markers).
type nonEmptyRule struct{}

func (nonEmptyRule) ID() string             { return "non_empty" }
func (nonEmptyRule) RequiresWorkflow() bool { return false }

func (nonEmptyRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	for _, c := range tree.Root.Children {
		if c.Kind != cst.KindComment {
			return nil
		}
	}
	return []Diagnostic{{
		Message:  "Document is empty",
		Severity: SeverityWarning,
		Span:     Span{},
	}}
}

// workflowSchemaRule checks the minimal workflow shape: a document that
// looks like a workflow must declare its triggers.
type workflowSchemaRule struct{}

func (workflowSchemaRule) ID() string             { return "workflow_schema" }
func (workflowSchemaRule) RequiresWorkflow() bool { return true }

func (workflowSchemaRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	if hasTopLevelKey(tree, source, "on") {
		return nil
	}
	return []Diagnostic{{
		Message:  "GitHub Actions workflow must have an 'on' field",
		Severity: SeverityError,
		Span:     docStartSpan(source),
	}}
}
