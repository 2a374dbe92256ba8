package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// stepRule checks the basic shape of each step: exactly one of `uses` or
// `run`, and a plausibly versioned action reference.
type stepRule struct{}

func (stepRule) ID() string             { return "step" }
func (stepRule) RequiresWorkflow() bool { return true }

func (stepRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		if step.Kind != cst.KindMapping {
			return
		}
		uses := astquery.MappingValue(step, source, "uses")
		run := astquery.MappingValue(step, source, "run")
		hasUses := uses != nil || mappingHasKey(step, source, "uses")
		hasRun := run != nil || mappingHasKey(step, source, "run")

		switch {
		case !hasUses && !hasRun:
			diags = append(diags, Diagnostic{
				Message:  "Step must have either 'uses' or 'run' field",
				Severity: SeverityError,
				Span:     spanOf(step),
			})
			return
		case hasUses && hasRun:
			diags = append(diags, Diagnostic{
				Message:  "Step cannot have both 'uses' and 'run' fields",
				Severity: SeverityError,
				Span:     spanOf(step),
			})
			return
		}

		if uses == nil {
			return
		}
		text := valueText(uses, source)
		if text == "" || hasExpression(text) || isLocalAction(text) || strings.HasPrefix(text, "docker://") {
			return
		}
		if !strings.Contains(text, "@") {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("Invalid action reference format: '%s' (missing @ref)", text),
				Severity: SeverityWarning,
				Span:     spanOf(uses),
			})
		}
	})
	return diags
}

// stepIDUniquenessRule checks step ids for charset and per-job uniqueness.
type stepIDUniquenessRule struct{}

func (stepIDUniquenessRule) ID() string             { return "step_id_uniqueness" }
func (stepIDUniquenessRule) RequiresWorkflow() bool { return true }

func (stepIDUniquenessRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		seen := map[string]bool{}
		for _, step := range astquery.StepsOf(value, source) {
			id := astquery.MappingValue(step, source, "id")
			if id == nil {
				continue
			}
			text := valueText(id, source)
			if text == "" || hasExpression(text) {
				continue
			}
			if !validJobName(text) {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Job '%s' has step ID '%s' with invalid format. Step IDs must contain only alphanumeric characters, hyphens, and underscores.",
						name, text),
					Severity: SeverityWarning,
					Span:     spanOf(id),
				})
			}
			if seen[text] {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Job '%s' has duplicate step ID: '%s'. Step IDs must be unique within a job.",
						name, text),
					Severity: SeverityError,
					Span:     spanOf(id),
				})
			}
			seen[text] = true
		}
	})
	return diags
}

// stepNameRule warns about empty and unwieldy step names.
type stepNameRule struct{}

func (stepNameRule) ID() string             { return "step_name" }
func (stepNameRule) RequiresWorkflow() bool { return true }

func (stepNameRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		name := astquery.MappingValue(step, source, "name")
		if name == nil {
			if step.Kind == cst.KindMapping && mappingHasKey(step, source, "name") {
				diags = append(diags, Diagnostic{
					Message:  "Step has empty name. Consider providing a descriptive name for better workflow visibility.",
					Severity: SeverityWarning,
					Span:     spanOf(step),
				})
			}
			return
		}
		text := valueText(name, source)
		if hasExpression(text) {
			return
		}
		switch {
		case text == "":
			diags = append(diags, Diagnostic{
				Message:  "Step has empty name. Consider providing a descriptive name for better workflow visibility.",
				Severity: SeverityWarning,
				Span:     spanOf(name),
			})
		case len(text) > 100:
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Step name is very long (%d characters). Consider using a shorter, more concise name.",
					len(text)),
				Severity: SeverityWarning,
				Span:     spanOf(name),
			})
		}
	})
	return diags
}
