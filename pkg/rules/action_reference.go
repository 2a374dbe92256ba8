package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// actionReferenceRule validates step `uses` references to remote actions:
// owner/repo@ref with a non-empty owner, repo, and ref. Local paths and
// docker:// references are out of scope here.
type actionReferenceRule struct{}

func (actionReferenceRule) ID() string             { return "action_reference" }
func (actionReferenceRule) RequiresWorkflow() bool { return true }

func isLocalAction(ref string) bool {
	return strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") || strings.HasPrefix(ref, "/")
}

func (actionReferenceRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		uses := astquery.MappingValue(step, source, "uses")
		if uses == nil {
			return
		}
		text := valueText(uses, source)
		if text == "" || hasExpression(text) || isLocalAction(text) || strings.HasPrefix(text, "docker://") {
			return
		}
		if msg := actionReferenceProblem(text); msg != "" {
			diags = append(diags, Diagnostic{
				Message:  msg,
				Severity: SeverityError,
				Span:     spanOf(uses),
			})
		}
	})
	return diags
}

func actionReferenceProblem(ref string) string {
	path, version, found := strings.Cut(ref, "@")
	if !found {
		return fmt.Sprintf(
			"action reference '%s' is missing required '@ref'. Remote actions must specify a version, branch, or SHA (e.g., owner/repo@v1).", ref)
	}
	if version == "" || strings.Contains(version, "@") {
		return fmt.Sprintf(
			"action reference '%s' has invalid format. Expected format: owner/repo@ref", ref)
	}
	owner, repo, found := strings.Cut(path, "/")
	if !found {
		return fmt.Sprintf(
			"action reference '%s' is missing owner. Expected format: owner/repo@ref (e.g., actions/checkout@v3)", ref)
	}
	if owner == "" || strings.Contains(owner, " ") {
		return fmt.Sprintf(
			"action reference '%s' has invalid owner format. Owner cannot contain spaces or be empty.", ref)
	}
	// repo may carry a subdirectory (owner/repo/path@ref); only the leading
	// repository segment must be non-empty.
	if seg, _, _ := strings.Cut(repo, "/"); seg == "" {
		return fmt.Sprintf(
			"action reference '%s' has invalid format. Repository name cannot be empty.", ref)
	}
	return ""
}

// reusableWorkflowCallRule validates job-level `uses` references to reusable
// workflows, plus empty with/secrets blocks on the calling job.
type reusableWorkflowCallRule struct{}

func (reusableWorkflowCallRule) ID() string             { return "reusable_workflow_call" }
func (reusableWorkflowCallRule) RequiresWorkflow() bool { return true }

func (reusableWorkflowCallRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil || value.Kind != cst.KindMapping {
			return
		}
		uses := astquery.MappingValue(value, source, "uses")
		if uses == nil {
			return
		}
		text := valueText(uses, source)
		if text != "" && !hasExpression(text) {
			diags = append(diags, checkWorkflowCallRef(uses, source, name, text)...)
		}

		if with := astquery.MappingValue(value, source, "with"); with == nil && mappingHasKey(value, source, "with") {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Job '%s' reusable workflow call has empty 'with:' field. Remove it or provide input values.", name),
				Severity: SeverityWarning,
				Span:     spanOf(value),
			})
		}
		if secrets := astquery.MappingValue(value, source, "secrets"); secrets == nil && mappingHasKey(value, source, "secrets") {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Job '%s' reusable workflow call has empty 'secrets:' field. Remove it or provide secret values.", name),
				Severity: SeverityWarning,
				Span:     spanOf(value),
			})
		}
	})
	return diags
}

func checkWorkflowCallRef(uses *cst.Node, source, job, text string) []Diagnostic {
	span := spanOf(uses)

	if isLocalAction(text) {
		// Same-repository call; no @ref, but the path shape still applies.
		if !strings.Contains(text, ".github/workflows/") {
			return []Diagnostic{{
				Message: fmt.Sprintf(
					"Job '%s' reusable workflow call has invalid path: '%s'. Path must contain '/.github/workflows/'",
					job, text),
				Severity: SeverityError,
				Span:     span,
			}}
		}
		return nil
	}

	path, _, found := strings.Cut(text, "@")
	if !strings.Contains(path, "/") {
		return []Diagnostic{{
			Message: fmt.Sprintf(
				"Job '%s' reusable workflow call '%s' has invalid format: missing path. Format: owner/repo/.github/workflows/file.yml@ref",
				job, text),
			Severity: SeverityError,
			Span:     span,
		}}
	}
	if !found {
		return []Diagnostic{{
			Message: fmt.Sprintf(
				"Job '%s' reusable workflow call '%s' is missing @ref. Format: owner/repo/.github/workflows/file.yml@ref",
				job, text),
			Severity: SeverityError,
			Span:     span,
		}}
	}
	if !strings.Contains(path, "/.github/workflows/") {
		return []Diagnostic{{
			Message: fmt.Sprintf(
				"Job '%s' reusable workflow call has invalid path: '%s'. Path must contain '/.github/workflows/'",
				job, path),
			Severity: SeverityError,
			Span:     span,
		}}
	}
	return nil
}
