package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// knownEvents is the catalog of trigger event names. Mapping-form triggers
// with event-specific payload fields get deeper checks from eventPayloadRule.
var knownEvents = []string{
	"branch_protection_rule", "check_run", "check_suite", "create", "delete",
	"deployment", "deployment_status", "discussion", "discussion_comment",
	"fork", "gollum", "issue_comment", "issues", "label", "merge_group",
	"milestone", "page_build", "project", "project_card", "project_column",
	"public", "pull_request", "pull_request_comment", "pull_request_review",
	"pull_request_review_comment", "pull_request_target", "push",
	"registry_package", "release", "repository_dispatch", "schedule",
	"status", "watch", "workflow_call", "workflow_dispatch", "workflow_run",
}

// workflowTriggerRule validates the `on:` trigger declaration in all three
// accepted shapes: single scalar, sequence of names, and mapping with
// per-event configuration.
type workflowTriggerRule struct{}

func (workflowTriggerRule) ID() string             { return "workflow_trigger" }
func (workflowTriggerRule) RequiresWorkflow() bool { return true }

func (workflowTriggerRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	on := onValueNode(tree, source)
	if on == nil {
		if hasTopLevelKey(tree, source, "on") {
			// Key-only `on:` with no triggers; the schema rule accepted it,
			// nothing more to say about the individual events.
			return nil
		}
		return []Diagnostic{{
			Message:  "Workflow must have an 'on' field",
			Severity: SeverityError,
			Span:     docStartSpan(source),
		}}
	}

	var diags []Diagnostic
	onText := on.Text(source)
	if strings.Contains(onText, ", ]") || strings.Contains(onText, ",]") {
		diags = append(diags, Diagnostic{
			Message:  "Invalid trigger syntax: empty array item",
			Severity: SeverityError,
			Span:     spanOf(on),
		})
	}

	check := func(name string, n *cst.Node) {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == "" || containsString(knownEvents, lower) {
			return
		}
		diags = append(diags, Diagnostic{
			Message:  fmt.Sprintf("Invalid event type: '%s'", lower),
			Severity: SeverityError,
			Span:     spanOf(n),
		})
	}

	switch on.Kind {
	case cst.KindScalar:
		check(valueText(on, source), on)
	case cst.KindSequence:
		for _, item := range sequenceScalars(on) {
			check(valueText(item, source), item)
		}
	case cst.KindMapping:
		for _, pair := range astquery.Pairs(on) {
			key := astquery.PairKey(pair)
			check(astquery.CleanKey(key.Text(source)), key)
		}
	}
	return diags
}

// workflowNameRule validates the top-level workflow name.
type workflowNameRule struct{}

func (workflowNameRule) ID() string             { return "workflow_name" }
func (workflowNameRule) RequiresWorkflow() bool { return true }

func (workflowNameRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	name := topLevelValue(tree, source, "name")
	if name == nil {
		return nil
	}
	cleaned := valueText(name, source)

	var diags []Diagnostic
	if cleaned == "" || cleaned == `""` || cleaned == "''" {
		diags = append(diags, Diagnostic{
			Message:  "Workflow name cannot be empty",
			Severity: SeverityError,
			Span:     spanOf(name),
		})
	}
	if !hasExpression(cleaned) && len(cleaned) > 255 {
		diags = append(diags, Diagnostic{
			Message:  fmt.Sprintf("Workflow name is too long (%d characters, maximum is 255)", len(cleaned)),
			Severity: SeverityError,
			Span:     spanOf(name),
		})
	}
	return diags
}
