package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
	"github.com/trussci/truss/pkg/exprlang"
)

// workflowCallOutputsRule validates reusable-workflow outputs: every output
// value must reference a real job output via jobs.<id>.outputs.<name>.
type workflowCallOutputsRule struct{}

func (workflowCallOutputsRule) ID() string             { return "workflow_call_outputs" }
func (workflowCallOutputsRule) RequiresWorkflow() bool { return true }

func (workflowCallOutputsRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	call, hasCall := hasWorkflowCallTrigger(tree, source)
	if !hasCall || call == nil {
		return nil
	}
	outputs := astquery.MappingValue(call, source, "outputs")
	if outputs == nil {
		return nil
	}

	names := jobNames(tree, source)
	jobOutputs := map[string][]string{}
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		outs := astquery.MappingValue(value, source, "outputs")
		if outs == nil || outs.Kind != cst.KindMapping {
			return
		}
		var keys []string
		for _, pair := range astquery.Pairs(outs) {
			keys = append(keys, astquery.PairKeyText(pair, source))
		}
		jobOutputs[name] = keys
	})

	var diags []Diagnostic
	text := outputs.Text(source)
	base := outputs.Start
	for _, expr := range astquery.FindExpressions(text) {
		inner := strings.TrimSpace(expr.Inner)
		span := exprSpan(base, expr)

		hasPattern := exprlang.ContainsFold(expr.Inner, "jobs.") &&
			exprlang.ContainsFold(expr.Inner, ".outputs.")
		if !hasPattern {
			if inner != "" {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"workflow_call output has invalid expression: '%s'. Output value must reference a job output using 'jobs.<job_id>.outputs.<output_name>'.",
						inner),
					Severity: SeverityError,
					Span:     span,
				})
			}
			continue
		}

		for _, ref := range jobOutputRefs(expr.Inner) {
			switch {
			case !containsString(names, ref.job):
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"workflow_call output references non-existent job: 'jobs.%s.outputs.%s'",
						ref.job, ref.output),
					Severity: SeverityError,
					Span:     span,
				})
			case len(jobOutputs[ref.job]) == 0:
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"workflow_call output references job '%s' which has no outputs defined.",
						ref.job),
					Severity: SeverityError,
					Span:     span,
				})
			case !containsString(jobOutputs[ref.job], ref.output):
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"workflow_call output references non-existent job output: 'jobs.%s.outputs.%s'. Available outputs: %s",
						ref.job, ref.output, availableList(jobOutputs[ref.job])),
					Severity: SeverityError,
					Span:     span,
				})
			}
		}
	}
	return diags
}

// jobOutputRef is one jobs.<job>.outputs.<output> reference.
type jobOutputRef struct {
	job    string
	output string
}

func jobOutputRefs(inner string) []jobOutputRef {
	var refs []jobOutputRef
	pos := 0
	for {
		idx := exprlang.IndexFold(inner[pos:], "jobs.")
		if idx < 0 {
			return refs
		}
		at := pos + idx + len("jobs.")
		pos = at
		rest := inner[at:]
		mid := strings.Index(rest, ".outputs.")
		if mid < 0 {
			continue
		}
		job := rest[:mid]
		nameStart := mid + len(".outputs.")
		nameEnd := nameStart
		for nameEnd < len(rest) && !isRefDelimiter(rest[nameEnd]) {
			nameEnd++
		}
		if job == "" || nameEnd == nameStart {
			continue
		}
		refs = append(refs, jobOutputRef{job: job, output: rest[nameStart:nameEnd]})
		pos = at + nameEnd
	}
}

// workflowCallSecretsRule validates declared secrets of a reusable workflow
// and every secrets.* reference against them. Regular workflows reference
// repository secrets freely; the rule only applies under workflow_call.
type workflowCallSecretsRule struct{}

func (workflowCallSecretsRule) ID() string             { return "workflow_call_secrets" }
func (workflowCallSecretsRule) RequiresWorkflow() bool { return true }

func (workflowCallSecretsRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	call, hasCall := hasWorkflowCallTrigger(tree, source)
	if !hasCall {
		return nil
	}

	var defined []string
	var diags []Diagnostic
	if call != nil {
		if secrets := astquery.MappingValue(call, source, "secrets"); secrets != nil && secrets.Kind == cst.KindMapping {
			for _, pair := range astquery.Pairs(secrets) {
				name := astquery.PairKeyText(pair, source)
				defined = append(defined, name)
				diags = append(diags, checkSecretProperties(pair, name, source)...)
			}
		}
	}

	for _, ref := range contextRefs(source, "secrets") {
		// GITHUB_TOKEN is injected by the platform and never declared.
		if ref.name == "GITHUB_TOKEN" || containsString(defined, ref.name) {
			continue
		}
		if len(defined) == 0 {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Secret '%s' is referenced but workflow_call has no secrets defined.", ref.name),
				Severity: SeverityError,
				Span:     ref.span,
			})
			continue
		}
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf(
				"Reference to undefined workflow_call secret '%s'. Available secrets: %s",
				ref.name, availableList(defined)),
			Severity: SeverityError,
			Span:     ref.span,
		})
	}
	return diags
}

func checkSecretProperties(pair *cst.Node, name, source string) []Diagnostic {
	value := astquery.Unwrap(astquery.PairValue(pair))
	if value == nil || value.Kind != cst.KindMapping {
		return nil
	}
	var diags []Diagnostic
	if required := astquery.MappingValue(value, source, "required"); required != nil {
		text := valueText(required, source)
		if text != "true" && text != "false" && !hasExpression(text) {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Secret '%s' has invalid 'required' value: '%s'. 'required' must be a boolean (true or false).",
					name, text),
				Severity: SeverityError,
				Span:     spanOf(required),
			})
		}
	}
	if desc := astquery.MappingValue(value, source, "description"); desc != nil {
		text := strings.TrimSpace(desc.Text(source))
		if astquery.TrimQuotes(text) == "" && !hasExpression(text) {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Secret '%s' has empty description. Consider adding a description to document the secret.",
					name),
				Severity: SeverityWarning,
				Span:     spanOf(desc),
			})
		}
	}
	return diags
}
