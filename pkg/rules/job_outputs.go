package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
	"github.com/trussci/truss/pkg/exprlang"
)

// stepOutputRef is one steps.<id>.outputs[.<name>] reference found inside an
// expression, with its span in document byte offsets.
type stepOutputRef struct {
	step     string
	output   string
	complete bool
	span     Span
}

// stepOutputRefsIn scans text (located at base in the document) for
// steps.<id>.outputs references.
func stepOutputRefsIn(text string, base int) []stepOutputRef {
	var refs []stepOutputRef
	for _, expr := range astquery.FindExpressions(text) {
		inner := expr.Inner
		innerBase := base + expr.Start + 3
		pos := 0
		for {
			idx := exprlang.IndexFold(inner[pos:], "steps.")
			if idx < 0 {
				break
			}
			at := pos + idx
			pos = at + len("steps.")
			if at > 0 && (isIdentChar(inner[at-1]) || inner[at-1] == '.') {
				continue
			}
			rest := inner[at+len("steps."):]
			dot := strings.IndexByte(rest, '.')
			if dot <= 0 {
				continue
			}
			step := rest[:dot]
			if !strings.HasPrefix(rest[dot:], ".outputs") {
				continue
			}
			ref := stepOutputRef{step: step}
			tail := rest[dot+len(".outputs"):]
			end := at + len("steps.") + dot + len(".outputs")
			if strings.HasPrefix(tail, ".") {
				nameEnd := 1
				for nameEnd < len(tail) && !isRefDelimiter(tail[nameEnd]) {
					nameEnd++
				}
				if nameEnd > 1 {
					ref.output = tail[1:nameEnd]
					ref.complete = true
					end += nameEnd
				}
			}
			ref.span = Span{Start: innerBase + at, End: innerBase + end}
			refs = append(refs, ref)
			pos = end
		}
	}
	return refs
}

// stepIDsOf returns the `id` values of a job's steps in document order.
func stepIDsOf(jobValue *cst.Node, source string) []string {
	var ids []string
	for _, step := range astquery.StepsOf(jobValue, source) {
		if id := astquery.MappingValue(step, source, "id"); id != nil {
			if text := valueText(id, source); text != "" {
				ids = append(ids, text)
			}
		}
	}
	return ids
}

// jobOutputsRule validates each job's `outputs` block: every steps.* value
// must name a step id that exists in the same job and carry a property name.
type jobOutputsRule struct{}

func (jobOutputsRule) ID() string             { return "job_outputs" }
func (jobOutputsRule) RequiresWorkflow() bool { return true }

func (jobOutputsRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil {
			return
		}
		outputs := astquery.MappingValue(value, source, "outputs")
		if outputs == nil {
			return
		}
		ids := stepIDsOf(value, source)
		for _, ref := range stepOutputRefsIn(outputs.Text(source), outputs.Start) {
			if !containsString(ids, ref.step) {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Job '%s' output references step '%s' which does not exist. Available step IDs: %s",
						name, ref.step, availableList(ids)),
					Severity: SeverityError,
					Span:     ref.span,
				})
				continue
			}
			if !ref.complete {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Job '%s' output has invalid syntax. Output reference 'steps.%s.outputs' is missing the output property name. Expected format: steps.%s.outputs.property_name",
						name, ref.step, ref.step),
					Severity: SeverityError,
					Span:     ref.span,
				})
			}
		}
	})
	return diags
}
