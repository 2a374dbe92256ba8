package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// inputDef is one declared input: its name, declared type (empty when the
// definition has no type field), and the span of the type value.
type inputDef struct {
	name     string
	typeName string
	typeSpan Span
}

// collectInputDefs reads the input definitions under a trigger's `inputs`
// mapping, in document order.
func collectInputDefs(trigger *cst.Node, source string) []inputDef {
	inputs := astquery.MappingValue(trigger, source, "inputs")
	if inputs == nil || inputs.Kind != cst.KindMapping {
		return nil
	}
	var defs []inputDef
	for _, pair := range astquery.Pairs(inputs) {
		def := inputDef{name: astquery.PairKeyText(pair, source)}
		if value := astquery.Unwrap(astquery.PairValue(pair)); value != nil {
			if typeNode := astquery.MappingValue(value, source, "type"); typeNode != nil {
				def.typeName = valueText(typeNode, source)
				def.typeSpan = spanOf(typeNode)
			}
		}
		defs = append(defs, def)
	}
	return defs
}

func inputNames(defs []inputDef) []string {
	var names []string
	for _, d := range defs {
		names = append(names, d.name)
	}
	return names
}

func hasInputDef(defs []inputDef, name string) bool {
	for _, d := range defs {
		if d.name == name {
			return true
		}
	}
	return false
}

// availableList renders a name list for a message, in the order given.
func availableList(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// workflowInputsRule validates workflow_dispatch input declarations and
// `inputs.*` references against them.
type workflowInputsRule struct{}

func (workflowInputsRule) ID() string             { return "workflow_inputs" }
func (workflowInputsRule) RequiresWorkflow() bool { return true }

var dispatchInputTypes = []string{"string", "choice", "boolean", "environment"}

func (workflowInputsRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	on := onValueNode(tree, source)
	if on == nil || on.Kind != cst.KindMapping {
		return nil
	}
	dispatch := astquery.MappingValue(on, source, "workflow_dispatch")
	if dispatch == nil {
		return nil
	}

	var diags []Diagnostic
	defs := collectInputDefs(dispatch, source)
	for _, def := range defs {
		if def.typeName == "" || containsString(dispatchInputTypes, def.typeName) {
			continue
		}
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf(
				"Invalid input type '%s' for input '%s'. Valid types are: string, choice, boolean, environment",
				def.typeName, def.name),
			Severity: SeverityError,
			Span:     def.typeSpan,
		})
	}

	for _, ref := range contextRefs(source, "inputs") {
		if hasInputDef(defs, ref.name) {
			continue
		}
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf("Reference to undefined input '%s'. Available inputs: %s",
				ref.name, availableList(inputNames(defs))),
			Severity: SeverityError,
			Span:     ref.span,
		})
	}
	return diags
}

// workflowCallInputsRule validates reusable-workflow input declarations and
// `inputs.*` references. When neither workflow_call nor workflow_dispatch
// is declared, any inputs reference is an error; with workflow_dispatch
// present the dispatch rule owns reference checking.
type workflowCallInputsRule struct{}

func (workflowCallInputsRule) ID() string             { return "workflow_call_inputs" }
func (workflowCallInputsRule) RequiresWorkflow() bool { return true }

var callInputTypes = []string{"string", "number", "choice", "boolean", "environment"}

func (workflowCallInputsRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	on := onValueNode(tree, source)
	if on == nil {
		return nil
	}

	call, hasCall := hasWorkflowCallTrigger(tree, source)
	if !hasCall {
		if on.Kind == cst.KindMapping && mappingHasKey(on, source, "workflow_dispatch") {
			return nil
		}
		var diags []Diagnostic
		for _, ref := range contextRefs(source, "inputs") {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Reference to input '%s' but workflow_call trigger is not defined", ref.name),
				Severity: SeverityError,
				Span:     ref.span,
			})
		}
		return diags
	}
	if call == nil {
		// Bare `workflow_call` trigger with no inputs block; references
		// cannot be checked against anything.
		return nil
	}

	var diags []Diagnostic
	defs := collectInputDefs(call, source)
	for _, def := range defs {
		if def.typeName == "" || containsString(callInputTypes, def.typeName) {
			continue
		}
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf(
				"Invalid input type '%s' for workflow_call input '%s'. Valid types are: string, number, choice, boolean, environment",
				def.typeName, def.name),
			Severity: SeverityError,
			Span:     def.typeSpan,
		})
	}

	diags = append(diags, checkCallInputProperties(call, source)...)

	for _, ref := range contextRefs(source, "inputs") {
		if hasInputDef(defs, ref.name) {
			continue
		}
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf(
				"Reference to undefined workflow_call input '%s'. Available inputs: %s",
				ref.name, availableList(inputNames(defs))),
			Severity: SeverityError,
			Span:     ref.span,
		})
	}
	return diags
}

// checkCallInputProperties validates required/default/description on each
// workflow_call input definition.
func checkCallInputProperties(call *cst.Node, source string) []Diagnostic {
	inputs := astquery.MappingValue(call, source, "inputs")
	if inputs == nil || inputs.Kind != cst.KindMapping {
		return nil
	}
	var diags []Diagnostic
	for _, pair := range astquery.Pairs(inputs) {
		name := astquery.PairKeyText(pair, source)
		value := astquery.Unwrap(astquery.PairValue(pair))
		if value == nil || value.Kind != cst.KindMapping {
			continue
		}

		if required := astquery.MappingValue(value, source, "required"); required != nil {
			text := valueText(required, source)
			if text != "true" && text != "false" && !hasExpression(text) {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Input '%s' has invalid 'required' value: '%s'. 'required' must be a boolean (true or false).",
						name, text),
					Severity: SeverityError,
					Span:     spanOf(required),
				})
			}
		}

		if def := astquery.MappingValue(value, source, "default"); def != nil {
			typeName := ""
			if typeNode := astquery.MappingValue(value, source, "type"); typeNode != nil {
				typeName = valueText(typeNode, source)
			}
			defText := valueText(def, source)
			if typeName == "boolean" && !hasExpression(defText) && defText != "true" && defText != "false" {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Input '%s' has invalid default value for boolean type: '%s'. Default must be 'true' or 'false'.",
						name, defText),
					Severity: SeverityWarning,
					Span:     spanOf(def),
				})
			}
		}

		if desc := astquery.MappingValue(value, source, "description"); desc != nil {
			text := strings.TrimSpace(desc.Text(source))
			if astquery.TrimQuotes(text) == "" && !hasExpression(text) {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Input '%s' has empty description. Consider adding a description to document the input.",
						name),
					Severity: SeverityWarning,
					Span:     spanOf(desc),
				})
			}
		}
	}
	return diags
}
