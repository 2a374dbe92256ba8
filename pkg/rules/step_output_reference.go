package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// stepOutputReferenceRule validates steps.<id>.outputs.<name> references
// anywhere in a job against the steps of that job. When a referenced step's
// run script declares its outputs (via $GITHUB_OUTPUT or the legacy
// ::set-output), the output name is checked too.
type stepOutputReferenceRule struct{}

func (stepOutputReferenceRule) ID() string             { return "step_output_reference" }
func (stepOutputReferenceRule) RequiresWorkflow() bool { return true }

// jobStepInfo is what one job declares: step ids in document order, names of
// steps lacking an id, and the outputs extracted per step id. An id maps to
// nil when its outputs cannot be determined statically.
type jobStepInfo struct {
	ids        []string
	withoutIDs []string
	outputs    map[string][]string
}

func collectJobStepInfo(tree *cst.Tree, source string) map[string]jobStepInfo {
	infos := map[string]jobStepInfo{}
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		info := jobStepInfo{outputs: map[string][]string{}}
		for _, step := range astquery.StepsOf(value, source) {
			id := astquery.MappingValue(step, source, "id")
			if id == nil {
				label := "unnamed"
				if n := astquery.MappingValue(step, source, "name"); n != nil {
					label = valueText(n, source)
				}
				info.withoutIDs = append(info.withoutIDs, label)
				continue
			}
			idText := valueText(id, source)
			if idText == "" {
				continue
			}
			info.ids = append(info.ids, idText)
			if run := astquery.MappingValue(step, source, "run"); run != nil {
				info.outputs[idText] = runScriptOutputs(run.Text(source))
			}
		}
		infos[name] = info
	})
	return infos
}

// runScriptOutputs extracts the output names a run script writes, or nil
// when none can be determined.
func runScriptOutputs(script string) []string {
	var outputs []string
	for _, line := range strings.Split(script, "\n") {
		if strings.Contains(line, "$GITHUB_OUTPUT") {
			if name := echoOutputName(line); name != "" && !containsString(outputs, name) {
				outputs = append(outputs, name)
			}
			continue
		}
		if idx := strings.Index(line, "::set-output name="); idx >= 0 {
			rest := line[idx+len("::set-output name="):]
			end := 0
			for end < len(rest) && isIdentChar(rest[end]) {
				end++
			}
			if end > 0 && !containsString(outputs, rest[:end]) {
				outputs = append(outputs, rest[:end])
			}
		}
	}
	return outputs
}

// echoOutputName pulls the name out of `echo "name=value" >> $GITHUB_OUTPUT`,
// with or without quoting.
func echoOutputName(line string) string {
	idx := strings.Index(line, "echo ")
	if idx < 0 {
		return ""
	}
	arg := strings.TrimSpace(line[idx+len("echo "):])
	if len(arg) > 0 && (arg[0] == '"' || arg[0] == '\'') {
		arg = arg[1:]
	}
	end := 0
	for end < len(arg) && isIdentChar(arg[end]) {
		end++
	}
	if end == 0 || end >= len(arg) || arg[end] != '=' {
		return ""
	}
	return arg[:end]
}

func (stepOutputReferenceRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	infos := collectJobStepInfo(tree, source)
	if len(infos) == 0 {
		return nil
	}

	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil {
			return
		}
		info := infos[name]
		for _, ref := range stepOutputRefsIn(value.Text(source), value.Start) {
			if !ref.complete {
				continue
			}
			prefix := fmt.Sprintf("Job '%s' references step output 'steps.%s.outputs.%s'",
				name, ref.step, ref.output)

			if !containsString(info.ids, ref.step) {
				otherJob := ""
				for _, other := range jobNames(tree, source) {
					if other != name && containsString(infos[other].ids, ref.step) {
						otherJob = other
						break
					}
				}
				switch {
				case otherJob != "":
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf(
							"%s but step '%s' is in job '%s'. Step outputs can only be referenced within the same job.",
							prefix, ref.step, otherJob),
						Severity: SeverityError,
						Span:     ref.span,
					})
				case len(info.withoutIDs) > 0:
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf(
							"%s but step '%s' does not have an 'id' field. Steps must have an 'id' field to be referenced.",
							prefix, ref.step),
						Severity: SeverityError,
						Span:     ref.span,
					})
				default:
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf(
							"%s but step '%s' does not exist in this job.", prefix, ref.step),
						Severity: SeverityError,
						Span:     ref.span,
					})
				}
				continue
			}

			if known := info.outputs[ref.step]; len(known) > 0 && !containsString(known, ref.output) {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"%s but output '%s' is not found. Available outputs: %s",
						prefix, ref.output, availableList(known)),
					Severity: SeverityError,
					Span:     ref.span,
				})
				continue
			}
			if !validJobName(ref.output) {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"%s with potentially invalid output name format. Output names should contain only alphanumeric characters, hyphens, and underscores.",
						prefix),
					Severity: SeverityWarning,
					Span:     ref.span,
				})
			}
		}
	})
	return diags
}
