package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// runsOnRequiredRule requires every job to declare a non-empty runs-on.
// Jobs that call a reusable workflow run nowhere themselves and are exempt.
type runsOnRequiredRule struct{}

func (runsOnRequiredRule) ID() string             { return "runs_on_required" }
func (runsOnRequiredRule) RequiresWorkflow() bool { return true }

func (runsOnRequiredRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(name string, key, value *cst.Node) {
		if value == nil || value.Kind != cst.KindMapping {
			return
		}
		if astquery.MappingValue(value, source, "uses") != nil {
			return
		}
		runsOn := astquery.MappingValue(value, source, "runs-on")
		if runsOn == nil {
			if mappingHasKey(value, source, "runs-on") {
				// Key present with no value.
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Job '%s' has empty 'runs-on' field. 'runs-on' is required and cannot be empty.", name),
					Severity: SeverityError,
					Span:     spanOf(value),
				})
				return
			}
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("Job '%s' is missing required 'runs-on' field.", name),
				Severity: SeverityError,
				Span:     spanOf(key),
			})
			return
		}
		if runsOn.Kind == cst.KindScalar && valueText(runsOn, source) == "" {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Job '%s' has empty 'runs-on' field. 'runs-on' is required and cannot be empty.", name),
				Severity: SeverityError,
				Span:     spanOf(runsOn),
			})
		}
	})
	return diags
}

// knownRunnerLabels are the GitHub-hosted runner images.
var knownRunnerLabels = []string{
	"ubuntu-latest", "ubuntu-24.04", "ubuntu-22.04", "ubuntu-20.04",
	"windows-latest", "windows-2025", "windows-2022", "windows-2019",
	"macos-latest", "macos-15", "macos-14", "macos-13", "macos-12",
}

// runnerLabelRule warns about runner labels outside the hosted catalog.
type runnerLabelRule struct{}

func (runnerLabelRule) ID() string             { return "runner_label" }
func (runnerLabelRule) RequiresWorkflow() bool { return true }

func (runnerLabelRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil {
			return
		}
		runsOn := astquery.MappingValue(value, source, "runs-on")
		if runsOn == nil || runsOn.Kind == cst.KindMapping {
			// Group/label mapping form delegates selection to the runner
			// group; nothing to match against the hosted catalog.
			return
		}
		items := sequenceScalars(runsOn)
		selfHosted := false
		for _, item := range items {
			label := valueText(item, source)
			if label == "self-hosted" || strings.HasPrefix(label, "self-hosted[") {
				selfHosted = true
			}
		}
		for _, item := range items {
			label := valueText(item, source)
			switch {
			case hasExpression(label):
			case label == "":
				diags = append(diags, Diagnostic{
					Message:  fmt.Sprintf("Job '%s' has empty runs-on label.", name),
					Severity: SeverityError,
					Span:     spanOf(item),
				})
			case selfHosted:
				// Extra labels alongside self-hosted name machine
				// capabilities, not hosted images.
			case !containsString(knownRunnerLabels, label):
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Job '%s' uses unknown runner label: '%s'. This may be a valid self-hosted runner or custom label.",
						name, label),
					Severity: SeverityWarning,
					Span:     spanOf(item),
				})
			}
		}
	})
	return diags
}
