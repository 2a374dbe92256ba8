package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// untrustedInputs are the github context paths controlled by external users.
// Interpolating one of these directly into a shell script lets an attacker
// choose part of the script text.
var untrustedInputs = []string{
	"github.event.issue.title",
	"github.event.issue.body",
	"github.event.pull_request.title",
	"github.event.pull_request.body",
	"github.event.pull_request.head.ref",
	"github.event.pull_request.head.label",
	"github.event.comment.body",
	"github.event.review.body",
	"github.event.review_comment.body",
	"github.event.discussion.title",
	"github.event.discussion.body",
	"github.event.pages.*.page_name",
	"github.event.commits.*.message",
	"github.event.commits.*.author.name",
	"github.event.commits.*.author.email",
	"github.event.head_commit.message",
	"github.event.head_commit.author.name",
	"github.event.head_commit.author.email",
	"github.head_ref",
}

// scriptInjectionRule flags untrusted event payload fields interpolated into
// `run` scripts.
type scriptInjectionRule struct{}

func (scriptInjectionRule) ID() string             { return "script_injection" }
func (scriptInjectionRule) RequiresWorkflow() bool { return true }

func (scriptInjectionRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		run := astquery.MappingValue(step, source, "run")
		if run == nil {
			return
		}
		text := run.Text(source)
		for _, expr := range astquery.FindExpressions(text) {
			inner := strings.TrimSpace(expr.Inner)
			for _, untrusted := range untrustedInputs {
				if inner == untrusted || strings.HasPrefix(inner, untrusted+".") {
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf(
							"Potential script injection: untrusted input '%s' is used directly in a 'run' script. Use an environment variable instead: env: MY_VAR: ${{ %s }}",
							untrusted, inner),
						Severity: SeverityWarning,
						Span:     spanOf(run),
					})
					break
				}
				if strings.Contains(inner, untrusted) {
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf(
							"Potential script injection: expression contains untrusted input '%s'. Consider passing untrusted values through environment variables.",
							untrusted),
						Severity: SeverityWarning,
						Span:     spanOf(run),
					})
					break
				}
			}
		}
	})
	return diags
}

// deprecatedCommand pairs a retired workflow command with its replacement.
type deprecatedCommand struct {
	command string
	advice  string
}

var deprecatedCommands = []deprecatedCommand{
	{"::set-output", "Use `echo \"name=value\" >> $GITHUB_OUTPUT` instead"},
	{"::save-state", "Use `echo \"name=value\" >> $GITHUB_STATE` instead"},
	{"::set-env", "Use `echo \"name=value\" >> $GITHUB_ENV` instead"},
	{"::add-path", "Use `echo \"path\" >> $GITHUB_PATH` instead"},
}

// deprecatedCommandsRule flags retired `::command` workflow commands inside
// run scripts.
type deprecatedCommandsRule struct{}

func (deprecatedCommandsRule) ID() string             { return "deprecated_commands" }
func (deprecatedCommandsRule) RequiresWorkflow() bool { return true }

func (deprecatedCommandsRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		run := astquery.MappingValue(step, source, "run")
		if run == nil {
			return
		}
		text := run.Text(source)
		for _, dep := range deprecatedCommands {
			if !strings.Contains(text, dep.command) {
				continue
			}
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("Deprecated workflow command '%s' detected. %s",
					dep.command, dep.advice),
				Severity: SeverityWarning,
				Span:     spanOf(run),
			})
		}
	})
	return diags
}
