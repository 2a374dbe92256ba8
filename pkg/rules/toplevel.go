package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// permissionsRule validates GITHUB_TOKEN permission blocks at the workflow
// and job level: scalar shorthand values and per-scope grants.
type permissionsRule struct{}

func (permissionsRule) ID() string             { return "permissions" }
func (permissionsRule) RequiresWorkflow() bool { return true }

var permissionScopes = []string{
	"actions", "attestations", "checks", "contents", "deployments",
	"discussions", "id-token", "issues", "models", "packages", "pages",
	"pull-requests", "repository-projects", "security-events", "statuses",
}

func (permissionsRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	if perms := topLevelValue(tree, source, "permissions"); perms != nil {
		diags = append(diags, checkPermissions(perms, source)...)
	}
	astquery.VisitJobs(tree, source, func(_ string, _, value *cst.Node) {
		if value == nil {
			return
		}
		if perms := astquery.MappingValue(value, source, "permissions"); perms != nil {
			diags = append(diags, checkPermissions(perms, source)...)
		}
	})
	return diags
}

func checkPermissions(perms *cst.Node, source string) []Diagnostic {
	var diags []Diagnostic
	switch perms.Kind {
	case cst.KindScalar:
		text := valueText(perms, source)
		switch text {
		case "read-all", "write-all", "none", "":
		default:
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Invalid permission value: '%s' (must be 'read-all', 'write-all', or 'none')", text),
				Severity: SeverityError,
				Span:     spanOf(perms),
			})
		}
	case cst.KindMapping:
		for _, pair := range astquery.Pairs(perms) {
			key := astquery.PairKey(pair)
			scope := astquery.CleanKey(key.Text(source))
			if !containsString(permissionScopes, scope) {
				diags = append(diags, Diagnostic{
					Message:  fmt.Sprintf("Invalid permission scope: '%s'", scope),
					Severity: SeverityError,
					Span:     spanOf(key),
				})
			}
			value := astquery.Unwrap(astquery.PairValue(pair))
			if value == nil {
				continue
			}
			text := valueText(value, source)
			switch text {
			case "read", "write", "none":
			default:
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Invalid permission value: '%s' (must be 'read', 'write', or 'none')", text),
					Severity: SeverityError,
					Span:     spanOf(value),
				})
			}
		}
	}
	return diags
}

// environmentRule validates job environment declarations in both the scalar
// and the name/url mapping form.
type environmentRule struct{}

func (environmentRule) ID() string             { return "environment" }
func (environmentRule) RequiresWorkflow() bool { return true }

func (environmentRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(_ string, _, value *cst.Node) {
		if value == nil {
			return
		}
		env := astquery.MappingValue(value, source, "environment")
		if env == nil {
			return
		}
		switch env.Kind {
		case cst.KindScalar:
			diags = append(diags, checkEnvironmentName(env, source)...)
		case cst.KindMapping:
			for _, pair := range astquery.Pairs(env) {
				if astquery.PairKeyText(pair, source) == "protection_rules" {
					diags = append(diags, Diagnostic{
						Message:  "environment protection_rules is not supported in workflow YAML",
						Severity: SeverityError,
						Span:     spanOf(astquery.PairKey(pair)),
					})
				}
			}
			if name := astquery.MappingValue(env, source, "name"); name != nil {
				diags = append(diags, checkEnvironmentName(name, source)...)
			}
		}
	})
	return diags
}

func checkEnvironmentName(node *cst.Node, source string) []Diagnostic {
	text := valueText(node, source)
	if hasExpression(text) || !strings.Contains(text, " ") {
		return nil
	}
	return []Diagnostic{{
		Message:  fmt.Sprintf("Invalid environment name format: '%s' (contains spaces)", text),
		Severity: SeverityError,
		Span:     spanOf(node),
	}}
}

// concurrencyRule validates the workflow-level and job-level concurrency
// blocks: a required group, and boolean cancel-in-progress.
type concurrencyRule struct{}

func (concurrencyRule) ID() string             { return "concurrency" }
func (concurrencyRule) RequiresWorkflow() bool { return true }

func (concurrencyRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	if conc := topLevelValue(tree, source, "concurrency"); conc != nil {
		diags = append(diags, checkConcurrency(conc, source, "workflow")...)
	}
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil {
			return
		}
		if conc := astquery.MappingValue(value, source, "concurrency"); conc != nil {
			diags = append(diags, checkConcurrency(conc, source, fmt.Sprintf("job '%s'", name))...)
		}
	})
	return diags
}

func checkConcurrency(conc *cst.Node, source, context string) []Diagnostic {
	// Scalar form is just the group name; nothing else to check.
	if conc.Kind != cst.KindMapping {
		return nil
	}

	var diags []Diagnostic
	group := astquery.MappingValue(conc, source, "group")
	if group == nil {
		diags = append(diags, Diagnostic{
			Message:  fmt.Sprintf("Concurrency at %s level is missing required 'group' field.", context),
			Severity: SeverityError,
			Span:     spanOf(conc),
		})
	} else {
		text := valueText(group, source)
		if _, numeric := parseNumber(text); numeric && !isQuoted(group) {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Concurrency 'group' at %s level must be a string or expression, not a number.", context),
				Severity: SeverityError,
				Span:     spanOf(group),
			})
		}
	}

	if cancel := astquery.MappingValue(conc, source, "cancel-in-progress"); cancel != nil {
		text := valueText(cancel, source)
		if !hasExpression(text) {
			if _, ok := parseBoolWord(text); !ok {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Concurrency 'cancel-in-progress' at %s level must be a boolean (true/false).", context),
					Severity: SeverityError,
					Span:     spanOf(cancel),
				})
			} else if isQuoted(cancel) {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Concurrency 'cancel-in-progress' at %s level must be a boolean (true/false), not a string.", context),
					Severity: SeverityError,
					Span:     spanOf(cancel),
				})
			}
		}
	}
	return diags
}

// defaultsRule validates defaults.run at the workflow and job level.
type defaultsRule struct{}

func (defaultsRule) ID() string             { return "defaults" }
func (defaultsRule) RequiresWorkflow() bool { return true }

func (defaultsRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	if defaults := topLevelValue(tree, source, "defaults"); defaults != nil {
		diags = append(diags, checkDefaults(defaults, source, "Workflow")...)
	}
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil {
			return
		}
		if defaults := astquery.MappingValue(value, source, "defaults"); defaults != nil {
			diags = append(diags, checkDefaults(defaults, source, fmt.Sprintf("Job '%s'", name))...)
		}
	})
	return diags
}

func checkDefaults(defaults *cst.Node, source, context string) []Diagnostic {
	run := astquery.MappingValue(defaults, source, "run")
	if run == nil || run.Kind != cst.KindMapping {
		return nil
	}

	var diags []Diagnostic
	if shell := astquery.MappingValue(run, source, "shell"); shell != nil {
		text := valueText(shell, source)
		if !hasExpression(text) && !validShell(text) {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"%s defaults.run.shell has invalid value: '%s'. Valid shells are: bash, pwsh, python, sh, cmd, powershell, or a custom command with {0} placeholder.",
					context, text),
				Severity: SeverityError,
				Span:     spanOf(shell),
			})
		}
	}
	if wd := astquery.MappingValue(run, source, "working-directory"); wd != nil {
		if valueText(wd, source) == "" {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"%s defaults.run.working-directory is empty. working-directory must be a valid path.", context),
				Severity: SeverityError,
				Span:     spanOf(wd),
			})
		}
	}
	return diags
}
