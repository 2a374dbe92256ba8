package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// stepEnvRule validates environment variable names in step `env` blocks.
type stepEnvRule struct{}

func (stepEnvRule) ID() string             { return "step_env" }
func (stepEnvRule) RequiresWorkflow() bool { return true }

func validEnvName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_' || c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

func (stepEnvRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		env := astquery.MappingValue(step, source, "env")
		if env == nil || env.Kind != cst.KindMapping {
			return
		}
		for _, pair := range astquery.Pairs(env) {
			key := astquery.PairKey(pair)
			name := astquery.CleanKey(key.Text(source))
			if validEnvName(name) {
				continue
			}
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Invalid environment variable name: '%s'. Environment variable names must start with an uppercase letter or underscore and contain only uppercase letters, numbers, and underscores.",
					name),
				Severity: SeverityError,
				Span:     spanOf(key),
			})
		}
	})
	return diags
}

// stepContinueOnErrorRule validates step continue-on-error values.
type stepContinueOnErrorRule struct{}

func (stepContinueOnErrorRule) ID() string             { return "step_continue_on_error" }
func (stepContinueOnErrorRule) RequiresWorkflow() bool { return true }

func (stepContinueOnErrorRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		coe := astquery.MappingValue(step, source, "continue-on-error")
		if coe == nil {
			return
		}
		text := valueText(coe, source)
		if hasExpression(text) {
			return
		}
		problem := ""
		if _, ok := parseBoolWord(text); ok {
			if isQuoted(coe) {
				problem = "continue-on-error must be a boolean (true or false), not a string."
			}
		} else if isQuoted(coe) {
			problem = "continue-on-error must be a boolean (true or false), not a string."
		} else if _, numeric := parseNumber(text); numeric {
			problem = "continue-on-error must be a boolean (true or false), not a number."
		} else {
			problem = "continue-on-error must be a boolean (true or false)."
		}
		if problem != "" {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("Step has invalid continue-on-error: '%s'. %s",
					text, problem),
				Severity: SeverityError,
				Span:     spanOf(coe),
			})
		}
	})
	return diags
}

// stepShellRule validates step shell values.
type stepShellRule struct{}

func (stepShellRule) ID() string             { return "step_shell" }
func (stepShellRule) RequiresWorkflow() bool { return true }

func (stepShellRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		shell := astquery.MappingValue(step, source, "shell")
		if shell == nil {
			return
		}
		text := valueText(shell, source)
		if hasExpression(text) {
			return
		}
		if text == "" {
			diags = append(diags, Diagnostic{
				Message:  "Step has empty shell value. Shell must be a valid shell name or custom command.",
				Severity: SeverityError,
				Span:     spanOf(shell),
			})
			return
		}
		if !validShell(text) {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Step has invalid shell: '%s'. Valid shells are: bash, pwsh, python, sh, cmd, powershell, or a custom command with {0} placeholder.",
					text),
				Severity: SeverityError,
				Span:     spanOf(shell),
			})
		}
	})
	return diags
}

// stepWorkingDirectoryRule sanity-checks step working-directory paths.
type stepWorkingDirectoryRule struct{}

func (stepWorkingDirectoryRule) ID() string             { return "step_working_directory" }
func (stepWorkingDirectoryRule) RequiresWorkflow() bool { return true }

func (stepWorkingDirectoryRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		wd := astquery.MappingValue(step, source, "working-directory")
		if wd == nil {
			return
		}
		text := valueText(wd, source)
		if hasExpression(text) {
			return
		}
		switch {
		case text == "":
			diags = append(diags, Diagnostic{
				Message:  "Step has empty working-directory. working-directory must be a valid path.",
				Severity: SeverityError,
				Span:     spanOf(wd),
			})
		case strings.HasPrefix(text, "/") &&
			!strings.HasPrefix(text, "/home") && !strings.HasPrefix(text, "/github"):
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Step working-directory '%s' is an absolute path that may not exist in the GitHub Actions runner environment. Consider using a relative path.",
					text),
				Severity: SeverityWarning,
				Span:     spanOf(wd),
			})
		case strings.Contains(text, "..") && text != ".." && !strings.HasPrefix(text, "../"):
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Step working-directory '%s' contains '..' in an unusual position. Verify the path is correct.",
					text),
				Severity: SeverityWarning,
				Span:     spanOf(wd),
			})
		}
	})
	return diags
}
