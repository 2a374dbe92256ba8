//go:build !integration

package rules

import (
	"strings"
	"testing"

	"github.com/trussci/truss/pkg/cst"
)

func validate(t *testing.T, source string) []Diagnostic {
	t.Helper()
	tree, err := cst.NewParser().Parse(source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return Run(tree, source, All())
}

func byRule(diags []Diagnostic, id string) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.RuleID == id {
			out = append(out, d)
		}
	}
	return out
}

func hasMessage(diags []Diagnostic, substr string) bool {
	for _, d := range diags {
		if strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}

const validWorkflow = `name: CI
on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - run: make test
`

func TestValidWorkflowIsClean(t *testing.T) {
	diags := validate(t, validWorkflow)
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %d: %v", len(diags), diags)
	}
}

func TestRegistryIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range All() {
		if seen[r.ID()] {
			t.Errorf("duplicate rule id %q", r.ID())
		}
		seen[r.ID()] = true
	}
	if got := len(All()); got != 41 {
		t.Errorf("registry has %d rules, want 41", got)
	}
}

func TestByID(t *testing.T) {
	if r := ByID("workflow_trigger"); r == nil || r.ID() != "workflow_trigger" {
		t.Errorf("ByID(workflow_trigger) = %v", r)
	}
	if r := ByID("no_such_rule"); r != nil {
		t.Errorf("ByID(no_such_rule) = %v, want nil", r)
	}
}

func TestRunDeterministic(t *testing.T) {
	source := `on:
  push:
    branches: [main]
jobs:
  a:
    runs-on: linux-box
    needs: a
    steps:
      - run: echo "::set-output name=x::1"
      - name: ""
        run: echo hi
`
	first := validate(t, source)
	for i := 0; i < 5; i++ {
		again := validate(t, source)
		if len(again) != len(first) {
			t.Fatalf("run %d: %d diagnostics, want %d", i, len(again), len(first))
		}
		for j := range first {
			if first[j] != again[j] {
				t.Errorf("run %d: diagnostic %d differs: %v vs %v", i, j, first[j], again[j])
			}
		}
	}
}

func TestNonWorkflowYAMLSkipsWorkflowRules(t *testing.T) {
	diags := validate(t, "server:\n  port: 8080\n  host: localhost\n")
	if len(diags) != 0 {
		t.Errorf("plain YAML should produce no diagnostics, got %v", diags)
	}
}

func TestMissingOnField(t *testing.T) {
	diags := validate(t, "jobs:\n  build:\n    runs-on: ubuntu-latest\n")
	if !hasMessage(byRule(diags, "workflow_schema"), "must have an 'on' field") {
		t.Errorf("expected workflow_schema error, got %v", diags)
	}
}

func TestInvalidEventType(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"scalar", "on: pusj\njobs:\n  b:\n    runs-on: ubuntu-latest\n", "Invalid event type: 'pusj'"},
		{"sequence", "on:\n  - push\n  - not_an_event\njobs:\n  b:\n    runs-on: ubuntu-latest\n", "Invalid event type: 'not_an_event'"},
		{"mapping", "on:\n  release:\n  bogus:\njobs:\n  b:\n    runs-on: ubuntu-latest\n", "Invalid event type: 'bogus'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := byRule(validate(t, tt.source), "workflow_trigger")
			if !hasMessage(diags, tt.want) {
				t.Errorf("expected %q, got %v", tt.want, diags)
			}
		})
	}
}

func TestWorkflowName(t *testing.T) {
	diags := validate(t, "name: \"\"\non: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n")
	if !hasMessage(byRule(diags, "workflow_name"), "cannot be empty") {
		t.Errorf("expected empty-name error, got %v", diags)
	}

	long := strings.Repeat("x", 256)
	diags = validate(t, "name: "+long+"\non: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n")
	if !hasMessage(byRule(diags, "workflow_name"), "too long (256 characters") {
		t.Errorf("expected too-long error, got %v", diags)
	}
}

func TestExclusiveBranchFilters(t *testing.T) {
	source := `on:
  push:
    branches:
      - main
    branches-ignore:
      - dev
jobs:
  b:
    runs-on: ubuntu-latest
`
	diags := byRule(validate(t, source), "event_payload")
	if !hasMessage(diags, "mutually exclusive") {
		t.Errorf("expected mutual-exclusion error, got %v", diags)
	}
}

func TestInvalidEventField(t *testing.T) {
	source := `on:
  push:
    branch: main
jobs:
  b:
    runs-on: ubuntu-latest
`
	diags := byRule(validate(t, source), "event_payload")
	if !hasMessage(diags, "Invalid field 'branch' for push event") {
		t.Errorf("expected invalid-field error, got %v", diags)
	}
}

func TestCronValidation(t *testing.T) {
	tests := []struct {
		name string
		cron string
		want string
	}{
		{"too few fields", "0 0 * *", "must have 5 space-separated fields"},
		{"minute range", "60 0 * * *", "Value 60 is out of range (0-59) for minute"},
		{"zero step", "*/0 * * * *", "Step value must be greater than 0 for minute"},
		{"valid", "30 5 * * 1", ""},
		{"names pass", "0 0 * JAN MON-FRI", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "on:\n  schedule:\n    - cron: '" + tt.cron + "'\njobs:\n  b:\n    runs-on: ubuntu-latest\n"
			diags := byRule(validate(t, source), "event_payload")
			if tt.want == "" {
				if len(diags) != 0 {
					t.Errorf("expected clean cron, got %v", diags)
				}
				return
			}
			if !hasMessage(diags, tt.want) {
				t.Errorf("expected %q, got %v", tt.want, diags)
			}
		})
	}
}

func TestUndefinedDispatchInput(t *testing.T) {
	source := `on:
  workflow_dispatch:
    inputs:
      env_name:
        type: choice
jobs:
  b:
    runs-on: ubuntu-latest
    steps:
      - run: echo ${{ inputs.environment }}
`
	diags := byRule(validate(t, source), "workflow_inputs")
	if !hasMessage(diags, "Reference to undefined input 'environment'. Available inputs: env_name") {
		t.Errorf("expected undefined-input error, got %v", diags)
	}
}

func TestNestedInputsNotConfused(t *testing.T) {
	// github.event.inputs.x is a github context path, not an inputs.* ref.
	source := `on:
  workflow_dispatch:
    inputs:
      x:
        type: string
jobs:
  b:
    runs-on: ubuntu-latest
    steps:
      - run: echo ${{ github.event.inputs.other }}
`
	diags := byRule(validate(t, source), "workflow_inputs")
	if len(diags) != 0 {
		t.Errorf("github.event.inputs.* should not be checked, got %v", diags)
	}
}

func TestWorkflowCallInputType(t *testing.T) {
	source := `on:
  workflow_call:
    inputs:
      version:
        type: float
jobs:
  b:
    runs-on: ubuntu-latest
`
	diags := byRule(validate(t, source), "workflow_call_inputs")
	if !hasMessage(diags, "Invalid input type 'float' for workflow_call input 'version'") {
		t.Errorf("expected invalid-type error, got %v", diags)
	}
}

func TestWorkflowCallSecrets(t *testing.T) {
	source := `on:
  workflow_call:
    secrets:
      deploy_key:
        required: true
jobs:
  b:
    runs-on: ubuntu-latest
    steps:
      - run: echo ${{ secrets.other_key }}
`
	diags := byRule(validate(t, source), "workflow_call_secrets")
	if !hasMessage(diags, "Reference to undefined workflow_call secret 'other_key'. Available secrets: deploy_key") {
		t.Errorf("expected undefined-secret error, got %v", diags)
	}
}

func TestWorkflowCallSecretsGithubToken(t *testing.T) {
	source := `on:
  workflow_call:
jobs:
  b:
    runs-on: ubuntu-latest
    steps:
      - run: echo ${{ secrets.GITHUB_TOKEN }}
`
	diags := byRule(validate(t, source), "workflow_call_secrets")
	if len(diags) != 0 {
		t.Errorf("GITHUB_TOKEN is always available, got %v", diags)
	}
}

func TestWorkflowCallOutputs(t *testing.T) {
	source := `on:
  workflow_call:
    outputs:
      image:
        value: ${{ jobs.build.outputs.tag }}
jobs:
  build:
    runs-on: ubuntu-latest
    outputs:
      digest: ${{ steps.b.outputs.digest }}
    steps:
      - id: b
        run: echo "digest=abc" >> $GITHUB_OUTPUT
`
	diags := byRule(validate(t, source), "workflow_call_outputs")
	if !hasMessage(diags, "non-existent job output: 'jobs.build.outputs.tag'. Available outputs: digest") {
		t.Errorf("expected missing-output error, got %v", diags)
	}
}

func TestExpressionOperators(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		rule     string
		want     string
		severity Severity
	}{
		{"triple equals", "github.ref === 'main'", "expression", "not '===' or '!=='", SeverityError},
		{"assignment", "github.ref = 'main'", "expression", "read-only", SeverityWarning},
		{"unknown function", "exists('file')", "expression", "Unknown function in expression: 'exists'", SeverityWarning},
		{"unknown context", "gibhub.ref", "expression", "Undefined context variable: 'gibhub'", SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo ${{ " + tt.expr + " }}\n"
			diags := byRule(validate(t, source), tt.rule)
			found := false
			for _, d := range diags {
				if strings.Contains(d.Message, tt.want) {
					found = true
					if d.Severity != tt.severity {
						t.Errorf("severity = %v, want %v", d.Severity, tt.severity)
					}
				}
			}
			if !found {
				t.Errorf("expected %q, got %v", tt.want, diags)
			}
		})
	}
}

func TestUnclosedExpression(t *testing.T) {
	source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo ${{ github.ref\n"
	diags := byRule(validate(t, source), "expression")
	if !hasMessage(diags, "unclosed expression") {
		t.Errorf("expected unclosed-expression error, got %v", diags)
	}
}

func TestSecretsMisspellings(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		want   string
		errors int
	}{
		{"missing dot", "secretsMY_SECRET", "'secretsMY_SECRET' should be 'secrets.MY_SECRET' (missing dot)", 1},
		{"singular", "secret.TOKEN", "'secret.TOKEN' should be 'secrets.TOKEN' (use plural 'secrets')", 1},
		{"valid", "secrets.MY_SECRET", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo ${{ " + tt.expr + " }}\n"
			diags := byRule(validate(t, source), "secrets_validation")
			if len(diags) != tt.errors {
				t.Fatalf("got %d diagnostics, want %d: %v", len(diags), tt.errors, diags)
			}
			if tt.want != "" && !hasMessage(diags, tt.want) {
				t.Errorf("expected %q, got %v", tt.want, diags)
			}
		})
	}
}

func TestScriptInjection(t *testing.T) {
	source := `on: issues
jobs:
  b:
    runs-on: ubuntu-latest
    steps:
      - run: echo "${{ github.event.issue.title }}"
`
	diags := byRule(validate(t, source), "script_injection")
	if !hasMessage(diags, "untrusted input 'github.event.issue.title' is used directly") {
		t.Errorf("expected injection warning, got %v", diags)
	}
}

func TestDeprecatedCommands(t *testing.T) {
	source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo \"::set-output name=x::1\"\n"
	diags := byRule(validate(t, source), "deprecated_commands")
	if !hasMessage(diags, "Deprecated workflow command '::set-output'") {
		t.Errorf("expected deprecation warning, got %v", diags)
	}
}

func TestPermissions(t *testing.T) {
	tests := []struct {
		name  string
		perms string
		want  string
	}{
		{"bad shorthand", "permissions: admin", "Invalid permission value: 'admin' (must be 'read-all', 'write-all', or 'none')"},
		{"bad scope", "permissions:\n  contets: read", "Invalid permission scope: 'contets'"},
		{"bad scope value", "permissions:\n  contents: admin", "Invalid permission value: 'admin' (must be 'read', 'write', or 'none')"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "on: push\n" + tt.perms + "\njobs:\n  b:\n    runs-on: ubuntu-latest\n"
			diags := byRule(validate(t, source), "permissions")
			if !hasMessage(diags, tt.want) {
				t.Errorf("expected %q, got %v", tt.want, diags)
			}
		})
	}
}

func TestConcurrency(t *testing.T) {
	source := `on: push
concurrency:
  cancel-in-progress: maybe
jobs:
  b:
    runs-on: ubuntu-latest
`
	diags := byRule(validate(t, source), "concurrency")
	if !hasMessage(diags, "missing required 'group' field") {
		t.Errorf("expected missing-group error, got %v", diags)
	}
	if !hasMessage(diags, "'cancel-in-progress' at workflow level must be a boolean") {
		t.Errorf("expected cancel-in-progress error, got %v", diags)
	}
}

func TestDefaultsShell(t *testing.T) {
	source := `on: push
defaults:
  run:
    shell: zsh
jobs:
  b:
    runs-on: ubuntu-latest
`
	diags := byRule(validate(t, source), "defaults")
	if !hasMessage(diags, "Workflow defaults.run.shell has invalid value: 'zsh'") {
		t.Errorf("expected shell error, got %v", diags)
	}
}
