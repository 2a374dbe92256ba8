//go:build !integration

package rules

import (
	"strings"
	"testing"
)

func TestJobNeeds(t *testing.T) {
	t.Run("nonexistent", func(t *testing.T) {
		source := `on: push
jobs:
  build:
    runs-on: ubuntu-latest
    needs: deploy
`
		diags := byRule(validate(t, source), "job_needs")
		if !hasMessage(diags, "Job 'build' references nonexistent job: 'deploy'") {
			t.Errorf("expected nonexistent-job error, got %v", diags)
		}
	})

	t.Run("self reference", func(t *testing.T) {
		source := `on: push
jobs:
  build:
    runs-on: ubuntu-latest
    needs: build
`
		diags := byRule(validate(t, source), "job_needs")
		if !hasMessage(diags, "Job 'build' cannot reference self in 'needs'") {
			t.Errorf("expected self-reference error, got %v", diags)
		}
		if hasMessage(diags, "circular dependency") {
			t.Errorf("self reference should not also report a cycle, got %v", diags)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		source := `on: push
jobs:
  a:
    runs-on: ubuntu-latest
    needs: b
  b:
    runs-on: ubuntu-latest
    needs: c
  c:
    runs-on: ubuntu-latest
    needs: a
`
		diags := byRule(validate(t, source), "job_needs")
		if len(diags) != 1 || !strings.Contains(diags[0].Message, "circular dependency detected involving job 'a'") {
			t.Errorf("expected one cycle error, got %v", diags)
		}
	})
}

func TestJobName(t *testing.T) {
	source := `on: push
jobs:
  if:
    runs-on: ubuntu-latest
  my job:
    runs-on: ubuntu-latest
`
	diags := byRule(validate(t, source), "job_name")
	if !hasMessage(diags, "Reserved name cannot be used as job name: 'if'") {
		t.Errorf("expected reserved-name error, got %v", diags)
	}
	if !hasMessage(diags, "Invalid job name: 'my job'") {
		t.Errorf("expected charset error, got %v", diags)
	}
}

func TestTimeoutMinutes(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"negative", "-5", "Timeout must be a positive number."},
		{"zero", "0", "Timeout must be a positive number (greater than zero)."},
		{"quoted", "'30'", "Timeout must be a number, not a string."},
		{"word", "soon", "Timeout must be a number or expression."},
		{"decimal ok", "30.5", ""},
		{"expression ok", "${{ inputs.timeout }}", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    timeout-minutes: " + tt.value + "\n"
			diags := byRule(validate(t, source), "timeout")
			if tt.want == "" {
				if len(diags) != 0 {
					t.Errorf("expected clean timeout, got %v", diags)
				}
				return
			}
			if !hasMessage(diags, tt.want) {
				t.Errorf("expected %q, got %v", tt.want, diags)
			}
		})
	}
}

func TestStepTimeout(t *testing.T) {
	source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make\n        timeout-minutes: 0\n"
	diags := byRule(validate(t, source), "step_timeout")
	if !hasMessage(diags, "Step has invalid timeout-minutes: '0'") {
		t.Errorf("expected step timeout error, got %v", diags)
	}
}

func TestRunsOnRequired(t *testing.T) {
	source := `on: push
jobs:
  build:
    steps:
      - run: make
  caller:
    uses: octo/repo/.github/workflows/ci.yml@v1
`
	diags := byRule(validate(t, source), "runs_on_required")
	if !hasMessage(diags, "Job 'build' is missing required 'runs-on' field.") {
		t.Errorf("expected missing runs-on error, got %v", diags)
	}
	if hasMessage(diags, "caller") {
		t.Errorf("reusable workflow callers need no runs-on, got %v", diags)
	}
}

func TestRunnerLabel(t *testing.T) {
	source := `on: push
jobs:
  a:
    runs-on: my-custom-box
  b:
    runs-on:
      - self-hosted
      - gpu
  c:
    runs-on: ubuntu-latest
`
	diags := byRule(validate(t, source), "runner_label")
	if !hasMessage(diags, "Job 'a' uses unknown runner label: 'my-custom-box'") {
		t.Errorf("expected unknown-label warning, got %v", diags)
	}
	if hasMessage(diags, "'gpu'") {
		t.Errorf("labels alongside self-hosted are capabilities, got %v", diags)
	}
}

func TestStepShape(t *testing.T) {
	t.Run("neither uses nor run", func(t *testing.T) {
		source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - name: noop\n"
		diags := byRule(validate(t, source), "step")
		if !hasMessage(diags, "Step must have either 'uses' or 'run' field") {
			t.Errorf("expected missing-field error, got %v", diags)
		}
	})

	t.Run("both uses and run", func(t *testing.T) {
		source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - uses: actions/checkout@v4\n        run: make\n"
		diags := byRule(validate(t, source), "step")
		if len(diags) != 1 {
			t.Fatalf("expected exactly one diagnostic, got %d: %v", len(diags), diags)
		}
		if !strings.Contains(diags[0].Message, "cannot have both 'uses' and 'run'") {
			t.Errorf("unexpected message: %q", diags[0].Message)
		}
	})

	t.Run("missing version ref", func(t *testing.T) {
		source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - uses: actions/checkout\n"
		diags := byRule(validate(t, source), "step")
		if !hasMessage(diags, "Invalid action reference format: 'actions/checkout' (missing @ref)") {
			t.Errorf("expected missing-ref warning, got %v", diags)
		}
	})
}

func TestStepIDUniqueness(t *testing.T) {
	source := `on: push
jobs:
  b:
    runs-on: ubuntu-latest
    steps:
      - id: setup
        run: make
      - id: setup
        run: make again
`
	diags := byRule(validate(t, source), "step_id_uniqueness")
	if !hasMessage(diags, "Job 'b' has duplicate step ID: 'setup'") {
		t.Errorf("expected duplicate-id error, got %v", diags)
	}
}

func TestActionReference(t *testing.T) {
	tests := []struct {
		name string
		uses string
		want string
	}{
		{"missing ref", "actions/checkout", "is missing required '@ref'"},
		{"missing owner", "checkout@v4", "is missing owner"},
		{"empty ref", "actions/checkout@", "has invalid format. Expected format: owner/repo@ref"},
		{"local ok", "./local/action", ""},
		{"docker ok", "docker://alpine:3.20", ""},
		{"valid", "actions/checkout@v4", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - uses: " + tt.uses + "\n"
			diags := byRule(validate(t, source), "action_reference")
			if tt.want == "" {
				if len(diags) != 0 {
					t.Errorf("expected clean reference, got %v", diags)
				}
				return
			}
			if !hasMessage(diags, tt.want) {
				t.Errorf("expected %q, got %v", tt.want, diags)
			}
		})
	}
}

func TestReusableWorkflowCall(t *testing.T) {
	source := `on: push
jobs:
  caller:
    uses: octo/repo/workflows/ci.yml@main
`
	diags := byRule(validate(t, source), "reusable_workflow_call")
	if !hasMessage(diags, "Path must contain '/.github/workflows/'") {
		t.Errorf("expected invalid-path error, got %v", diags)
	}
}

func TestStrategy(t *testing.T) {
	t.Run("missing matrix", func(t *testing.T) {
		source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    strategy:\n      fail-fast: true\n"
		diags := byRule(validate(t, source), "job_strategy")
		if !hasMessage(diags, "'max-parallel' or 'fail-fast' but no 'matrix'") {
			t.Errorf("expected missing-matrix warning, got %v", diags)
		}
	})

	t.Run("invalid max-parallel", func(t *testing.T) {
		source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    strategy:\n      matrix:\n        os: [ubuntu-latest]\n      max-parallel: 0\n"
		diags := byRule(validate(t, source), "job_strategy")
		if !hasMessage(diags, "max-parallel must be a positive integer (greater than zero).") {
			t.Errorf("expected max-parallel error, got %v", diags)
		}
	})

	t.Run("empty matrix", func(t *testing.T) {
		source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    strategy:\n      matrix: {}\n"
		diags := byRule(validate(t, source), "matrix_strategy")
		if !hasMessage(diags, "matrix cannot be empty") {
			t.Errorf("expected empty-matrix error, got %v", diags)
		}
	})
}

func TestJobContainer(t *testing.T) {
	source := `on: push
jobs:
  b:
    runs-on: ubuntu-latest
    container:
      env:
        A: "1"
    services:
      db:
        image: ""
`
	diags := byRule(validate(t, source), "job_container")
	if !hasMessage(diags, "Job 'b' container is missing required 'image' field.") {
		t.Errorf("expected missing-image error, got %v", diags)
	}
	if !hasMessage(diags, "Job 'b' container has empty image field.") {
		t.Errorf("expected empty-image error, got %v", diags)
	}
}

func TestJobIfExpression(t *testing.T) {
	t.Run("always true", func(t *testing.T) {
		source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    if: \"true\"\n"
		diags := byRule(validate(t, source), "job_if_expression")
		if !hasMessage(diags, "Job 'b' 'if' expression may always evaluate to true: 'true'") {
			t.Errorf("expected always-true warning, got %v", diags)
		}
	})

	t.Run("wrapped expression", func(t *testing.T) {
		source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    if: ${{ github.ref == 'refs/heads/main' }}\n"
		diags := byRule(validate(t, source), "job_if_expression")
		if len(diags) != 0 {
			t.Errorf("expected clean condition, got %v", diags)
		}
	})
}

func TestStepEnv(t *testing.T) {
	source := `on: push
jobs:
  b:
    runs-on: ubuntu-latest
    steps:
      - run: make
        env:
          lower_case: bad
          GOOD_VAR: fine
          _ALSO_OK: fine
`
	diags := byRule(validate(t, source), "step_env")
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "Invalid environment variable name: 'lower_case'") {
		t.Errorf("expected one env-name error, got %v", diags)
	}
}

func TestStepShell(t *testing.T) {
	source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make\n        shell: zsh\n"
	diags := byRule(validate(t, source), "step_shell")
	if !hasMessage(diags, "Step has invalid shell: 'zsh'") {
		t.Errorf("expected shell error, got %v", diags)
	}

	source = "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make\n        shell: perl {0}\n"
	if diags := byRule(validate(t, source), "step_shell"); len(diags) != 0 {
		t.Errorf("custom shell with {0} should pass, got %v", diags)
	}
}

func TestStepContinueOnError(t *testing.T) {
	source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make\n        continue-on-error: \"true\"\n"
	diags := byRule(validate(t, source), "step_continue_on_error")
	if !hasMessage(diags, "not a string.") {
		t.Errorf("expected string error, got %v", diags)
	}
}

func TestStepWorkingDirectory(t *testing.T) {
	source := "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make\n        working-directory: /opt/tools\n"
	diags := byRule(validate(t, source), "step_working_directory")
	if !hasMessage(diags, "is an absolute path that may not exist") {
		t.Errorf("expected absolute-path warning, got %v", diags)
	}
}

func TestJobOutputs(t *testing.T) {
	source := `on: push
jobs:
  b:
    runs-on: ubuntu-latest
    outputs:
      version: ${{ steps.release.outputs.version }}
    steps:
      - id: build
        run: echo "version=1.0" >> $GITHUB_OUTPUT
`
	diags := byRule(validate(t, source), "job_outputs")
	if !hasMessage(diags, "Job 'b' output references step 'release' which does not exist. Available step IDs: build") {
		t.Errorf("expected missing-step error, got %v", diags)
	}
}

func TestStepOutputReference(t *testing.T) {
	t.Run("cross job", func(t *testing.T) {
		source := `on: push
jobs:
  one:
    runs-on: ubuntu-latest
    steps:
      - id: make
        run: echo "out=1" >> $GITHUB_OUTPUT
  two:
    runs-on: ubuntu-latest
    steps:
      - run: echo ${{ steps.make.outputs.out }}
`
		diags := byRule(validate(t, source), "step_output_reference")
		if !hasMessage(diags, "but step 'make' is in job 'one'. Step outputs can only be referenced within the same job.") {
			t.Errorf("expected cross-job error, got %v", diags)
		}
	})

	t.Run("unknown output", func(t *testing.T) {
		source := `on: push
jobs:
  b:
    runs-on: ubuntu-latest
    steps:
      - id: build
        run: echo "version=1.0" >> $GITHUB_OUTPUT
      - run: echo ${{ steps.build.outputs.digest }}
`
		diags := byRule(validate(t, source), "step_output_reference")
		if !hasMessage(diags, "but output 'digest' is not found. Available outputs: version") {
			t.Errorf("expected unknown-output error, got %v", diags)
		}
	})
}

func TestArtifact(t *testing.T) {
	source := `on: push
jobs:
  b:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/upload-artifact@v4
        with:
          name: ""
          path: dist/
          retention-days: 120
`
	diags := byRule(validate(t, source), "artifact")
	if !hasMessage(diags, "has empty name. Artifact name cannot be empty.") {
		t.Errorf("expected empty-name error, got %v", diags)
	}
	if !hasMessage(diags, "retention-days must be between 1 and 90.") {
		t.Errorf("expected retention error, got %v", diags)
	}
}

func TestEnvironment(t *testing.T) {
	source := `on: push
jobs:
  b:
    runs-on: ubuntu-latest
    environment: my prod env
`
	diags := byRule(validate(t, source), "environment")
	if !hasMessage(diags, "Invalid environment name format: 'my prod env' (contains spaces)") {
		t.Errorf("expected environment-name error, got %v", diags)
	}
}
