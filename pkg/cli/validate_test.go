//go:build !integration

package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/trussci/truss/pkg/config"
	"github.com/trussci/truss/pkg/engine"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ci.yml", "on: push\n")
	writeFile(t, dir, "nested/deploy.yaml", "on: push\n")
	writeFile(t, dir, "notes.txt", "not yaml\n")

	t.Run("directory walk", func(t *testing.T) {
		files, stdin, err := expandArgs([]string{dir}, config.Default())
		if err != nil {
			t.Fatal(err)
		}
		if stdin {
			t.Error("no stdin requested")
		}
		if len(files) != 2 {
			t.Errorf("expected 2 YAML files, got %v", files)
		}
	})

	t.Run("glob", func(t *testing.T) {
		files, _, err := expandArgs([]string{filepath.Join(dir, "**", "*.yaml")}, config.Default())
		if err != nil {
			t.Fatal(err)
		}
		if len(files) != 1 || filepath.Base(files[0]) != "deploy.yaml" {
			t.Errorf("glob matched %v", files)
		}
	})

	t.Run("stdin marker", func(t *testing.T) {
		files, stdin, err := expandArgs([]string{StdinPath}, config.Default())
		if err != nil {
			t.Fatal(err)
		}
		if !stdin || len(files) != 0 {
			t.Errorf("stdin=%v files=%v", stdin, files)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := expandArgs([]string{filepath.Join(dir, "absent.yml")}, config.Default())
		var ee *exitError
		if !errors.As(err, &ee) || ee.code != ExitIOFailure {
			t.Errorf("expected I/O exit error, got %v", err)
		}
	})

	t.Run("ignored by config", func(t *testing.T) {
		cfg := &config.Config{Ignore: []string{"**/deploy.yaml"}}
		files, _, err := expandArgs([]string{dir}, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if len(files) != 1 || filepath.Base(files[0]) != "ci.yml" {
			t.Errorf("ignore pattern not applied: %v", files)
		}
	})
}

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yml", "on: push\njobs:\n  b:\n    runs-on: ubuntu-latest\n")
	bad := writeFile(t, dir, "bad.yml", "jobs:\n  b:\n    runs-on: ubuntu-latest\n")

	reports := validateFiles([]string{good, bad}, false, nil)
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if !reports[0].Valid {
		t.Errorf("good.yml should be valid: %v", reports[0].Diagnostics)
	}
	if reports[1].Valid {
		t.Error("bad.yml should be invalid")
	}
	if reports[0].File != good || reports[1].File != bad {
		t.Errorf("reports out of order: %v %v", reports[0].File, reports[1].File)
	}
}

func TestFilterReports(t *testing.T) {
	reports := []fileReport{{
		File: "x.yml",
		Diagnostics: []engine.Diagnostic{
			{Severity: "error"},
			{Severity: "warning"},
			{Severity: "info"},
		},
	}}
	filterReports(reports, "warning")
	if len(reports[0].Diagnostics) != 2 {
		t.Errorf("expected error+warning kept, got %v", reports[0].Diagnostics)
	}
	filterReports(reports, "error")
	if len(reports[0].Diagnostics) != 1 || reports[0].Diagnostics[0].Severity != "error" {
		t.Errorf("expected only error kept, got %v", reports[0].Diagnostics)
	}
}

func TestExitFor(t *testing.T) {
	tests := []struct {
		name    string
		reports []fileReport
		code    int
	}{
		{"all valid", []fileReport{{Valid: true}}, ExitOK},
		{"invalid", []fileReport{{Valid: true}, {Valid: false}}, ExitInvalid},
		{"read failure wins", []fileReport{{Valid: false}, {ReadError: "no such file"}}, ExitIOFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exitFor(tt.reports)
			if tt.code == ExitOK {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			var ee *exitError
			if !errors.As(err, &ee) || ee.code != tt.code {
				t.Errorf("expected code %d, got %v", tt.code, err)
			}
		})
	}
}

func TestRunValidateUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		opts validateOptions
	}{
		{"no args", nil, validateOptions{minSeverity: "info"}},
		{"bad severity", []string{"x.yml"}, validateOptions{minSeverity: "fatal"}},
		{"watch with json", []string{StdinPath}, validateOptions{minSeverity: "info", watch: true, jsonOutput: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runValidate(tt.args, tt.opts)
			var ee *exitError
			if !errors.As(err, &ee) || ee.code != ExitUsage {
				t.Errorf("expected usage error, got %v", err)
			}
		})
	}
}
