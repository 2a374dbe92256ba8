//go:build !integration

package console

import (
	"strings"
	"testing"

	"github.com/trussci/truss/pkg/engine"
)

func plain(t *testing.T) {
	t.Helper()
	SetColorsEnabled(false)
	t.Cleanup(func() { SetColorsEnabled(false) })
}

func TestFormatDiagnostic(t *testing.T) {
	plain(t)
	d := engine.Diagnostic{
		Rule:     "job_needs",
		Message:  "Job 'a' references nonexistent job: 'b'",
		Severity: "error",
		Line:     4,
		Column:   5,
	}
	got := FormatDiagnostic("ci.yml", d)
	want := "ci.yml:4:5: error: Job 'a' references nonexistent job: 'b' (job_needs)"
	if got != want {
		t.Errorf("FormatDiagnostic = %q, want %q", got, want)
	}
}

func TestFormatSummary(t *testing.T) {
	plain(t)
	tests := []struct {
		files, errors, warnings int
		want                    string
	}{
		{1, 0, 0, "✓ 1 file checked, 0 errors, 0 warnings"},
		{3, 1, 0, "✗ 3 files checked, 1 error, 0 warnings"},
		{2, 0, 2, "⚠ 2 files checked, 0 errors, 2 warnings"},
	}
	for _, tt := range tests {
		if got := FormatSummary(tt.files, tt.errors, tt.warnings); got != tt.want {
			t.Errorf("FormatSummary(%d,%d,%d) = %q, want %q",
				tt.files, tt.errors, tt.warnings, got, tt.want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	plain(t)
	got := RenderTable(
		[]string{"Rule", "Scope"},
		[][]string{
			{"syntax", "any yaml"},
			{"job_needs", "workflow"},
		},
	)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", got)
	}
	if lines[0] != "Rule       Scope" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != "job_needs  workflow" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestMessageFormats(t *testing.T) {
	plain(t)
	if got := FormatErrorMessage("boom"); got != "✗ boom" {
		t.Errorf("FormatErrorMessage = %q", got)
	}
	if got := FormatSuccessMessage("ok"); got != "✓ ok" {
		t.Errorf("FormatSuccessMessage = %q", got)
	}
}
