//go:build !integration

package exprlang

import "testing"

func TestAnalyzeValidExpressions(t *testing.T) {
	exprs := []string{
		"github.ref",
		" github.event_name == 'push' ",
		"matrix.os",
		"secrets.MY_SECRET",
		"needs.build.outputs.version",
		"steps.checkout.outputs.ref",
		"format('{0}-{1}', matrix.os, matrix.arch)",
		"contains(github.ref, 'refs/tags/')",
		"hashFiles('**/go.sum')",
		"fromJSON(needs.setup.outputs.matrix)",
		"toJSON(github.event)",
		"TOJSON(github.event)",
		"success() || failure()",
		"!cancelled()",
		"env.FOO != ''",
		"github.event.*.name",
		"true",
		"false",
		"'literal'",
		"42",
		"github",
		"runner.os == 'Linux' && strategy.job-index < 3",
	}
	for _, expr := range exprs {
		a := Analyze(expr)
		if !a.Valid {
			t.Errorf("Analyze(%q) invalid: %+v", expr, a.Issues)
		}
		for _, issue := range a.Issues {
			t.Errorf("Analyze(%q) unexpected issue: %+v", expr, issue)
		}
	}
}

func TestAnalyzeSyntaxErrors(t *testing.T) {
	tests := []struct {
		expr string
		kind IssueKind
	}{
		{"", IssueEmpty},
		{"   ", IssueEmpty},
		{"secretsMY_SECRET", IssueMalformed},
		{"'unterminated", IssueMalformed},
		{"format('{0}', matrix.os", IssueMalformed},
		{"needs.build.outputs]", IssueMalformed},
		{"github.ref === 'main'", IssueBadOperator},
		{"github.ref !== 'main'", IssueBadOperator},
	}
	for _, tt := range tests {
		a := Analyze(tt.expr)
		if a.Valid {
			t.Errorf("Analyze(%q) should be invalid", tt.expr)
			continue
		}
		found := false
		for _, issue := range a.Issues {
			if issue.Kind == tt.kind {
				found = true
			}
		}
		if !found {
			t.Errorf("Analyze(%q) missing issue kind %d: %+v", tt.expr, tt.kind, a.Issues)
		}
	}
}

func TestAnalyzeAdvisoryIssues(t *testing.T) {
	tests := []struct {
		expr string
		kind IssueKind
	}{
		{"mycontext.value", IssueUnknownContext},
		{"github.ref == other.thing", IssueUnknownContext},
		{"doStuff(github.ref)", IssueUnknownFunction},
		{"github.ref = 'main'", IssueAssignment},
	}
	for _, tt := range tests {
		a := Analyze(tt.expr)
		found := false
		for _, issue := range a.Issues {
			if issue.Kind == tt.kind {
				found = true
				if issue.IsError() {
					t.Errorf("Analyze(%q): issue %d should be advisory", tt.expr, tt.kind)
				}
			}
		}
		if !found {
			t.Errorf("Analyze(%q) missing issue kind %d: %+v", tt.expr, tt.kind, a.Issues)
		}
	}
}

func TestAnalyzeContext(t *testing.T) {
	tests := []struct {
		expr    string
		context string
	}{
		{"github.ref", "github"},
		{"secrets.TOKEN", "secrets"},
		{"format('{0}', matrix.os)", "matrix"},
		{"'no context'", ""},
		{"env", "env"},
	}
	for _, tt := range tests {
		if a := Analyze(tt.expr); a.Context != tt.context {
			t.Errorf("Analyze(%q).Context = %q, want %q", tt.expr, a.Context, tt.context)
		}
	}
}

func TestIsAlwaysTrueFalse(t *testing.T) {
	trueExprs := []string{"true", "TRUE", "!false", "github.ref || true", "true || github.ref"}
	for _, expr := range trueExprs {
		if !IsAlwaysTrue(expr) {
			t.Errorf("IsAlwaysTrue(%q) = false", expr)
		}
	}
	falseExprs := []string{"false", "!true", "github.ref && false", "false && github.ref"}
	for _, expr := range falseExprs {
		if !IsAlwaysFalse(expr) {
			t.Errorf("IsAlwaysFalse(%q) = false", expr)
		}
	}
	neither := []string{"github.ref == 'main'", "success()", "matrix.os"}
	for _, expr := range neither {
		if IsAlwaysTrue(expr) || IsAlwaysFalse(expr) {
			t.Errorf("%q should be neither always-true nor always-false", expr)
		}
	}
}

func TestIndexFold(t *testing.T) {
	tests := []struct {
		haystack string
		needle   string
		expected int
	}{
		{"github.event.PULL_REQUEST", "pull_request", 13},
		{"no match here", "absent", -1},
		{"ToJSON(x)", "tojson(", 0},
		{"", "x", -1},
		{"abc", "", 0},
	}
	for _, tt := range tests {
		if got := IndexFold(tt.haystack, tt.needle); got != tt.expected {
			t.Errorf("IndexFold(%q, %q) = %d, want %d", tt.haystack, tt.needle, got, tt.expected)
		}
	}
}
