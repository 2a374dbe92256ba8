// Package rules defines the diagnostic model, the validation rule contract,
// and the full registered rule set for CI workflow documents.
//
// Every rule is a pure function of one immutable (tree, source) pair. Rules
// never share state, never depend on each other's output, and treat any
// unexpected tree shape as "does not apply" rather than failing. The runner
// may execute rules in parallel; determinism comes from the final sort, not
// from execution order.
package rules

import "sort"

// Severity classifies a diagnostic. The ordering Error < Warning < Info is
// load-bearing: it is the severity tie-break in the deterministic sort.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Span is a byte range into the source text.
type Span struct {
	Start int
	End   int
}

// Diagnostic is one reported issue. RuleID is stamped by the runner so
// downstream filtering never depends on message text.
type Diagnostic struct {
	RuleID   string
	Message  string
	Severity Severity
	Span     Span
}

// sortDiagnostics orders a merged list deterministically: by span start,
// then severity (Error < Warning < Info), then rule id, then message. The
// message tie-break keeps multi-diagnostic rules stable too.
func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return a.Message < b.Message
	})
}
