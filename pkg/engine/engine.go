// Package engine is the validation facade: it owns a parser, a configured
// rule set, and the mapping from byte-span diagnostics to line/column
// results. One Engine serves one goroutine; workers that validate files in
// parallel each build their own.
package engine

import (
	"github.com/trussci/truss/pkg/cst"
	"github.com/trussci/truss/pkg/logger"
	"github.com/trussci/truss/pkg/rules"
)

var engLog = logger.New("engine:analyze")

// Diagnostic is one finding in output form, with 1-based lines and UTF-8
// byte columns.
type Diagnostic struct {
	Rule      string `json:"rule"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	LineEnd   int    `json:"line_end"`
	ColumnEnd int    `json:"column_end"`
}

// Result is the outcome of analyzing one document. Valid is false when any
// error-severity diagnostic was produced, including parse failure.
type Result struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Engine runs the configured rules against documents.
type Engine struct {
	parser    *cst.Parser
	rules     []rules.Rule
	overrides map[string]rules.Severity
}

// Option configures an Engine.
type Option func(*Engine)

// WithoutRule disables a rule by id. Unknown ids are ignored.
func WithoutRule(id string) Option {
	return func(e *Engine) {
		kept := e.rules[:0]
		for _, r := range e.rules {
			if r.ID() != id {
				kept = append(kept, r)
			}
		}
		e.rules = kept
	}
}

// WithSeverity overrides the severity of every diagnostic a rule produces.
// Unknown ids are ignored.
func WithSeverity(id string, severity rules.Severity) Option {
	return func(e *Engine) {
		e.overrides[id] = severity
	}
}

// New builds an engine with the full registry, then applies options.
func New(opts ...Option) *Engine {
	e := &Engine{
		parser:    cst.NewParser(),
		rules:     rules.All(),
		overrides: map[string]rules.Severity{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze parses and validates one document.
func (e *Engine) Analyze(source string) Result {
	result, _ := e.AnalyzeWithTree(source)
	return result
}

// AnalyzeWithTree additionally returns the parsed tree so callers can chain
// incremental reparses. The tree is nil when parsing failed.
func (e *Engine) AnalyzeWithTree(source string) (Result, *cst.Tree) {
	tree, err := e.parser.Parse(source)
	if err != nil {
		engLog.Printf("parse failed: %v", err)
		return parseFailure(), nil
	}
	return e.run(tree, source), tree
}

// AnalyzeIncremental validates the edited document, reusing the prior tree
// where the edits allow. A nil prior tree or a rejected edit list falls back
// to a full parse.
func (e *Engine) AnalyzeIncremental(source string, prior *cst.Tree, edits []cst.Edit) (Result, *cst.Tree) {
	if prior == nil {
		return e.AnalyzeWithTree(source)
	}
	tree, err := e.parser.Reparse(prior, edits, source)
	if err != nil {
		engLog.Printf("reparse rejected, reparsing from scratch: %v", err)
		return e.AnalyzeWithTree(source)
	}
	return e.run(tree, source), tree
}

// parseFailure is the result for input that produced no tree at all.
func parseFailure() Result {
	return Result{
		Valid: false,
		Diagnostics: []Diagnostic{{
			Rule:     "non_empty",
			Message:  "Document is empty",
			Severity: rules.SeverityError.String(),
			Line:     1, Column: 1, LineEnd: 1, ColumnEnd: 1,
		}},
	}
}

func (e *Engine) run(tree *cst.Tree, source string) Result {
	found := rules.Run(tree, source, e.rules)
	index := cst.NewLineIndex(source)

	result := Result{Valid: true}
	for _, d := range found {
		severity := d.Severity
		if override, ok := e.overrides[d.RuleID]; ok {
			severity = override
		}
		if severity == rules.SeverityError {
			result.Valid = false
		}
		line, col := index.Position(d.Span.Start)
		lineEnd, colEnd := index.Position(d.Span.End)
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Rule:      d.RuleID,
			Message:   d.Message,
			Severity:  severity.String(),
			Line:      line,
			Column:    col,
			LineEnd:   lineEnd,
			ColumnEnd: colEnd,
		})
	}
	return result
}
