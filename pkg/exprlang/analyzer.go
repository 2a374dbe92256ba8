package exprlang

import (
	"fmt"
	"strings"
)

// KnownContexts are the recognized top-level context names.
var KnownContexts = []string{
	"github", "matrix", "secrets", "vars", "needs", "inputs", "env", "job",
	"jobs", "steps", "runner", "strategy",
}

// KnownFunctions are the built-in function names. toJSON and fromJSON are
// additionally accepted in any case.
var KnownFunctions = []string{
	"contains", "startsWith", "endsWith", "format", "join",
	"toJSON", "fromJSON", "hashFiles",
	"success", "failure", "cancelled", "always",
}

// IsKnownContext reports whether name is a recognized top-level context.
func IsKnownContext(name string) bool {
	for _, ctx := range KnownContexts {
		if name == ctx {
			return true
		}
	}
	return false
}

// IsKnownFunction reports whether name is a recognized built-in function.
func IsKnownFunction(name string) bool {
	for _, fn := range KnownFunctions {
		if name == fn {
			return true
		}
	}
	lower := strings.ToLower(name)
	return lower == "tojson" || lower == "fromjson"
}

// IssueKind classifies one analyzer finding. Kinds through IssueBadOperator
// are syntax errors; the rest are advisory.
type IssueKind uint8

const (
	// IssueEmpty is an expression with no content.
	IssueEmpty IssueKind = iota
	// IssueMalformed covers unbalanced parens/brackets, unterminated
	// strings, and unrecognizable tokens.
	IssueMalformed
	// IssueBadOperator is a JavaScript equality operator (=== or !==).
	IssueBadOperator
	// IssueAssignment is a bare = in a read-only expression.
	IssueAssignment
	// IssueUnknownContext is a top-level name outside KnownContexts.
	IssueUnknownContext
	// IssueUnknownFunction is a call to a name outside KnownFunctions.
	IssueUnknownFunction
)

// Issue is one finding about an expression.
type Issue struct {
	Kind    IssueKind
	Message string
}

// IsError reports whether the issue is a syntax error rather than an
// advisory finding.
func (i Issue) IsError() bool {
	return i.Kind <= IssueBadOperator
}

// Analysis is the transient result of analyzing one expression's inner
// text. It is not retained beyond the rule call that requested it.
type Analysis struct {
	// Context is the first recognized top-level context name, if any.
	Context string
	// Valid is false when any syntax-error issue was found.
	Valid  bool
	Issues []Issue
}

// Analyze tokenizes and validates one expression's inner text.
func Analyze(raw string) Analysis {
	expr := strings.TrimSpace(raw)
	a := Analysis{Valid: true}
	fail := func(kind IssueKind, format string, args ...any) {
		a.Issues = append(a.Issues, Issue{Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	if expr == "" {
		fail(IssueEmpty, "Empty expression")
		a.Valid = false
		return a
	}

	tokens, err := Lex(expr)
	if err != nil {
		fail(IssueMalformed, "Invalid expression syntax: '%s'", expr)
		a.Valid = false
		return a
	}

	malformed := false
	for _, tok := range tokens {
		if tok.Kind != TokenIllegal {
			continue
		}
		switch tok.Text {
		case "===", "!==":
			fail(IssueBadOperator,
				"Invalid operator in expression: '%s'. Expressions use '==' and '!=' for equality, not '===' or '!=='.", expr)
		case "=":
			fail(IssueAssignment,
				"Potentially invalid operator in expression: '%s'. Expressions are read-only and cannot use assignment operators.", expr)
		default:
			malformed = true
		}
	}

	parens, brackets := 0, 0
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenLParen:
			parens++
		case TokenRParen:
			parens--
		case TokenLBracket:
			brackets++
		case TokenRBracket:
			brackets--
		}
		if parens < 0 || brackets < 0 {
			malformed = true
		}
	}
	if parens != 0 || brackets != 0 {
		malformed = true
	}
	if malformed {
		fail(IssueMalformed, "Invalid expression syntax: '%s'", expr)
	}

	for i, tok := range tokens {
		if tok.Kind != TokenIdent || tok.Text == "*" {
			continue
		}
		afterDot := i > 0 && tokens[i-1].Kind == TokenDot
		var next TokenKind = TokenIllegal
		hasNext := i+1 < len(tokens)
		if hasNext {
			next = tokens[i+1].Kind
		}

		if hasNext && next == TokenLParen {
			if !IsKnownFunction(tok.Text) {
				fail(IssueUnknownFunction,
					"Unknown function in expression: '%s'. Valid functions are: %s.",
					tok.Text, strings.Join(KnownFunctions, ", "))
			}
			continue
		}
		if afterDot {
			continue
		}
		if hasNext && (next == TokenDot || next == TokenLBracket) {
			if IsKnownContext(tok.Text) {
				if a.Context == "" {
					a.Context = tok.Text
				}
			} else {
				fail(IssueUnknownContext, "Undefined context variable: '%s'", tok.Text)
			}
			continue
		}
		// Bare identifier.
		switch {
		case tok.Text == "true" || tok.Text == "false" || tok.Text == "null":
		case IsKnownContext(tok.Text):
			if a.Context == "" {
				a.Context = tok.Text
			}
		case len(tokens) == 1:
			// A lone unrecognized word is not an expression at all.
			fail(IssueMalformed, "Invalid expression syntax: '%s'", expr)
		default:
			fail(IssueUnknownContext, "Undefined context variable: '%s'", tok.Text)
		}
	}

	for _, issue := range a.Issues {
		if issue.IsError() {
			a.Valid = false
			break
		}
	}
	return a
}

// IsValidSyntax reports whether the expression text is syntactically
// acceptable. Advisory findings (unknown names) do not make it invalid.
func IsValidSyntax(expr string) bool {
	return Analyze(expr).Valid
}

// IsAlwaysTrue reports whether a condition expression trivially evaluates
// to true regardless of runtime state.
func IsAlwaysTrue(expr string) bool {
	return strings.EqualFold(strings.TrimSpace(expr), "true") ||
		strings.EqualFold(strings.TrimSpace(expr), "!false") ||
		ContainsFold(expr, "|| true") ||
		ContainsFold(expr, "true ||")
}

// IsAlwaysFalse reports whether a condition expression trivially evaluates
// to false regardless of runtime state.
func IsAlwaysFalse(expr string) bool {
	return strings.EqualFold(strings.TrimSpace(expr), "false") ||
		strings.EqualFold(strings.TrimSpace(expr), "!true") ||
		ContainsFold(expr, "&& false") ||
		ContainsFold(expr, "false &&")
}

// ContainsFold is a case-insensitive substring test without allocating a
// lowered copy.
func ContainsFold(haystack, needle string) bool {
	return IndexFold(haystack, needle) >= 0
}

// IndexFold returns the byte offset of the first case-insensitive match of
// needle in haystack, or -1.
func IndexFold(haystack, needle string) int {
	if len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if strings.EqualFold(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
