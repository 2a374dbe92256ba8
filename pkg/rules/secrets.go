package rules

import (
	"fmt"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
	"github.com/trussci/truss/pkg/exprlang"
)

// secretsValidationRule catches the two common misspellings of the secrets
// context inside expressions: the singular 'secret.NAME' and the missing dot
// in 'secretsNAME'.
type secretsValidationRule struct{}

func (secretsValidationRule) ID() string             { return "secrets_validation" }
func (secretsValidationRule) RequiresWorkflow() bool { return true }

func isIdentChar(c byte) bool {
	return c == '_' || c == '-' ||
		c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func (secretsValidationRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	for _, expr := range astquery.FindExpressions(source) {
		inner := expr.Inner
		base := expr.Start + 3
		pos := 0
		for {
			idx := exprlang.IndexFold(inner[pos:], "secret")
			if idx < 0 {
				break
			}
			at := pos + idx
			pos = at + len("secret")
			if at > 0 && (isIdentChar(inner[at-1]) || inner[at-1] == '.') {
				continue
			}

			rest := inner[at+len("secret"):]
			if len(rest) > 0 && (rest[0] == 's' || rest[0] == 'S') {
				// Plural spelling. Correct usage is 'secrets.'; an identifier
				// character right after the context name means a missing dot.
				after := rest[1:]
				if len(after) == 0 || !isIdentChar(after[0]) {
					continue
				}
				nameEnd := 0
				for nameEnd < len(after) && isIdentChar(after[nameEnd]) {
					nameEnd++
				}
				name := after[:nameEnd]
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Invalid secret reference: 'secrets%s' should be 'secrets.%s' (missing dot)",
						name, name),
					Severity: SeverityError,
					Span:     Span{Start: base + at, End: base + at + len("secrets") + nameEnd},
				})
				pos = at + len("secrets") + nameEnd
				continue
			}

			if len(rest) == 0 || rest[0] != '.' {
				continue
			}
			after := rest[1:]
			nameEnd := 0
			for nameEnd < len(after) && isIdentChar(after[nameEnd]) {
				nameEnd++
			}
			if nameEnd == 0 {
				continue
			}
			name := after[:nameEnd]
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Invalid secret reference: 'secret.%s' should be 'secrets.%s' (use plural 'secrets')",
					name, name),
				Severity: SeverityError,
				Span:     Span{Start: base + at, End: base + at + len("secret.") + nameEnd},
			})
			pos = at + len("secret.") + nameEnd
		}
	}
	return diags
}
