package astquery

import "strings"

// Expression is one `${{ ... }}` occurrence extracted from a text region.
// Offsets are byte positions within the text the expression was found in;
// callers working with node text add the node's span start to map them back
// to the document.
type Expression struct {
	// Inner is the text between `${{` and `}}`, untrimmed.
	Inner string
	// Start is the offset of the `$`.
	Start int
	// End is the offset just past the closing `}}`. For an unclosed
	// expression it is the end of the text.
	End int
	// Closed reports whether the closing `}}` was found.
	Closed bool
}

// FindExpressions extracts every `${{ ... }}` expression from text using
// brace counting, so nested braces inside format strings match correctly
// (e.g. `${{ format('{0}', matrix.os) }}`). Expressions on comment lines
// are skipped. An unclosed expression is still returned, with Closed false,
// so callers can flag it.
//
// This is the single expression scanner in the codebase; every rule that
// inspects expressions goes through it.
func FindExpressions(text string) []Expression {
	var results []Expression
	i := 0
	for i+2 < len(text) {
		if text[i] != '$' || text[i+1] != '{' || text[i+2] != '{' {
			i++
			continue
		}

		lineStart := strings.LastIndexByte(text[:i], '\n') + 1
		if strings.HasPrefix(strings.TrimLeft(text[lineStart:i], " \t"), "#") {
			i += 3
			continue
		}

		j := i + 3
		braces := 2
		closed := false
		for j < len(text) {
			if j+1 < len(text) && text[j] == '}' && text[j+1] == '}' {
				braces -= 2
				j += 2
				if braces == 0 {
					closed = true
					break
				}
				continue
			}
			switch text[j] {
			case '{':
				braces++
			case '}':
				braces--
			}
			j++
		}

		if closed {
			if i+3 < j-2 {
				results = append(results, Expression{
					Inner:  text[i+3 : j-2],
					Start:  i,
					End:    j,
					Closed: true,
				})
			}
			i = j
			continue
		}
		results = append(results, Expression{
			Inner: text[i+3:],
			Start: i,
			End:   len(text),
		})
		break
	}
	return results
}
