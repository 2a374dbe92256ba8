package rules

import (
	"strconv"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
	"github.com/trussci/truss/pkg/exprlang"
)

// spanOf converts a node's byte range to a diagnostic span.
func spanOf(n *cst.Node) Span {
	if n == nil {
		return Span{}
	}
	return Span{Start: n.Start, End: n.End}
}

// docStartSpan anchors document-level diagnostics at the first stretch of
// the file so editors have something to highlight.
func docStartSpan(source string) Span {
	end := len(source)
	if end > 100 {
		end = 100
	}
	return Span{Start: 0, End: end}
}

// exprSpan maps an expression's offsets within a node's text back to
// document byte offsets.
func exprSpan(base int, e astquery.Expression) Span {
	return Span{Start: base + e.Start, End: base + e.End}
}

// valueText returns a scalar value's text trimmed and with one level of
// quotes removed. Rules compare values through this so `'push'` and `push`
// read the same.
func valueText(n *cst.Node, source string) string {
	return astquery.TrimQuotes(strings.TrimSpace(n.Text(source)))
}

// isQuoted reports whether a node was written as a quoted scalar.
func isQuoted(n *cst.Node) bool {
	return n != nil && (n.Style == cst.StyleSingle || n.Style == cst.StyleDouble)
}

// hasExpression reports whether a raw value contains a `${{` marker. Rules
// that check literal formats skip values computed at runtime.
func hasExpression(s string) bool {
	return strings.Contains(s, "${{")
}

// parseNumber parses a YAML-ish numeric scalar.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// parseBoolWord recognizes the lowercase YAML booleans only; "yes"/"on"
// spellings are not accepted for workflow fields.
func parseBoolWord(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// truncate shortens a snippet for inclusion in a message, cutting on a rune
// boundary and appending an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}

// sequenceScalars returns the scalar entries of a block or flow sequence.
// A single scalar value comes back as a one-element list, matching YAML's
// scalar-or-list convention for fields like `runs-on` and `needs`.
func sequenceScalars(n *cst.Node) []*cst.Node {
	if n == nil {
		return nil
	}
	if n.Kind == cst.KindScalar {
		return []*cst.Node{n}
	}
	if n.Kind != cst.KindSequence {
		return nil
	}
	var out []*cst.Node
	for _, item := range astquery.Items(n) {
		if item.Kind == cst.KindScalar {
			out = append(out, item)
		}
	}
	return out
}

// containsString reports membership in a small list.
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// eventNames returns the trigger names of the `on:` value in document
// order, regardless of whether it was written as a scalar, a sequence, or
// a mapping.
func eventNames(onValue *cst.Node, source string) []string {
	switch {
	case onValue == nil:
		return nil
	case onValue.Kind == cst.KindScalar:
		return []string{valueText(onValue, source)}
	case onValue.Kind == cst.KindSequence:
		var out []string
		for _, item := range sequenceScalars(onValue) {
			out = append(out, valueText(item, source))
		}
		return out
	case onValue.Kind == cst.KindMapping:
		var out []string
		for _, pair := range astquery.Pairs(onValue) {
			out = append(out, astquery.PairKeyText(pair, source))
		}
		return out
	}
	return nil
}

// onValueNode returns the unwrapped value of the top-level `on:` key.
func onValueNode(tree *cst.Tree, source string) *cst.Node {
	if tree == nil || tree.Root == nil {
		return nil
	}
	for _, doc := range tree.Root.Children {
		if doc.Kind != cst.KindMapping {
			continue
		}
		for _, pair := range astquery.Pairs(doc) {
			if strings.EqualFold(astquery.PairKeyText(pair, source), "on") {
				return astquery.Unwrap(astquery.PairValue(pair))
			}
		}
	}
	return nil
}

// hasWorkflowCallTrigger reports whether the document declares the
// workflow_call trigger, and returns its value node when it has one.
func hasWorkflowCallTrigger(tree *cst.Tree, source string) (*cst.Node, bool) {
	on := onValueNode(tree, source)
	if on == nil {
		return nil, false
	}
	switch on.Kind {
	case cst.KindScalar:
		return nil, valueText(on, source) == "workflow_call"
	case cst.KindSequence:
		for _, item := range sequenceScalars(on) {
			if valueText(item, source) == "workflow_call" {
				return nil, true
			}
		}
	case cst.KindMapping:
		for _, pair := range astquery.Pairs(on) {
			if astquery.PairKeyText(pair, source) == "workflow_call" {
				return astquery.Unwrap(astquery.PairValue(pair)), true
			}
		}
	}
	return nil, false
}

// hasTopLevelKey reports whether a document mapping has a direct pair with
// the given key (case-insensitive), with or without a value.
func hasTopLevelKey(tree *cst.Tree, source, key string) bool {
	if tree == nil || tree.Root == nil {
		return false
	}
	for _, doc := range tree.Root.Children {
		if doc.Kind != cst.KindMapping {
			continue
		}
		for _, pair := range astquery.Pairs(doc) {
			if strings.EqualFold(astquery.PairKeyText(pair, source), key) {
				return true
			}
		}
	}
	return false
}

// topLevelValue returns the unwrapped value of a document mapping's direct
// pair with the given key, or nil.
func topLevelValue(tree *cst.Tree, source, key string) *cst.Node {
	if tree == nil || tree.Root == nil {
		return nil
	}
	for _, doc := range tree.Root.Children {
		if doc.Kind != cst.KindMapping {
			continue
		}
		for _, pair := range astquery.Pairs(doc) {
			if astquery.PairKeyText(pair, source) == key {
				return astquery.Unwrap(astquery.PairValue(pair))
			}
		}
	}
	return nil
}

// mappingHasKey reports whether a mapping has a direct pair with the given
// cleaned key, with or without a value.
func mappingHasKey(mapping *cst.Node, source, key string) bool {
	for _, pair := range astquery.Pairs(mapping) {
		if astquery.PairKeyText(pair, source) == key {
			return true
		}
	}
	return false
}

// contextRef is one `<context>.<name>` property reference found inside an
// expression, with the span of the name in document byte offsets.
type contextRef struct {
	name string
	span Span
}

// refDelimiters end a property name inside an expression.
func isRefDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '}', ')', ']', '&', '|', '=', '!', '<', '>', '.', ',', '(':
		return true
	}
	return false
}

// contextRefs finds every `<context>.<name>` reference inside the source's
// expressions. The context match is case-insensitive and must start on a
// word boundary, so `github.event.inputs.x` does not count as an `inputs.`
// reference.
func contextRefs(source, context string) []contextRef {
	prefix := context + "."
	var refs []contextRef
	for _, expr := range astquery.FindExpressions(source) {
		inner := expr.Inner
		base := expr.Start + 3
		pos := 0
		for {
			idx := exprlang.IndexFold(inner[pos:], prefix)
			if idx < 0 {
				break
			}
			at := pos + idx
			pos = at + len(prefix)
			if at > 0 {
				prev := inner[at-1]
				if prev == '.' || prev == '_' || prev == '-' ||
					prev >= 'a' && prev <= 'z' || prev >= 'A' && prev <= 'Z' || prev >= '0' && prev <= '9' {
					continue
				}
			}
			nameStart := at + len(prefix)
			nameEnd := nameStart
			for nameEnd < len(inner) && !isRefDelimiter(inner[nameEnd]) {
				nameEnd++
			}
			if nameEnd == nameStart {
				continue
			}
			refs = append(refs, contextRef{
				name: inner[nameStart:nameEnd],
				span: Span{Start: base + nameStart, End: base + nameEnd},
			})
			pos = nameEnd
		}
	}
	return refs
}

// knownShells are the shell names the runner resolves without a custom
// command template.
var knownShells = []string{"bash", "pwsh", "python", "sh", "cmd", "powershell"}

// validShell accepts a known shell name (case-insensitive) or a custom
// command carrying the {0} script placeholder.
func validShell(text string) bool {
	return containsString(knownShells, strings.ToLower(text)) || strings.Contains(text, "{0}")
}

// jobNames returns the job ids in document order.
func jobNames(tree *cst.Tree, source string) []string {
	var out []string
	astquery.VisitJobs(tree, source, func(name string, _, _ *cst.Node) {
		out = append(out, name)
	})
	return out
}
