// Package astquery provides the shared read-side helpers that validation
// rules use to interrogate a cst.Tree: key lookup, pair/value navigation,
// job and step traversal, and `${{ ... }}` expression extraction.
//
// All helpers are pure functions over the tree and source text; nothing in
// this package mutates a tree or holds state between calls.
package astquery

import (
	"strings"

	"github.com/trussci/truss/pkg/cst"
)

// CleanKey strips surrounding quotes and whitespace and a trailing colon
// from a raw key text. This is the standard key normalization used by every
// rule that compares key names.
func CleanKey(raw string) string {
	cleaned := strings.TrimFunc(raw, func(r rune) bool {
		return r == '"' || r == '\'' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return strings.TrimSuffix(cleaned, ":")
}

// TrimQuotes removes one level of surrounding single or double quotes.
func TrimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Unwrap descends through item and error wrapper nodes to the content node.
// Error wrappers may carry partially recovered children; skipping them keeps
// rules working on trees with localized breakage.
func Unwrap(n *cst.Node) *cst.Node {
	for n != nil && (n.Kind == cst.KindItem || n.Kind == cst.KindError) {
		var inner *cst.Node
		for _, c := range n.Children {
			if c.Kind != cst.KindComment {
				inner = c
			}
		}
		if inner == nil {
			return n
		}
		n = inner
	}
	return n
}

// PairKey returns the key node of a pair, or nil.
func PairKey(pair *cst.Node) *cst.Node {
	if pair == nil || pair.Kind != cst.KindPair || len(pair.Children) == 0 {
		return nil
	}
	return pair.Children[0]
}

// PairKeyText returns the cleaned key text of a pair.
func PairKeyText(pair *cst.Node, source string) string {
	return CleanKey(PairKey(pair).Text(source))
}

// PairValue returns the value node of a pair, skipping comment trivia, or
// nil for a key-only pair. Comments can sit between the key and the value,
// so the search runs from the end.
func PairValue(pair *cst.Node) *cst.Node {
	if pair == nil || pair.Kind != cst.KindPair {
		return nil
	}
	for i := len(pair.Children) - 1; i >= 1; i-- {
		if pair.Children[i].Kind != cst.KindComment {
			return pair.Children[i]
		}
	}
	return nil
}

// FindValueForKey searches the subtree for the first pair whose cleaned key
// equals target and returns its unwrapped value node, or nil.
func FindValueForKey(n *cst.Node, source, target string) *cst.Node {
	if n == nil {
		return nil
	}
	if n.Kind == cst.KindPair {
		if PairKeyText(n, source) == target {
			return Unwrap(PairValue(n))
		}
	}
	for _, c := range n.Children {
		if v := FindValueForKey(c, source, target); v != nil {
			return v
		}
	}
	return nil
}

// KeyExists reports whether any pair in the subtree has the cleaned key,
// regardless of whether it carries a value.
func KeyExists(n *cst.Node, source, target string) bool {
	if n == nil {
		return false
	}
	if n.Kind == cst.KindPair && PairKeyText(n, source) == target {
		return true
	}
	for _, c := range n.Children {
		if KeyExists(c, source, target) {
			return true
		}
	}
	return false
}

// Pairs returns the pair children of a mapping node, skipping trivia.
func Pairs(mapping *cst.Node) []*cst.Node {
	if mapping == nil || mapping.Kind != cst.KindMapping {
		return nil
	}
	var out []*cst.Node
	for _, c := range mapping.Children {
		if c.Kind == cst.KindPair {
			out = append(out, c)
		}
	}
	return out
}

// Items returns the unwrapped entry nodes of a sequence, skipping trivia
// and empty entries.
func Items(seq *cst.Node) []*cst.Node {
	if seq == nil || seq.Kind != cst.KindSequence {
		return nil
	}
	var out []*cst.Node
	for _, c := range seq.Children {
		if c.Kind != cst.KindItem {
			continue
		}
		if v := Unwrap(c); v != nil && v.Kind != cst.KindItem {
			out = append(out, v)
		}
	}
	return out
}

// MappingValue looks up a key among a mapping's direct pairs and returns its
// unwrapped value, or nil. Unlike FindValueForKey it does not recurse, so
// nested keys with the same name do not shadow.
func MappingValue(mapping *cst.Node, source, target string) *cst.Node {
	for _, pair := range Pairs(mapping) {
		if PairKeyText(pair, source) == target {
			return Unwrap(PairValue(pair))
		}
	}
	return nil
}

// IsWorkflow reports whether the document looks like a CI workflow by
// checking the top few levels for `on` or `jobs` keys (case-insensitive).
// Rules that only make sense for workflow files gate on this so that
// arbitrary YAML passes through silently.
func IsWorkflow(tree *cst.Tree, source string) bool {
	if tree == nil || tree.Root == nil {
		return false
	}
	var hasOn, hasJobs bool
	var check func(n *cst.Node, depth int)
	check = func(n *cst.Node, depth int) {
		if depth > 4 || (hasOn && hasJobs) {
			return
		}
		if n.Kind == cst.KindPair {
			key := PairKeyText(n, source)
			if strings.EqualFold(key, "on") {
				hasOn = true
			} else if strings.EqualFold(key, "jobs") {
				hasJobs = true
			}
			return
		}
		for _, c := range n.Children {
			check(c, depth+1)
		}
	}
	check(tree.Root, 0)
	return hasOn || hasJobs
}

// JobsNode returns the unwrapped value of the top-level `jobs` key, or nil.
func JobsNode(tree *cst.Tree, source string) *cst.Node {
	if tree == nil || tree.Root == nil {
		return nil
	}
	return FindValueForKey(tree.Root, source, "jobs")
}

// VisitJobs calls fn for each entry of the `jobs` mapping with the cleaned
// job name, its key node, and its unwrapped value node (nil for a key-only
// job).
func VisitJobs(tree *cst.Tree, source string, fn func(name string, key, value *cst.Node)) {
	jobs := JobsNode(tree, source)
	if jobs == nil || jobs.Kind != cst.KindMapping {
		return
	}
	for _, pair := range Pairs(jobs) {
		key := PairKey(pair)
		fn(CleanKey(key.Text(source)), key, Unwrap(PairValue(pair)))
	}
}

// StepsOf returns the step mapping nodes of a job value's `steps` sequence.
func StepsOf(jobValue *cst.Node, source string) []*cst.Node {
	steps := MappingValue(jobValue, source, "steps")
	if steps == nil {
		return nil
	}
	return Items(steps)
}

// VisitSteps calls fn for each step of each job, with the job name and the
// zero-based step index within its job.
func VisitSteps(tree *cst.Tree, source string, fn func(job string, index int, step *cst.Node)) {
	VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		for i, step := range StepsOf(value, source) {
			fn(name, i, step)
		}
	})
}
