// Package cst provides an error-tolerant concrete syntax tree for the CI
// workflow YAML dialect.
//
// The tree is deliberately generic: a node carries a kind tag, a byte span
// into the source text, and ordered children. There is no typed schema layer
// above it; validation rules interpret node kinds directly and share the
// traversal helpers in pkg/astquery. Malformed input never aborts a parse;
// unparseable regions become KindError nodes and the tree's HadError flag is
// set so callers can decide whether to surface diagnostics.
package cst

import (
	"unicode/utf8"
)

// Kind tags a CST node.
type Kind uint8

const (
	// KindDocument is the root node spanning the whole source.
	KindDocument Kind = iota
	// KindMapping is a block or flow mapping; children are KindPair nodes
	// with KindComment trivia interleaved.
	KindMapping
	// KindPair is one key/value entry; the first KindScalar child is the
	// key, the last non-comment child (if any) is the value.
	KindPair
	// KindSequence is a block or flow sequence; children are KindItem nodes
	// with KindComment trivia interleaved.
	KindSequence
	// KindItem wraps one sequence entry; its last non-comment child is the
	// entry value. Comments may precede the value, so consumers must skip
	// trivia rather than index a fixed child position.
	KindItem
	// KindScalar is a scalar leaf (plain, quoted, or block scalar).
	KindScalar
	// KindComment is a "# ..." comment.
	KindComment
	// KindError marks a region the parser could not interpret. It may carry
	// partially parsed children.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindMapping:
		return "mapping"
	case KindPair:
		return "pair"
	case KindSequence:
		return "sequence"
	case KindItem:
		return "item"
	case KindScalar:
		return "scalar"
	case KindComment:
		return "comment"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Style records how a node was written in the source.
type Style uint8

const (
	// StylePlain is an unquoted scalar or a block collection.
	StylePlain Style = iota
	// StyleSingle is a single-quoted scalar.
	StyleSingle
	// StyleDouble is a double-quoted scalar.
	StyleDouble
	// StyleLiteral is a "|" block scalar.
	StyleLiteral
	// StyleFolded is a ">" block scalar.
	StyleFolded
	// StyleFlow is a "[...]" or "{...}" collection.
	StyleFlow
)

// Node is one node of the concrete syntax tree. Start and End are byte
// offsets into the source the tree was parsed from; End is exclusive.
type Node struct {
	Kind     Kind
	Style    Style
	Start    int
	End      int
	Children []*Node
}

// Text returns the source slice covered by the node's span. Spans that fall
// outside the source or that do not align to UTF-8 rune boundaries yield ""
// rather than a panic; callers treat that as "field absent".
func (n *Node) Text(source string) string {
	if n == nil {
		return ""
	}
	return Slice(source, n.Start, n.End)
}

// Slice returns source[start:end] if the range is in bounds and lands on
// UTF-8 rune boundaries, and "" otherwise.
func Slice(source string, start, end int) string {
	if start < 0 || end < start || end > len(source) {
		return ""
	}
	if start < len(source) && !utf8.RuneStart(source[start]) {
		return ""
	}
	if end < len(source) && !utf8.RuneStart(source[end]) {
		return ""
	}
	return source[start:end]
}

// Walk calls fn for n and every descendant in document order. Traversal of a
// subtree stops when fn returns false for its root.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Tree is the result of one parse.
type Tree struct {
	Root *Node
	// HadError reports that the tree contains KindError recovery nodes.
	// Callers must still accept the tree; the syntax rule decides whether
	// to emit diagnostics for the breakage.
	HadError bool
}

// Point is a zero-based row/column position; Column counts bytes.
type Point struct {
	Row    int
	Column int
}

// Edit describes one byte-range edit applied to a previously parsed source,
// mirroring the minimal information an incremental parser needs to map an
// edit onto the prior tree.
type Edit struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// LineIndex converts byte offsets to 1-based line/column positions. Columns
// are byte counts; adapters that speak UTF-16 (editor protocols) recode on
// their side.
type LineIndex struct {
	starts []int
	length int
}

// NewLineIndex builds the index for one source text.
func NewLineIndex(source string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, length: len(source)}
}

// Position returns the 1-based line and byte column for a byte offset.
// Offsets outside the source are clamped.
func (ix *LineIndex) Position(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	if offset > ix.length {
		offset = ix.length
	}
	lo, hi := 0, len(ix.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if ix.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - ix.starts[lo] + 1
}
